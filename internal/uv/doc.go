// Package uv is the integration layer for the uv environment manager.
//
// The bootstrap flow is a thin wrapper around uv subcommands:
//
//	uv venv .venv            (create the virtual environment)
//	uv build                 (build sdist + wheel into dist/)
//	uv sync                  (resolve and install dependencies)
//	uv pip install -e .      (editable/development install)
//
// All of them are fail-fast: a non-zero exit from any command aborts the
// invocation with no retry and no partial-failure recovery. The package
// also detects whether uv is installed and can run the official installer
// (with operator consent) when it is not.
package uv
