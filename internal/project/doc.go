// Package project locates the project root, loads the optional
// stimenv.jsonc configuration, and manages the bootstrap receipt.
//
// The project root is the directory containing pyproject.toml — the
// manifest consumed by uv's build and sync steps. The receipt is a YAML
// file written into the virtual environment after a successful bootstrap;
// its presence is what makes re-invocation idempotent and observable
// (see EnvState).
package project
