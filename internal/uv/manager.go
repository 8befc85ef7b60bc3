// Package uv wraps the uv environment/package manager CLI.
//
// This package shells out to `uv` (via os/exec) to create virtual
// environments, build the package, sync dependencies, and perform the
// editable install. It also knows how to detect whether uv is installed
// and how to run the official installer when it is not.
//
// Design decisions:
//   - We shell out to `uv` rather than reimplementing resolver/installer
//     behavior, because uv's lockfile semantics and build backend selection
//     must match exactly what developers get when running uv by hand.
//   - Every external command failure is wrapped in model.CLIError so the
//     CLI layer can translate it into a process exit code. Failures are
//     fatal for the invocation — there is no retry logic anywhere.
//   - Long-running steps (build, sync) stream their output to the Manager's
//     writers so the operator can watch progress; short query commands
//     (--version) capture output instead.
package uv

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/vizlab3d/stimenv/internal/model"
)

// installerURL is the official uv installer endpoint. The POSIX variant
// serves a shell script; the Windows variant serves PowerShell.
const (
	installerURL        = "https://astral.sh/uv/install.sh"
	installerURLWindows = "https://astral.sh/uv/install.ps1"
)

// Manager provides uv operations by invoking the uv CLI.
//
// The zero value is not usable; construct with NewManager, which resolves
// the binary name and wires default output streams. The binary path is
// re-resolved after InstallSelf, because a fresh install lands in a
// directory that may not have been on PATH when the process started.
type Manager struct {
	// bin is the uv executable to invoke. Defaults to "uv" (resolved via
	// PATH at exec time) and is replaced with an absolute path after a
	// successful InstallSelf.
	bin string

	// stdout and stderr receive streamed output from long-running uv
	// commands. They default to os.Stdout/os.Stderr and are overridable
	// for tests.
	stdout io.Writer
	stderr io.Writer
}

// NewManager creates a new uv Manager with default output streams.
func NewManager() *Manager {
	return &Manager{
		bin:    "uv",
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// SetOutput redirects the streamed output of long-running uv commands.
// Passing nil for either writer keeps the current destination.
func (m *Manager) SetOutput(stdout, stderr io.Writer) {
	if stdout != nil {
		m.stdout = stdout
	}
	if stderr != nil {
		m.stderr = stderr
	}
}

// Installed reports whether the uv executable is resolvable.
// The probe is read-only: it consults PATH (and the post-install
// fallback location) without executing anything.
func (m *Manager) Installed() bool {
	_, err := m.Path()
	return err == nil
}

// Path returns the absolute path to the uv executable.
//
// Resolution order:
//  1. The path recorded by a previous InstallSelf in this process.
//  2. PATH lookup via exec.LookPath.
//  3. ~/.local/bin/uv — where the official installer places the binary.
//     A freshly installed uv is usable immediately even though the
//     current process's PATH predates the install.
func (m *Manager) Path() (string, error) {
	// An absolute bin means InstallSelf already resolved it.
	if filepath.IsAbs(m.bin) {
		return m.bin, nil
	}

	if path, err := exec.LookPath(m.bin); err == nil {
		return path, nil
	}

	// Fall back to the installer's default target directory.
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("uv not found on PATH")
	}
	candidate := filepath.Join(home, ".local", "bin", exeName("uv"))
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}

	return "", fmt.Errorf("uv not found on PATH or in %s", filepath.Dir(candidate))
}

// Version returns the installed uv version string (e.g., "0.5.11").
// It runs `uv --version` and strips the "uv " prefix from the output.
func (m *Manager) Version(ctx context.Context) (string, error) {
	out, err := m.capture(ctx, "", "--version")
	if err != nil {
		return "", err
	}
	// Output format: "uv 0.5.11" (possibly with a build suffix).
	version := strings.TrimSpace(out)
	version = strings.TrimPrefix(version, "uv ")
	if version == "" {
		return "", fmt.Errorf("could not parse uv version from %q", out)
	}
	return version, nil
}

// InstallSelf downloads and runs the official uv installer. This is the
// only network-touching operation in the bootstrap flow, and it only runs
// after the operator has explicitly consented.
//
// On Linux/macOS the installer is fetched with curl and piped to sh; on
// Windows it is fetched and executed by PowerShell. After a successful
// install the Manager re-resolves the binary path so subsequent commands
// work without restarting the shell.
func (m *Manager) InstallSelf(ctx context.Context) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		// -ExecutionPolicy ByPass is required because the installer script
		// is not signed.
		cmd = exec.CommandContext(ctx, "powershell",
			"-ExecutionPolicy", "ByPass", "-c",
			fmt.Sprintf("irm %s | iex", installerURLWindows))
	} else {
		// #nosec G204 — the command string is a constant, not user input
		cmd = exec.CommandContext(ctx, "sh", "-c",
			fmt.Sprintf("curl -LsSf %s | sh", installerURL))
	}

	// Stream installer output so the operator can see download progress
	// and the installer's own success message.
	cmd.Stdout = m.stdout
	cmd.Stderr = m.stderr

	if err := cmd.Run(); err != nil {
		return model.WrapCLIError(model.ExitGeneralError,
			"uv installer failed", err)
	}

	// Re-resolve: the installer writes to ~/.local/bin, which may not be
	// on this process's PATH. Pin the absolute path for the rest of the run.
	m.bin = "uv"
	path, err := m.Path()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError,
			"uv installer completed but the binary could not be located", err)
	}
	m.bin = path
	return nil
}

// CreateVenv creates a virtual environment at venvDir inside projectDir
// by running `uv venv <venvDir>`. If python is non-empty it is passed via
// --python, letting uv download/select the requested interpreter version.
//
// Callers are responsible for the existence check: this function
// unconditionally runs `uv venv`, which would recreate an existing
// environment. The bootstrap flow never calls it when the directory
// already exists.
func (m *Manager) CreateVenv(ctx context.Context, projectDir, venvDir, python string) error {
	args := []string{"venv", venvDir}
	if python != "" {
		args = append(args, "--python", python)
	}
	return m.run(ctx, projectDir, args...)
}

// Build builds the package sdist and wheel by running `uv build` in the
// project directory. Artifacts land in dist/ per uv's convention.
func (m *Manager) Build(ctx context.Context, projectDir string) error {
	return m.run(ctx, projectDir, "build")
}

// Sync resolves and installs the project's dependencies into the virtual
// environment by running `uv sync`.
//
// Each entry in extras adds an --extra flag. When frozen is true,
// --frozen is passed so the lockfile is used as-is without re-resolution —
// the reproducible mode used in CI and containerized bootstrap runs.
func (m *Manager) Sync(ctx context.Context, projectDir string, extras []string, frozen bool) error {
	args := []string{"sync"}
	for _, extra := range extras {
		args = append(args, "--extra", extra)
	}
	if frozen {
		args = append(args, "--frozen")
	}
	return m.run(ctx, projectDir, args...)
}

// InstallEditable installs the project into the virtual environment in
// editable/development mode via `uv pip install -e .`, so local source
// edits take effect without reinstalling.
//
// The target environment is selected with --python pointing at the venv
// interpreter rather than by "activating" anything — activation is a
// shell-session concept that a child process cannot perform on behalf of
// its parent.
func (m *Manager) InstallEditable(ctx context.Context, projectDir, venvDir string) error {
	python := PythonPath(projectDir, venvDir)
	return m.run(ctx, projectDir, "pip", "install", "-e", ".", "--python", python)
}

// ImportVersion imports the given module inside the virtual environment
// and returns its __version__ attribute. This is the post-install
// verification: it proves the editable install produced an importable
// package.
func (m *Manager) ImportVersion(ctx context.Context, projectDir, venvDir, module string) (string, error) {
	python := PythonPath(projectDir, venvDir)
	script := fmt.Sprintf("import %s; print(%s.__version__)", module, module)

	// #nosec G204 — module comes from project config, not remote input
	cmd := exec.CommandContext(ctx, python, "-c", script)
	cmd.Dir = projectDir

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		message := fmt.Sprintf("failed to import %s from the virtual environment", module)
		if s := strings.TrimSpace(stderr.String()); s != "" {
			message = fmt.Sprintf("%s: %s", message, lastLine(s))
		}
		return "", model.WrapCLIError(model.ExitVerifyFailed, message, err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// PythonPath returns the path of the python interpreter inside the
// virtual environment, accounting for the platform-specific layout
// (bin/ on POSIX, Scripts\ on Windows).
func PythonPath(projectDir, venvDir string) string {
	root := venvDir
	if !filepath.IsAbs(root) {
		root = filepath.Join(projectDir, venvDir)
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(root, "Scripts", "python.exe")
	}
	return filepath.Join(root, "bin", "python")
}

// ActivateHint returns the shell command an operator should run to
// activate the environment interactively. Printed at the end of a
// successful bootstrap; never executed by stimenv itself.
func ActivateHint(venvDir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venvDir, "Scripts", "Activate.ps1")
	}
	return fmt.Sprintf("source %s", filepath.Join(venvDir, "bin", "activate"))
}

// run executes a uv command in the specified directory, streaming output
// to the Manager's writers. On failure it returns a model.CLIError with
// ExitGeneralError — every step of the bootstrap is fail-fast, so the
// caller is expected to abort on the first error.
func (m *Manager) run(ctx context.Context, dir string, args ...string) error {
	bin, err := m.Path()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "uv is not installed", err)
	}

	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.Stdout = m.stdout

	// Tee stderr: stream it for the operator AND keep a copy for the
	// error message, so failures are diagnosable from the exit message
	// alone (e.g., in CI logs that interleave streams).
	var stderr strings.Builder
	cmd.Stderr = io.MultiWriter(m.stderr, &stderr)

	if err := cmd.Run(); err != nil {
		message := fmt.Sprintf("uv %s failed", strings.Join(args, " "))
		if s := strings.TrimSpace(stderr.String()); s != "" {
			message = fmt.Sprintf("%s: %s", message, lastLine(s))
		}
		return model.WrapCLIError(model.ExitGeneralError, message, err)
	}
	return nil
}

// capture executes a uv command and returns its stdout. Used for short
// query commands where the output is the result (e.g., --version).
func (m *Manager) capture(ctx context.Context, dir string, args ...string) (string, error) {
	bin, err := m.Path()
	if err != nil {
		return "", model.WrapCLIError(model.ExitGeneralError, "uv is not installed", err)
	}

	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		message := fmt.Sprintf("uv %s failed", strings.Join(args, " "))
		if s := strings.TrimSpace(stderr.String()); s != "" {
			message = fmt.Sprintf("%s: %s", message, lastLine(s))
		}
		return "", model.WrapCLIError(model.ExitGeneralError, message, err)
	}
	return stdout.String(), nil
}

// lastLine returns the final non-empty line of s. uv prints multi-line
// diagnostics; the last line usually carries the actionable error.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// exeName appends ".exe" on Windows.
func exeName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}
