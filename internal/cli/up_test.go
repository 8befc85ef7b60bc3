package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vizlab3d/stimenv/internal/model"
	"github.com/vizlab3d/stimenv/internal/project"
)

// setupTestProject creates a temp directory with a minimal pyproject.toml,
// standing in for the threedipa checkout.
func setupTestProject(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, project.ManifestName),
		[]byte("[project]\nname = \"threedipa\"\n"), 0o644)
	require.NoError(t, err)
	return dir
}

// installStubUV puts a fake uv first on PATH and hides any real uv
// (including the ~/.local/bin fallback, via a scratch HOME).
//
// The stub logs every invocation to the returned log file. Its `venv`
// subcommand creates the directory with a fake bin/python that answers
// the import check, so a full bootstrap can run end to end. The optional
// prelude runs before dispatch, letting tests inject failures.
func installStubUV(t *testing.T, prelude string) (logFile string) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("stub executables use /bin/sh")
	}

	binDir := t.TempDir()
	logFile = filepath.Join(t.TempDir(), "uv-calls.log")

	stub := fmt.Sprintf(`#!/bin/sh
echo "$@" >> %q
%s
case "$1" in
  --version) echo "uv 0.5.11" ;;
  venv)
    mkdir -p "$2/bin"
    printf '#!/bin/sh\necho "0.0.1"\n' > "$2/bin/python"
    chmod +x "$2/bin/python"
    ;;
esac
`, logFile, prelude)

	require.NoError(t, os.WriteFile(filepath.Join(binDir, "uv"), []byte(stub), 0o755))

	t.Setenv("PATH", binDir+string(os.PathListSeparator)+"/usr/bin"+string(os.PathListSeparator)+"/bin")
	t.Setenv("HOME", t.TempDir())

	return logFile
}

// hideUV makes uv unresolvable from PATH and the installer fallback.
func hideUV(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("PATH manipulation differs on windows")
	}
	t.Setenv("PATH", t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

// readCalls returns the stub's invocation log lines.
func readCalls(t *testing.T, logFile string) []string {
	t.Helper()
	data, err := os.ReadFile(logFile)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// callsWith returns the log lines whose first word matches subcommand.
func callsWith(calls []string, subcommand string) []string {
	var matched []string
	for _, c := range calls {
		if strings.HasPrefix(c, subcommand+" ") || c == subcommand {
			matched = append(matched, c)
		}
	}
	return matched
}

// TestRunUp_FullBootstrap runs the whole flow in a clean project with
// consent given: the venv is created, every step runs in order, the
// receipt is written, and the environment reports ready.
func TestRunUp_FullBootstrap(t *testing.T) {
	root := setupTestProject(t)
	logFile := installStubUV(t, "")

	err := runUp(context.Background(), &upFlags{yes: true, projDir: root})
	require.NoError(t, err)

	// The venv directory exists.
	venvPath := filepath.Join(root, project.DefaultVenvDir)
	info, statErr := os.Stat(venvPath)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())

	// Every bootstrap step ran, in order.
	calls := readCalls(t, logFile)
	assert.Len(t, callsWith(calls, "venv"), 1)
	assert.Len(t, callsWith(calls, "build"), 1)
	assert.Len(t, callsWith(calls, "sync"), 1)
	assert.Len(t, callsWith(calls, "pip"), 1)

	// The receipt marks the environment ready.
	cfg, err := project.LoadConfig(root)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, project.EnvState(cfg, root))

	receipt, err := project.LoadReceipt(venvPath)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, "0.5.11", receipt.UVVersion)
	assert.Equal(t, "0.0.1", receipt.PackageVersion)
}

// TestRunUp_Idempotent runs the bootstrap twice: the second run must not
// recreate the existing venv (exactly one `uv venv` across both runs)
// while still re-syncing dependencies.
func TestRunUp_Idempotent(t *testing.T) {
	root := setupTestProject(t)
	logFile := installStubUV(t, "")

	require.NoError(t, runUp(context.Background(), &upFlags{yes: true, projDir: root}))
	require.NoError(t, runUp(context.Background(), &upFlags{yes: true, projDir: root}))

	calls := readCalls(t, logFile)
	assert.Len(t, callsWith(calls, "venv"), 1, "an existing venv must never be recreated")
	assert.Len(t, callsWith(calls, "sync"), 2, "sync runs on every invocation")
	assert.Len(t, callsWith(calls, "pip"), 2, "editable install runs on every invocation")
}

// TestRunUp_DeclinedManagerInstall verifies the declined-consent contract:
// with uv absent and the operator answering no, the command exits with
// code 1 and guidance, and mutates nothing.
func TestRunUp_DeclinedManagerInstall(t *testing.T) {
	root := setupTestProject(t)
	hideUV(t)

	err := runUp(context.Background(), &upFlags{
		projDir: root,
		input:   strings.NewReader("n\n"),
	})
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitGeneralError, cliErr.Code)
	assert.Contains(t, cliErr.Message, "install it manually")

	// No filesystem mutation: the project dir still contains only the
	// manifest.
	entries, readErr := os.ReadDir(root)
	require.NoError(t, readErr)
	require.Len(t, entries, 1)
	assert.Equal(t, project.ManifestName, entries[0].Name())
}

// TestRunUp_DeclinedVenvCreation verifies that declining the venv prompt
// aborts with exit code 1 and does not create the directory.
func TestRunUp_DeclinedVenvCreation(t *testing.T) {
	root := setupTestProject(t)
	installStubUV(t, "")

	err := runUp(context.Background(), &upFlags{
		projDir: root,
		input:   strings.NewReader("n\n"),
	})
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitGeneralError, cliErr.Code)
	assert.Contains(t, cliErr.Message, "declined")

	_, statErr := os.Stat(filepath.Join(root, project.DefaultVenvDir))
	assert.True(t, os.IsNotExist(statErr), "declining must not create the venv")
}

// TestRunUp_FailFast verifies that a failing step halts the flow
// immediately: when sync fails, the editable install never runs and no
// receipt is written.
func TestRunUp_FailFast(t *testing.T) {
	root := setupTestProject(t)
	logFile := installStubUV(t, `if [ "$1" = "sync" ]; then echo "error: resolution failed" >&2; exit 1; fi`)

	err := runUp(context.Background(), &upFlags{yes: true, projDir: root})
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitGeneralError, cliErr.Code)
	assert.Contains(t, cliErr.Message, "uv sync failed")

	calls := readCalls(t, logFile)
	assert.Len(t, callsWith(calls, "sync"), 1)
	assert.Empty(t, callsWith(calls, "pip"), "steps after the failure must not run")

	// No receipt — the environment stays partial.
	cfg, cfgErr := project.LoadConfig(root)
	require.NoError(t, cfgErr)
	assert.Equal(t, model.StatusPartial, project.EnvState(cfg, root))
}

// TestRunUp_SkipsExistingVenvWithoutPrompting verifies that an existing
// venv is used as-is: no prompt is needed even without --yes, and the
// flow proceeds straight to sync and install.
func TestRunUp_SkipsExistingVenvWithoutPrompting(t *testing.T) {
	root := setupTestProject(t)
	logFile := installStubUV(t, "")

	// Pre-create the venv with the fake interpreter the verify step needs.
	binDir := filepath.Join(root, project.DefaultVenvDir, "bin")
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "python"),
		[]byte("#!/bin/sh\necho \"0.0.1\"\n"), 0o755))

	// Empty input: any prompt would hit EOF and take its default, but the
	// point is that no venv prompt fires at all.
	err := runUp(context.Background(), &upFlags{
		projDir: root,
		input:   strings.NewReader(""),
	})
	require.NoError(t, err)

	calls := readCalls(t, logFile)
	assert.Empty(t, callsWith(calls, "venv"), "existing venv must be left alone")
	assert.Len(t, callsWith(calls, "sync"), 1)
	assert.Len(t, callsWith(calls, "pip"), 1)
}

// TestRunUp_NoManifest verifies the missing-manifest exit code.
func TestRunUp_NoManifest(t *testing.T) {
	installStubUV(t, "")

	err := runUp(context.Background(), &upFlags{yes: true, projDir: t.TempDir()})
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitManifestNotFound, cliErr.Code)
}

// TestRunUp_BuildDisabled verifies the config's build toggle: with
// build:false, `uv build` never runs but the rest of the flow completes.
func TestRunUp_BuildDisabled(t *testing.T) {
	root := setupTestProject(t)
	logFile := installStubUV(t, "")

	require.NoError(t, os.WriteFile(filepath.Join(root, project.ConfigName),
		[]byte(`{"build": false}`), 0o644))

	err := runUp(context.Background(), &upFlags{yes: true, projDir: root})
	require.NoError(t, err)

	calls := readCalls(t, logFile)
	assert.Empty(t, callsWith(calls, "build"))
	assert.Len(t, callsWith(calls, "sync"), 1)
}
