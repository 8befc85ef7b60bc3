package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vizlab3d/stimenv/internal/model"
	"github.com/vizlab3d/stimenv/internal/project"
)

// TestRunClean_DistOnlyPrompt verifies the prompt names only dist/ when
// no virtual environment exists: the question must describe exactly what
// will be deleted.
func TestRunClean_DistOnlyPrompt(t *testing.T) {
	root := setupTestProject(t)
	require.NoError(t, os.Mkdir(filepath.Join(root, distDir), 0o755))

	var out strings.Builder
	err := runClean(&cleanFlags{
		dist:    true,
		projDir: root,
		input:   strings.NewReader("n\n"),
		output:  &out,
	})
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitUserCancelled, cliErr.Code)

	assert.Contains(t, out.String(), "Remove the dist/ directory?")
	assert.NotContains(t, out.String(), "virtual environment")

	// Declining removed nothing.
	_, statErr := os.Stat(filepath.Join(root, distDir))
	assert.NoError(t, statErr)
}

// TestRunClean_VenvPrompt verifies the default prompt names the venv
// path, and that declining leaves it in place.
func TestRunClean_VenvPrompt(t *testing.T) {
	root := setupTestProject(t)
	venvPath := filepath.Join(root, project.DefaultVenvDir)
	require.NoError(t, os.Mkdir(venvPath, 0o755))

	var out strings.Builder
	err := runClean(&cleanFlags{
		projDir: root,
		input:   strings.NewReader("n\n"),
		output:  &out,
	})
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitUserCancelled, cliErr.Code)

	assert.Contains(t, out.String(), venvPath)
	assert.NotContains(t, out.String(), distDir+"/")

	_, statErr := os.Stat(venvPath)
	assert.NoError(t, statErr)
}

// TestRunClean_RemovesVenvAndDist verifies the combined prompt names
// both targets and that confirming removes both.
func TestRunClean_RemovesVenvAndDist(t *testing.T) {
	root := setupTestProject(t)
	venvPath := filepath.Join(root, project.DefaultVenvDir)
	distPath := filepath.Join(root, distDir)
	require.NoError(t, os.Mkdir(venvPath, 0o755))
	require.NoError(t, os.Mkdir(distPath, 0o755))

	var out strings.Builder
	err := runClean(&cleanFlags{
		dist:    true,
		projDir: root,
		input:   strings.NewReader("y\n"),
		output:  &out,
	})
	require.NoError(t, err)

	assert.Contains(t, out.String(), venvPath)
	assert.Contains(t, out.String(), distDir+"/")

	_, statErr := os.Stat(venvPath)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(distPath)
	assert.True(t, os.IsNotExist(statErr))
}

// TestRunClean_NothingToRemove verifies the no-op path: no venv and no
// --dist means no prompt and a clean exit.
func TestRunClean_NothingToRemove(t *testing.T) {
	root := setupTestProject(t)

	err := runClean(&cleanFlags{
		projDir: root,
		input:   strings.NewReader(""),
		output:  &strings.Builder{},
	})
	require.NoError(t, err)
}
