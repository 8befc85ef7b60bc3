package project

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vizlab3d/stimenv/internal/model"
)

// TestEnvState follows an environment through its lifecycle:
// missing → partial (bare venv dir) → ready (receipt written) →
// missing again after removal.
func TestEnvState(t *testing.T) {
	root := setupTestProject(t)
	cfg := DefaultConfig(root)
	venvPath := cfg.VenvPath(root)

	// No venv directory yet.
	assert.Equal(t, model.StatusMissing, EnvState(cfg, root))

	// A bare directory is a partial environment — no completed
	// bootstrap was recorded.
	require.NoError(t, os.Mkdir(venvPath, 0o755))
	assert.Equal(t, model.StatusPartial, EnvState(cfg, root))

	// Writing a receipt marks it ready.
	receipt := &Receipt{Name: cfg.Name, UVVersion: "0.5.11"}
	receipt.RecordStep(model.StepSync)
	require.NoError(t, WriteReceipt(venvPath, receipt))
	assert.Equal(t, model.StatusReady, EnvState(cfg, root))

	// Removing the venv takes it back to missing, receipt and all.
	require.NoError(t, os.RemoveAll(venvPath))
	assert.Equal(t, model.StatusMissing, EnvState(cfg, root))
}

// TestEnvState_CorruptReceipt verifies that an unparseable receipt is
// treated as partial — the safe reading, since re-running the bootstrap
// repairs it.
func TestEnvState_CorruptReceipt(t *testing.T) {
	root := setupTestProject(t)
	cfg := DefaultConfig(root)
	venvPath := cfg.VenvPath(root)

	require.NoError(t, os.Mkdir(venvPath, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(venvPath, ReceiptName), []byte("{{not yaml"), 0o644))

	assert.Equal(t, model.StatusPartial, EnvState(cfg, root))
}

// TestWriteReceipt_PreservesCreatedAt verifies that re-running the
// bootstrap updates UpdatedAt but keeps the original CreatedAt, so the
// receipt reflects the environment's true age.
func TestWriteReceipt_PreservesCreatedAt(t *testing.T) {
	root := setupTestProject(t)
	venvPath := filepath.Join(root, DefaultVenvDir)
	require.NoError(t, os.Mkdir(venvPath, 0o755))

	first := &Receipt{Name: "threedipa", UVVersion: "0.5.10"}
	require.NoError(t, WriteReceipt(venvPath, first))

	loaded, err := LoadReceipt(venvPath)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	createdAt := loaded.CreatedAt
	require.False(t, createdAt.IsZero())

	// Second bootstrap run, a bit later, with a newer uv.
	time.Sleep(10 * time.Millisecond)
	second := &Receipt{Name: "threedipa", UVVersion: "0.5.11", PackageVersion: "0.0.1"}
	require.NoError(t, WriteReceipt(venvPath, second))

	loaded, err = LoadReceipt(venvPath)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, createdAt, loaded.CreatedAt, "CreatedAt should survive re-runs")
	assert.True(t, loaded.UpdatedAt.After(createdAt) || loaded.UpdatedAt.Equal(createdAt))
	assert.Equal(t, "0.5.11", loaded.UVVersion)
	assert.Equal(t, "0.0.1", loaded.PackageVersion)
}

// TestLoadReceipt_Absent verifies the (nil, nil) contract for a venv
// without a receipt.
func TestLoadReceipt_Absent(t *testing.T) {
	venvPath := t.TempDir()

	receipt, err := LoadReceipt(venvPath)
	require.NoError(t, err)
	assert.Nil(t, receipt)
}

// TestRecordStep verifies step records accumulate in order with UTC
// timestamps.
func TestRecordStep(t *testing.T) {
	receipt := &Receipt{Name: "threedipa"}
	receipt.RecordStep(model.StepManager)
	receipt.RecordStep(model.StepVenv)
	receipt.RecordStep(model.StepSync)

	require.Len(t, receipt.Steps, 3)
	assert.Equal(t, model.StepManager, receipt.Steps[0].Name)
	assert.Equal(t, model.StepVenv, receipt.Steps[1].Name)
	assert.Equal(t, model.StepSync, receipt.Steps[2].Name)
	for _, step := range receipt.Steps {
		assert.Equal(t, time.UTC, step.CompletedAt.Location())
	}
}
