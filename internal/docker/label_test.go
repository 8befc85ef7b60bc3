package docker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vizlab3d/stimenv/internal/model"
)

// TestBuildLabels verifies the exact label map written to containers,
// including the UTC RFC3339 timestamp format.
func TestBuildLabels(t *testing.T) {
	createdAt := time.Date(2026, 8, 25, 10, 30, 0, 0, time.FixedZone("JST", 9*3600))

	env := &model.ContainerEnv{
		Name:        "threedipa",
		ProjectPath: "/home/user/src/threedipa",
		Image:       "ghcr.io/astral-sh/uv:python3.11-bookworm",
		CreatedAt:   createdAt,
	}

	labels := BuildLabels(env)

	assert.Equal(t, "stimenv", labels[LabelManagedBy])
	assert.Equal(t, "threedipa", labels[LabelName])
	assert.Equal(t, "/home/user/src/threedipa", labels[LabelProjectPath])
	assert.Equal(t, "ghcr.io/astral-sh/uv:python3.11-bookworm", labels[LabelImage])
	// Timestamp is normalized to UTC.
	assert.Equal(t, "2026-08-25T01:30:00Z", labels[LabelCreatedAt])
}

// TestParseLabels_RoundTrip verifies that ParseLabels reconstructs the
// metadata BuildLabels wrote.
func TestParseLabels_RoundTrip(t *testing.T) {
	original := &model.ContainerEnv{
		Name:        "threedipa",
		ProjectPath: "/home/user/src/threedipa",
		Image:       "ghcr.io/astral-sh/uv:python3.11-bookworm",
		CreatedAt:   time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC),
	}

	parsed, err := ParseLabels(BuildLabels(original))
	require.NoError(t, err)

	assert.Equal(t, original.Name, parsed.Name)
	assert.Equal(t, original.ProjectPath, parsed.ProjectPath)
	assert.Equal(t, original.Image, parsed.Image)
	assert.True(t, original.CreatedAt.Equal(parsed.CreatedAt))
}

// TestParseLabels_MissingLabels verifies that all missing labels are
// reported together, not one per call.
func TestParseLabels_MissingLabels(t *testing.T) {
	labels := map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelName:      "threedipa",
	}

	_, err := ParseLabels(labels)
	require.Error(t, err)
	assert.Contains(t, err.Error(), LabelProjectPath)
	assert.Contains(t, err.Error(), LabelImage)
	assert.Contains(t, err.Error(), LabelCreatedAt)
}

// TestParseLabels_WrongManagedBy verifies that containers labeled by
// other tools are rejected even when all keys are present.
func TestParseLabels_WrongManagedBy(t *testing.T) {
	labels := map[string]string{
		LabelManagedBy:   "some-other-tool",
		LabelName:        "threedipa",
		LabelProjectPath: "/home/user/src/threedipa",
		LabelImage:       "python:3.11",
		LabelCreatedAt:   "2026-08-25T01:30:00Z",
	}

	_, err := ParseLabels(labels)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "some-other-tool")
}

// TestParseLabels_BadTimestamp verifies that a malformed created-at
// label is an error rather than a zero time.
func TestParseLabels_BadTimestamp(t *testing.T) {
	labels := map[string]string{
		LabelManagedBy:   ManagedByValue,
		LabelName:        "threedipa",
		LabelProjectPath: "/home/user/src/threedipa",
		LabelImage:       "python:3.11",
		LabelCreatedAt:   "yesterday",
	}

	_, err := ParseLabels(labels)
	require.Error(t, err)
	assert.Contains(t, err.Error(), LabelCreatedAt)
}
