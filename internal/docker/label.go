package docker

import (
	"fmt"
	"strings"
	"time"

	"github.com/vizlab3d/stimenv/internal/model"
)

// Label key constants define the Docker label keys used to persist
// containerized-bootstrap metadata on containers. Labels are the sole
// persistence mechanism — there is no external state file.
//
// All keys share the "stimenv." prefix to namespace them and avoid
// collisions with labels set by other tools.
const (
	// LabelPrefix is the common prefix for all stimenv labels.
	LabelPrefix = "stimenv."

	// LabelManagedBy identifies containers created by stimenv.
	// This is the primary label used for filtering and discovery.
	// Key: "stimenv.managed-by", Value: always "stimenv".
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelName stores the environment's unique identifier.
	// Key: "stimenv.name", Value: environment name (e.g., "threedipa").
	LabelName = LabelPrefix + "name"

	// LabelProjectPath stores the absolute host path of the project
	// checkout mounted into the container.
	// Key: "stimenv.project-path", Value: absolute path.
	LabelProjectPath = LabelPrefix + "project-path"

	// LabelImage stores the image the bootstrap ran in.
	// Key: "stimenv.image", Value: image reference.
	LabelImage = LabelPrefix + "image"

	// LabelCreatedAt stores the environment creation timestamp.
	// Key: "stimenv.created-at", Value: RFC3339 formatted timestamp.
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the constant value for the LabelManagedBy label.
const ManagedByValue = "stimenv"

// BuildLabels constructs a Docker label map from a ContainerEnv. The
// labels allow full reconstruction of the environment metadata from
// container inspection alone, and stay human-readable under
// `docker inspect`.
func BuildLabels(env *model.ContainerEnv) map[string]string {
	return map[string]string{
		LabelManagedBy:   ManagedByValue,
		LabelName:        env.Name,
		LabelProjectPath: env.ProjectPath,
		LabelImage:       env.Image,
		// RFC3339 in UTC keeps timestamps consistent regardless of the
		// host machine's timezone.
		LabelCreatedAt: env.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ParseLabels reconstructs a ContainerEnv from Docker container labels.
// This is the inverse of BuildLabels, used when listing or inspecting
// containers.
//
// Required labels: managed-by, name, project-path, image, created-at.
// All missing labels are reported together rather than one at a time.
//
// Status and Containers are NOT reconstructed here — they come from
// runtime container state, not from static label values.
func ParseLabels(labels map[string]string) (*model.ContainerEnv, error) {
	requiredKeys := []string{
		LabelManagedBy,
		LabelName,
		LabelProjectPath,
		LabelImage,
		LabelCreatedAt,
	}

	var missing []string
	for _, key := range requiredKeys {
		if _, ok := labels[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required Docker labels: %s", strings.Join(missing, ", "))
	}

	if labels[LabelManagedBy] != ManagedByValue {
		return nil, fmt.Errorf(
			"label %s has unexpected value %q (expected %q)",
			LabelManagedBy, labels[LabelManagedBy], ManagedByValue,
		)
	}

	createdAt, err := time.Parse(time.RFC3339, labels[LabelCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("invalid label %s: %w", LabelCreatedAt, err)
	}

	return &model.ContainerEnv{
		Name:        labels[LabelName],
		ProjectPath: labels[LabelProjectPath],
		Image:       labels[LabelImage],
		CreatedAt:   createdAt,
	}, nil
}
