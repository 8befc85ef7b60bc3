// container.go implements container lifecycle operations for containerized
// bootstrap runs: launching a one-shot bootstrap container, discovering
// existing ones via labels, and removing them.
//
// A bootstrap container is deliberately one-shot: it mounts the project
// checkout, runs the uv bootstrap sequence to completion, and exits. The
// exited container is kept (with its labels) as the record that the run
// happened, until removed with `stimenv container remove`.
package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"

	// types.Container is the struct returned by ContainerList.
	"github.com/docker/docker/api/types"

	// container provides the list/remove option structs.
	"github.com/docker/docker/api/types/container"

	// filters builds the label filter for server-side container queries.
	"github.com/docker/docker/api/types/filters"

	"github.com/vizlab3d/stimenv/internal/model"
)

// containerWorkdir is the mount point of the project checkout inside
// a bootstrap container.
const containerWorkdir = "/workspace"

// bootstrapCommand is the command executed inside a bootstrap container.
// It mirrors the host bootstrap flow minus the interactive steps: the
// image already ships uv, and the sync is frozen for reproducibility.
const bootstrapCommand = "uv venv .venv && uv sync --frozen && uv pip install -e . --python .venv/bin/python"

// ListManagedContainers queries the Docker daemon for all containers with
// the "stimenv.managed-by=stimenv" label, including exited ones —
// a finished bootstrap container is still a tracked environment.
//
// Filtering happens server-side via the Docker API, which is cheaper than
// listing everything and filtering in Go.
func ListManagedContainers(ctx context.Context, cli *Client) ([]model.ContainerInfo, error) {
	filterArgs := filters.NewArgs(
		filters.Arg("label", LabelManagedBy+"="+ManagedByValue),
	)

	containers, err := cli.Inner().ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	// Convert Docker API structs to domain ContainerInfo so the rest of
	// the application stays decoupled from the SDK types.
	result := make([]model.ContainerInfo, 0, len(containers))
	for _, c := range containers {
		result = append(result, containerToInfo(c))
	}

	return result, nil
}

// containerToInfo converts a Docker API Container struct to the domain
// ContainerInfo. Pure mapping, no side effects.
func containerToInfo(c types.Container) model.ContainerInfo {
	// Docker returns names as a slice with a leading "/" that is an API
	// artifact, not meaningful to users.
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}

	return model.ContainerInfo{
		ContainerID:   c.ID,
		ContainerName: name,
		Status:        c.State,
		// c.Status is the human-readable line ("Exited (1) 5 minutes
		// ago") — the only place the API surfaces the exit code in a
		// list response.
		StatusDetail: c.Status,
		Labels:       c.Labels,
	}
}

// GroupContainersByEnv groups containers by their "stimenv.name" label.
// Containers without the label are skipped; they cannot be attributed to
// any environment (and should not occur, since ListManagedContainers
// already filters on the management label).
func GroupContainersByEnv(containers []model.ContainerInfo) map[string][]model.ContainerInfo {
	groups := make(map[string][]model.ContainerInfo)

	for _, c := range containers {
		envName, ok := c.Labels[LabelName]
		if !ok || envName == "" {
			continue
		}
		groups[envName] = append(groups[envName], c)
	}

	return groups
}

// BuildContainerEnv constructs a ContainerEnv domain object from the
// containers that belong to one environment, using the first container's
// labels for the metadata (all containers of an environment carry
// identical stimenv labels).
//
// The aggregate status is:
//  1. Orphaned — the project path no longer exists on disk
//  2. Ready — at least one container completed the bootstrap (exited 0
//     or still running)
//  3. Partial — otherwise
func BuildContainerEnv(envName string, containers []model.ContainerInfo) (*model.ContainerEnv, error) {
	if len(containers) == 0 {
		return nil, fmt.Errorf("cannot build environment %q: no containers provided", envName)
	}

	env, err := ParseLabels(containers[0].Labels)
	if err != nil {
		return nil, fmt.Errorf("failed to parse labels for environment %q: %w", envName, err)
	}

	env.Containers = containers
	env.Status = determineStatus(containers, env.ProjectPath)

	return env, nil
}

// exitedCodeRegex extracts the exit code from Docker's human-readable
// status line, e.g. "Exited (1) 5 minutes ago".
var exitedCodeRegex = regexp.MustCompile(`^Exited \((\d+)\)`)

// determineStatus calculates the aggregate status of a container
// environment from its containers' states and the project path.
//
// Docker's State field says only "exited", not how: the exit code has to
// be parsed from the status line. A non-zero exit means the bootstrap
// failed, so such a run counts as partial, not ready.
func determineStatus(containers []model.ContainerInfo, projectPath string) model.EnvStatus {
	// A deleted project checkout orphans the environment — the mount
	// source is gone, so the container can never be re-run meaningfully.
	if _, err := os.Stat(projectPath); os.IsNotExist(err) {
		return model.StatusOrphaned
	}

	for _, c := range containers {
		if bootstrapSucceeded(c) {
			return model.StatusReady
		}
	}

	return model.StatusPartial
}

// bootstrapSucceeded reports whether a container represents a completed
// (exit 0) or still running bootstrap run.
func bootstrapSucceeded(c model.ContainerInfo) bool {
	if c.Status == "running" {
		return true
	}
	if c.Status != "exited" {
		return false
	}
	m := exitedCodeRegex.FindStringSubmatch(c.StatusDetail)
	return m != nil && m[1] == "0"
}

// RunBootstrap executes the bootstrap inside a new container. It runs
// `docker run` in the foreground (not detached) so the operator watches
// the same build/sync output a host bootstrap would show, and the exit
// status of the container becomes the exit status of the step.
//
// The project checkout is bind-mounted at /workspace. An anonymous
// volume is overlaid on /workspace/.venv so the container builds its own
// virtual environment without touching a host venv at the same path;
// the source tree itself stays shared.
//
// os/exec is used rather than the SDK's ContainerCreate/Attach workflow:
// attaching streams and propagating TTY signals through the SDK adds
// complexity with no behavioral gain over the docker CLI.
func RunBootstrap(ctx context.Context, image, containerName, projectPath string, labels map[string]string, stdout, stderr io.Writer) error {
	args := []string{"run", "--name", containerName}

	for k, v := range labels {
		args = append(args, "--label", k+"="+v)
	}

	args = append(args,
		"-v", projectPath+":"+containerWorkdir,
		// Anonymous volume shadows the host .venv so the container builds
		// its own environment without clobbering the host's.
		"-v", containerWorkdir+"/.venv",
		"-w", containerWorkdir,
		image,
		"sh", "-c", bootstrapCommand,
	)

	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("containerized bootstrap failed in container %q", containerName),
			err,
		)
	}

	return nil
}

// RemoveContainer removes a container by ID using the Docker SDK.
// When force is true, a running container is killed first; bootstrap
// containers normally exit on their own, so force mainly covers runs
// that hung and were abandoned.
func RemoveContainer(ctx context.Context, cli *Client, containerID string, force bool) error {
	err := cli.Inner().ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force: force,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to remove container %q", containerID),
			err,
		)
	}
	return nil
}
