// Package cli — container.go implements the "stimenv container" command
// group: up, list, and remove.
//
// Containerized bootstrap exists for reproducibility: `stimenv container
// up` runs the same venv/sync/editable-install sequence inside a clean
// Docker image with the project checkout mounted, which catches
// dependencies that only resolve because of host machine state. The
// resulting container is labeled with stimenv.* metadata and kept (in its
// exited state) as the record of the run until removed.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/vizlab3d/stimenv/internal/docker"
	"github.com/vizlab3d/stimenv/internal/model"
	"github.com/vizlab3d/stimenv/internal/project"
)

// NewContainerCommand creates the "container" parent command and its
// subcommands. It is called from NewRootCommand.
func NewContainerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "container",
		Short: "Run and manage containerized bootstrap environments",
		Long: `Run the bootstrap inside a Docker container, and manage the results.

A containerized bootstrap proves the project's environment reproduces on
a clean machine image: the project checkout is mounted into the container
and the full uv sync + editable install runs against a frozen lockfile.

Subcommands:
  up      run the bootstrap in a new labeled container
  list    list containerized bootstrap environments
  remove  remove a containerized environment`,
	}

	cmd.AddCommand(newContainerUpCommand())
	cmd.AddCommand(newContainerListCommand())
	cmd.AddCommand(newContainerRemoveCommand())

	return cmd
}

// containerUpFlags holds the flag values for "container up".
type containerUpFlags struct {
	image   string // --image: override the bootstrap image
	name    string // --name: override the environment name
	projDir string // --project: project directory override
}

// newContainerUpCommand creates the "container up" cobra command.
func newContainerUpCommand() *cobra.Command {
	flags := &containerUpFlags{}

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Run the bootstrap in a Docker container",
		Long: `Run the bootstrap sequence inside a new Docker container.

The project checkout is mounted at /workspace and the container runs
uv venv, a frozen uv sync, and the editable install to completion. The
container's exit status is the command's exit status.

Examples:
  stimenv container up
  stimenv container up --image ghcr.io/astral-sh/uv:python3.12-bookworm`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runContainerUp(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.image, "image", "", "Docker image to bootstrap in (default: from stimenv.jsonc)")
	cmd.Flags().StringVar(&flags.name, "name", "", "Environment name (default: from stimenv.jsonc)")
	cmd.Flags().StringVar(&flags.projDir, "project", "", "Project directory (default: nearest pyproject.toml)")

	return cmd
}

// runContainerUp orchestrates a containerized bootstrap run.
func runContainerUp(ctx context.Context, flags *containerUpFlags) error {
	// Step 1: Locate the project and load its configuration.
	start := flags.projDir
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
		}
		start = cwd
	}

	projectRoot, err := project.FindProjectRoot(start)
	if err != nil {
		return err
	}

	cfg, err := project.LoadConfig(projectRoot)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "invalid project configuration", err)
	}

	envName := flags.name
	if envName == "" {
		envName = cfg.Name
	}
	if err := model.ValidateName(envName); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "invalid environment name", err)
	}

	image := flags.image
	if image == "" {
		image = cfg.ContainerImage
	}

	// Step 2: Verify the Docker daemon is reachable before creating
	// anything, for a clear error instead of a docker CLI failure.
	cli, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return err
	}
	VerboseLog("Docker daemon reachable")

	// Step 3: Build labels and run the bootstrap container in the
	// foreground. The container name carries a timestamp so repeated
	// runs of the same environment coexist as an audit trail.
	env := &model.ContainerEnv{
		Name:        envName,
		ProjectPath: projectRoot,
		Image:       image,
		CreatedAt:   time.Now().UTC(),
	}
	labels := docker.BuildLabels(env)

	containerName := fmt.Sprintf("stimenv-%s-%d", envName, env.CreatedAt.Unix())
	VerboseLog("Running bootstrap in container %q (image %s)...", containerName, image)

	if err := docker.RunBootstrap(ctx, image, containerName, projectRoot, labels, os.Stdout, os.Stderr); err != nil {
		return err
	}

	env.Status = model.StatusReady
	printContainerUpResult(env, containerName)
	return nil
}

// printContainerUpResult outputs the result in text or JSON format.
func printContainerUpResult(env *model.ContainerEnv, containerName string) {
	if IsJSONOutput() {
		result := struct {
			Name      string `json:"name"`
			Container string `json:"container"`
			Image     string `json:"image"`
			Status    string `json:"status"`
		}{
			Name:      env.Name,
			Container: containerName,
			Image:     env.Image,
			Status:    env.Status.String(),
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Containerized bootstrap of %q succeeded\n", env.Name)
	fmt.Printf("  Container: %s\n", containerName)
	fmt.Printf("  Image:     %s\n", env.Image)
}

// newContainerListCommand creates the "container list" cobra command.
func newContainerListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List containerized bootstrap environments",
		Long: `List all containerized bootstrap environments discovered via
stimenv.* Docker labels, with their status and run count.

Examples:
  stimenv container list
  stimenv container list --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runContainerList(cmd.Context())
		},
	}

	return cmd
}

// runContainerList discovers environments from labels and prints them.
func runContainerList(ctx context.Context) error {
	cli, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	containers, err := docker.ListManagedContainers(ctx, cli)
	if err != nil {
		return err
	}

	groups := docker.GroupContainersByEnv(containers)

	// Sort environment names for deterministic output.
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	envs := make([]*model.ContainerEnv, 0, len(names))
	for _, name := range names {
		env, buildErr := docker.BuildContainerEnv(name, groups[name])
		if buildErr != nil {
			VerboseLog("Skipping environment %q: %v", name, buildErr)
			continue
		}
		envs = append(envs, env)
	}

	if IsJSONOutput() {
		data, _ := json.MarshalIndent(envs, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	if len(envs) == 0 {
		fmt.Println("No containerized bootstrap environments found.")
		return nil
	}

	fmt.Printf("%-20s %-10s %-6s %s\n", "NAME", "STATUS", "RUNS", "IMAGE")
	for _, env := range envs {
		fmt.Printf("%-20s %-10s %-6d %s\n", env.Name, env.Status, len(env.Containers), env.Image)
	}
	return nil
}

// containerRemoveFlags holds the flag values for "container remove".
type containerRemoveFlags struct {
	// force skips the confirmation prompt and kills running containers.
	force bool
}

// newContainerRemoveCommand creates the "container remove" cobra command.
func newContainerRemoveCommand() *cobra.Command {
	flags := &containerRemoveFlags{}

	cmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a containerized bootstrap environment",
		Long: `Remove all containers belonging to a containerized bootstrap environment.

Unless --force is specified, the command prompts for confirmation.

Examples:
  stimenv container remove threedipa
  stimenv container remove --force threedipa`,

		// Exactly one positional argument (environment name) is required.
		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runContainerRemove(cmd.Context(), args[0], flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Remove without confirmation")

	return cmd
}

// runContainerRemove finds the environment's containers and removes them.
func runContainerRemove(ctx context.Context, envName string, flags *containerRemoveFlags) error {
	cli, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	containers, err := docker.ListManagedContainers(ctx, cli)
	if err != nil {
		return err
	}

	group := docker.GroupContainersByEnv(containers)[envName]
	if len(group) == 0 {
		return model.NewCLIError(model.ExitEnvNotFound,
			fmt.Sprintf("no containerized environment named %q", envName))
	}

	if !flags.force {
		confirmed, promptErr := promptYesNo(os.Stdin, os.Stdout,
			fmt.Sprintf("Remove environment %q (%d container(s))?", envName, len(group)), false)
		if promptErr != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to read user input", promptErr)
		}
		if !confirmed {
			return model.NewCLIError(model.ExitUserCancelled, "operation cancelled by user")
		}
	}

	for _, c := range group {
		VerboseLog("Removing container %s...", c.ContainerName)
		if err := docker.RemoveContainer(ctx, cli, c.ContainerID, flags.force); err != nil {
			return err
		}
	}

	fmt.Printf("Removed environment %q (%d container(s))\n", envName, len(group))
	return nil
}
