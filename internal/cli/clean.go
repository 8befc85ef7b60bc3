// Package cli — clean.go implements the "stimenv clean" command.
//
// Clean is the only destructive operation in the bootstrap flow: it
// removes the virtual environment directory (and, with --dist, the build
// artifact directory). Because the up command never recreates an existing
// environment, clean is the sanctioned way to start over.
//
// By default the command prompts for confirmation; --force skips the
// prompt. Declining exits with the user-cancelled code rather than a
// generic failure, so scripts can tell "refused" from "broke".
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vizlab3d/stimenv/internal/model"
	"github.com/vizlab3d/stimenv/internal/project"
)

// distDir is the build artifact directory produced by `uv build`.
const distDir = "dist"

// cleanFlags holds the flag values for the clean command.
type cleanFlags struct {
	// force skips the interactive confirmation prompt when true.
	force bool

	// dist also removes the dist/ build artifact directory.
	dist bool

	// projDir overrides project discovery.
	projDir string

	// input and output are the confirmation prompt's streams. They
	// default to os.Stdin/os.Stdout; tests substitute scripted readers
	// and capture buffers.
	input  io.Reader
	output io.Writer
}

// NewCleanCommand creates the "clean" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewCleanCommand() *cobra.Command {
	flags := &cleanFlags{input: os.Stdin, output: os.Stdout}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the virtual environment",
		Long: `Remove the project's virtual environment directory.

With --dist, the dist/ build artifact directory is removed as well.
Unless --force is specified, the command prompts for confirmation.

Examples:
  stimenv clean
  stimenv clean --force
  stimenv clean --dist`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(flags)
		},
	}

	// Register command-specific flags.
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Remove without confirmation")
	cmd.Flags().BoolVar(&flags.dist, "dist", false, "Also remove the dist/ build artifacts")
	cmd.Flags().StringVar(&flags.projDir, "project", "", "Project directory (default: nearest pyproject.toml)")

	return cmd
}

// runClean locates the environment, confirms, and removes it.
func runClean(flags *cleanFlags) error {
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

	venvPath := cfg.VenvPath(projectRoot)
	venvExists := cfg.VenvExists(projectRoot)
	if !venvExists && !flags.dist {
		fmt.Printf("Nothing to remove — no virtual environment at %s\n", venvPath)
		return nil
	}

	// Confirm unless --force. The prompt defaults to no and names only
	// what will actually be deleted: destruction must be an explicit,
	// accurately described choice.
	if !flags.force {
		var question string
		switch {
		case venvExists && flags.dist:
			question = fmt.Sprintf("Remove the virtual environment at %s and the %s/ directory?", venvPath, distDir)
		case venvExists:
			question = fmt.Sprintf("Remove the virtual environment at %s?", venvPath)
		default:
			question = fmt.Sprintf("Remove the %s/ directory?", distDir)
		}
		confirmed, promptErr := promptYesNo(flags.input, flags.output, question, false)
		if promptErr != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to read user input", promptErr)
		}
		if !confirmed {
			return model.NewCLIError(model.ExitUserCancelled, "operation cancelled by user")
		}
	}

	if venvExists {
		VerboseLog("Removing %s...", venvPath)
		if err := os.RemoveAll(venvPath); err != nil {
			return model.WrapCLIError(model.ExitGeneralError,
				fmt.Sprintf("failed to remove %s", venvPath), err)
		}
		fmt.Printf("Removed %s\n", venvPath)
	}

	if flags.dist {
		distPath := filepath.Join(projectRoot, distDir)
		if _, err := os.Stat(distPath); err == nil {
			VerboseLog("Removing %s...", distPath)
			if err := os.RemoveAll(distPath); err != nil {
				return model.WrapCLIError(model.ExitGeneralError,
					fmt.Sprintf("failed to remove %s", distPath), err)
			}
			fmt.Printf("Removed %s\n", distPath)
		}
	}

	return nil
}
