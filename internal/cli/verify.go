// Package cli — verify.go implements the "stimenv verify" command.
//
// Verify imports the configured module inside the virtual environment and
// prints its __version__ attribute. It is the same check the up command
// runs as its final step, exposed standalone so operators and CI can
// confirm an environment without re-running the bootstrap.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vizlab3d/stimenv/internal/model"
	"github.com/vizlab3d/stimenv/internal/project"
	"github.com/vizlab3d/stimenv/internal/uv"
)

// verifyFlags holds the flag values for the verify command.
type verifyFlags struct {
	projDir string // --project: project directory override
}

// NewVerifyCommand creates the "verify" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewVerifyCommand() *cobra.Command {
	flags := &verifyFlags{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the installed package imports",
		Long: `Import the package from the virtual environment and print its version.

This runs the venv's own interpreter, so it proves that the editable
install produced an importable package in THIS environment — not
whatever happens to be on the system python path.

Examples:
  stimenv verify
  stimenv verify --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.projDir, "project", "", "Project directory (default: nearest pyproject.toml)")

	return cmd
}

// runVerify locates the project and performs the import check.
func runVerify(ctx context.Context, flags *verifyFlags) error {
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

	if !cfg.VenvExists(projectRoot) {
		return model.NewCLIError(model.ExitVerifyFailed,
			fmt.Sprintf("no virtual environment at %s — run `stimenv up` first", cfg.VenvPath(projectRoot)))
	}

	mgr := uv.NewManager()
	version, err := mgr.ImportVersion(ctx, projectRoot, cfg.VenvDir, cfg.Module)
	if err != nil {
		return err // already a CLIError with ExitVerifyFailed
	}

	if IsJSONOutput() {
		result := struct {
			Module  string `json:"module"`
			Version string `json:"version"`
		}{Module: cfg.Module, Version: version}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("%s %s\n", cfg.Module, version)
	return nil
}
