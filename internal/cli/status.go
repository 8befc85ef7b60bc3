// Package cli — status.go implements the "stimenv status" command.
//
// Status reports the bootstrap state of the project environment —
// missing, partial, or ready — along with the contents of the bootstrap
// receipt when one exists. It is read-only.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vizlab3d/stimenv/internal/model"
	"github.com/vizlab3d/stimenv/internal/project"
)

// statusFlags holds the flag values for the status command.
type statusFlags struct {
	projDir string // --project: project directory override
}

// NewStatusCommand creates the "status" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewStatusCommand() *cobra.Command {
	flags := &statusFlags{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the environment's bootstrap state",
		Long: `Show the bootstrap state of the project environment.

States:
  missing  no virtual environment directory exists
  partial  the directory exists but no completed bootstrap was recorded
  ready    the environment is fully bootstrapped

For a ready environment, the bootstrap receipt (uv version, package
version, timestamps) is also shown.

Examples:
  stimenv status
  stimenv status --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(flags)
		},
	}

	cmd.Flags().StringVar(&flags.projDir, "project", "", "Project directory (default: nearest pyproject.toml)")

	return cmd
}

// runStatus locates the project, derives the environment state, and
// prints the report.
func runStatus(flags *statusFlags) error {
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

	state := project.EnvState(cfg, projectRoot)

	var receipt *project.Receipt
	if state == model.StatusReady {
		// EnvState already proved the receipt loads; a racing deletion
		// here simply downgrades the report to no receipt.
		receipt, _ = project.LoadReceipt(cfg.VenvPath(projectRoot))
	}

	printStatus(cfg, projectRoot, state, receipt)
	return nil
}

// printStatus outputs the status report in text or JSON format.
func printStatus(cfg *project.Config, projectRoot string, state model.EnvStatus, receipt *project.Receipt) {
	if IsJSONOutput() {
		result := struct {
			Name     string           `json:"name"`
			VenvPath string           `json:"venvPath"`
			Status   string           `json:"status"`
			Receipt  *project.Receipt `json:"receipt,omitempty"`
		}{
			Name:     cfg.Name,
			VenvPath: cfg.VenvPath(projectRoot),
			Status:   state.String(),
			Receipt:  receipt,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Environment %q: %s\n", cfg.Name, state)
	fmt.Printf("  Venv:  %s\n", cfg.VenvPath(projectRoot))

	switch state {
	case model.StatusMissing:
		fmt.Println("\nRun `stimenv up` to create it.")
	case model.StatusPartial:
		fmt.Println("\nNo completed bootstrap recorded. Run `stimenv up` to finish it.")
	case model.StatusReady:
		if receipt != nil {
			fmt.Printf("  uv:        %s\n", receipt.UVVersion)
			if receipt.PackageVersion != "" {
				fmt.Printf("  Package:   %s\n", receipt.PackageVersion)
			}
			fmt.Printf("  Created:   %s\n", receipt.CreatedAt.Local().Format(time.RFC1123))
			fmt.Printf("  Updated:   %s\n", receipt.UpdatedAt.Local().Format(time.RFC1123))
		}
	}
}
