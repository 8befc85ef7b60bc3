// Package cli — up.go implements the "stimenv up" command.
//
// The up command is the primary user-facing operation: it idempotently
// prepares the development environment end to end.
//
// Orchestration steps:
//  1. Locate the project root (pyproject.toml) and load stimenv.jsonc
//  2. Verify uv is installed, offering to install it when absent
//  3. Create the virtual environment if absent (never recreate)
//  4. Build the package (uv build, unless disabled in config)
//  5. Sync dependencies (uv sync)
//  6. Install the package in editable mode (uv pip install -e .)
//  7. Verify the package imports and report its version
//  8. Write the bootstrap receipt and print activation guidance
//
// The flow is strictly linear and fail-fast: the first failing step
// aborts the invocation. Declining either consent prompt (uv install,
// venv creation) aborts with exit code 1 and a manual-alternative
// message — that is the documented contract of the shell scripts this
// command replaces.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vizlab3d/stimenv/internal/model"
	"github.com/vizlab3d/stimenv/internal/project"
	"github.com/vizlab3d/stimenv/internal/uv"
)

// upFlags holds the flag values for the up command.
// These are bound to cobra flags in NewUpCommand.
type upFlags struct {
	yes     bool   // --yes: answer yes to all prompts (non-interactive)
	projDir string // --project: project directory (default: walk up from cwd)
	python  string // --python: interpreter version override for venv creation

	// input is where consent prompts read from. Defaults to os.Stdin;
	// tests substitute a scripted reader.
	input io.Reader
}

// NewUpCommand creates the "up" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewUpCommand() *cobra.Command {
	flags := &upFlags{input: os.Stdin}

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Bootstrap the development environment",
		Long: `Prepare the development environment for the project.

The command automatically:
  - Verifies the uv environment manager is installed (offering to
    install it when absent)
  - Creates the project virtual environment if it does not exist
  - Builds the package and syncs its dependencies
  - Installs the package in editable mode, so local edits take
    effect without reinstalling

Re-running up on an existing environment is safe: the virtual
environment is never destructively recreated, and dependency sync
and the editable install simply bring it up to date.

Examples:
  stimenv up
  stimenv up --yes
  stimenv up --python 3.11
  stimenv up --project ~/src/threedipa`,

		// No positional arguments; the project is found from the working
		// directory or the --project flag.
		Args: cobra.NoArgs,

		// RunE is used instead of Run so we can return errors. Cobra
		// passes them to the Execute error handler in root.go.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd.Context(), flags)
		},
	}

	// Register command-specific flags.
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Answer yes to all prompts")
	cmd.Flags().StringVar(&flags.projDir, "project", "", "Project directory (default: nearest pyproject.toml)")
	cmd.Flags().StringVar(&flags.python, "python", "", "Python version for the virtual environment (default: from stimenv.jsonc)")

	return cmd
}

// runUp is the main orchestration function for the up command.
func runUp(ctx context.Context, flags *upFlags) error {
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
		return err // FindProjectRoot already returns a CLIError
	}
	VerboseLog("Project root: %s", projectRoot)

	cfg, err := project.LoadConfig(projectRoot)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "invalid project configuration", err)
	}
	python := flags.python
	if python == "" {
		python = cfg.Python
	}
	VerboseLog("Environment name: %s (venv: %s)", cfg.Name, cfg.VenvDir)

	// Step 2: Verify the environment manager, offering to install it.
	mgr := uv.NewManager()
	if err := ensureManager(ctx, mgr, flags); err != nil {
		return err
	}

	uvVersion, err := mgr.Version(ctx)
	if err != nil {
		return err
	}
	VerboseLog("Using uv %s", uvVersion)

	receipt := &project.Receipt{
		Name:      cfg.Name,
		UVVersion: uvVersion,
		Python:    python,
	}
	receipt.RecordStep(model.StepManager)

	// Step 3: Create the virtual environment if absent.
	// An existing directory is never recreated — re-invocation must be
	// idempotent, and recreation would silently destroy installed state.
	venvPath := cfg.VenvPath(projectRoot)
	if cfg.VenvExists(projectRoot) {
		VerboseLog("Virtual environment already exists at %s — skipping creation", venvPath)
	} else {
		if !flags.yes {
			ok, promptErr := promptYesNo(flags.input, os.Stdout,
				fmt.Sprintf("Create a virtual environment at %s?", venvPath), true)
			if promptErr != nil {
				return model.WrapCLIError(model.ExitGeneralError, "failed to read user input", promptErr)
			}
			if !ok {
				return model.NewCLIError(model.ExitGeneralError,
					fmt.Sprintf("environment creation declined — create it manually with `uv venv %s` and re-run stimenv up", cfg.VenvDir))
			}
		}

		VerboseLog("Creating virtual environment at %s...", venvPath)
		if err := mgr.CreateVenv(ctx, projectRoot, cfg.VenvDir, python); err != nil {
			return err
		}
	}
	receipt.RecordStep(model.StepVenv)

	// Step 4: Build the package (optional).
	if cfg.BuildEnabled() {
		VerboseLog("Building package...")
		if err := mgr.Build(ctx, projectRoot); err != nil {
			return err
		}
		receipt.RecordStep(model.StepBuild)
	} else {
		VerboseLog("Build step disabled in %s — skipping", project.ConfigName)
	}

	// Step 5: Sync dependencies.
	VerboseLog("Syncing dependencies...")
	if err := mgr.Sync(ctx, projectRoot, cfg.Extras, cfg.Frozen); err != nil {
		return err
	}
	receipt.RecordStep(model.StepSync)

	// Step 6: Editable install.
	VerboseLog("Installing %s in editable mode...", cfg.Module)
	if err := mgr.InstallEditable(ctx, projectRoot, cfg.VenvDir); err != nil {
		return err
	}
	receipt.RecordStep(model.StepEditable)

	// Step 7: Verify the installed package imports.
	pkgVersion, err := mgr.ImportVersion(ctx, projectRoot, cfg.VenvDir, cfg.Module)
	if err != nil {
		return err
	}
	receipt.PackageVersion = pkgVersion
	receipt.RecordStep(model.StepVerify)
	VerboseLog("Verified %s %s", cfg.Module, pkgVersion)

	// Step 8: Write the receipt and report.
	if err := project.WriteReceipt(venvPath, receipt); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to write bootstrap receipt", err)
	}

	printUpResult(cfg, venvPath, uvVersion, pkgVersion)
	return nil
}

// ensureManager checks that uv is installed and, when it is not, asks the
// operator for consent to run the official installer. Declining aborts
// with exit code 1 and instructions for installing manually.
func ensureManager(ctx context.Context, mgr *uv.Manager, flags *upFlags) error {
	if mgr.Installed() {
		return nil
	}

	if !flags.yes {
		ok, err := promptYesNo(flags.input, os.Stdout,
			"uv is not installed. Download and run the official installer?", false)
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to read user input", err)
		}
		if !ok {
			return model.NewCLIError(model.ExitGeneralError,
				"uv is required — install it manually (https://docs.astral.sh/uv/getting-started/installation/) and re-run stimenv up")
		}
	}

	VerboseLog("Installing uv...")
	if err := mgr.InstallSelf(ctx); err != nil {
		return err
	}
	return nil
}

// printUpResult outputs the up command results in text or JSON format.
func printUpResult(cfg *project.Config, venvPath, uvVersion, pkgVersion string) {
	if IsJSONOutput() {
		result := struct {
			Name           string `json:"name"`
			VenvPath       string `json:"venvPath"`
			UVVersion      string `json:"uvVersion"`
			Module         string `json:"module"`
			PackageVersion string `json:"packageVersion"`
			Status         string `json:"status"`
		}{
			Name:           cfg.Name,
			VenvPath:       venvPath,
			UVVersion:      uvVersion,
			Module:         cfg.Module,
			PackageVersion: pkgVersion,
			Status:         model.StatusReady.String(),
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Environment %q is ready\n", cfg.Name)
	fmt.Printf("  Venv:      %s\n", venvPath)
	fmt.Printf("  uv:        %s\n", uvVersion)
	fmt.Printf("  Package:   %s %s (editable)\n", cfg.Module, pkgVersion)
	fmt.Println()
	fmt.Printf("Activate it with:\n  %s\n", uv.ActivateHint(cfg.VenvDir))
}
