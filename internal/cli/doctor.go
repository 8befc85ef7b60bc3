// Package cli — doctor.go implements the "stimenv doctor" command.
//
// Doctor is a read-only prerequisite report: it checks everything the
// bootstrap will need and mutates nothing. It exits non-zero when a
// required check fails so CI jobs can gate on it.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vizlab3d/stimenv/internal/docker"
	"github.com/vizlab3d/stimenv/internal/model"
	"github.com/vizlab3d/stimenv/internal/project"
	"github.com/vizlab3d/stimenv/internal/uv"
)

// doctorCheck is the result of a single prerequisite check.
type doctorCheck struct {
	// Name identifies the check (e.g., "uv", "pyproject.toml").
	Name string `json:"name"`

	// OK reports whether the check passed.
	OK bool `json:"ok"`

	// Detail is the version, path, or failure reason.
	Detail string `json:"detail,omitempty"`

	// Required marks checks whose failure fails the command. Docker is
	// informational: it only matters for `stimenv container`.
	Required bool `json:"required"`
}

// doctorFlags holds the flag values for the doctor command.
type doctorFlags struct {
	projDir string // --project: project directory override
}

// NewDoctorCommand creates the "doctor" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewDoctorCommand() *cobra.Command {
	flags := &doctorFlags{}

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check bootstrap prerequisites",
		Long: `Check everything stimenv up needs, without changing anything.

Checks performed:
  - uv is installed and reports a version
  - a pyproject.toml exists at or above the working directory
  - stimenv.jsonc (if present) parses and validates
  - the state of the virtual environment
  - the Docker daemon (informational — only needed for stimenv container)

Exits non-zero when a required check fails.

Examples:
  stimenv doctor
  stimenv doctor --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.projDir, "project", "", "Project directory (default: nearest pyproject.toml)")

	return cmd
}

// runDoctor executes all checks, prints the report, and fails when a
// required check failed.
func runDoctor(ctx context.Context, flags *doctorFlags) error {
	checks := collectChecks(ctx, flags)

	printDoctorReport(checks)

	for _, c := range checks {
		if c.Required && !c.OK {
			return model.NewCLIError(model.ExitGeneralError, "one or more required checks failed")
		}
	}
	return nil
}

// collectChecks runs every check and returns the results in display order.
func collectChecks(ctx context.Context, flags *doctorFlags) []doctorCheck {
	var checks []doctorCheck

	// Check 1: uv presence and version.
	mgr := uv.NewManager()
	if mgr.Installed() {
		version, err := mgr.Version(ctx)
		if err != nil {
			checks = append(checks, doctorCheck{Name: "uv", OK: false, Detail: err.Error(), Required: true})
		} else {
			path, _ := mgr.Path()
			checks = append(checks, doctorCheck{Name: "uv", OK: true, Detail: fmt.Sprintf("%s (%s)", version, path), Required: true})
		}
	} else {
		checks = append(checks, doctorCheck{Name: "uv", OK: false, Detail: "not found on PATH", Required: true})
	}

	// Check 2: project manifest.
	start := flags.projDir
	if start == "" {
		start, _ = os.Getwd()
	}
	projectRoot, err := project.FindProjectRoot(start)
	if err != nil {
		checks = append(checks, doctorCheck{Name: project.ManifestName, OK: false, Detail: err.Error(), Required: true})
		// Without a project root, the remaining project-scoped checks
		// cannot run; Docker is still worth reporting.
		checks = append(checks, dockerCheck(ctx))
		return checks
	}
	checks = append(checks, doctorCheck{Name: project.ManifestName, OK: true, Detail: projectRoot, Required: true})

	// Check 3: project configuration.
	cfg, err := project.LoadConfig(projectRoot)
	if err != nil {
		checks = append(checks, doctorCheck{Name: project.ConfigName, OK: false, Detail: err.Error(), Required: true})
		checks = append(checks, dockerCheck(ctx))
		return checks
	}
	checks = append(checks, doctorCheck{Name: project.ConfigName, OK: true, Detail: fmt.Sprintf("environment %q", cfg.Name), Required: true})

	// Check 4: virtual environment state. Any state passes — doctor
	// verifies prerequisites, not outcomes — but the state is reported.
	state := project.EnvState(cfg, projectRoot)
	checks = append(checks, doctorCheck{
		Name:     "virtual environment",
		OK:       true,
		Detail:   fmt.Sprintf("%s (%s)", state, cfg.VenvPath(projectRoot)),
		Required: false,
	})

	// Check 5: Docker daemon (informational).
	checks = append(checks, dockerCheck(ctx))

	return checks
}

// dockerCheck probes the Docker daemon. Failure is not fatal: Docker is
// only needed for the container subcommand.
func dockerCheck(ctx context.Context) doctorCheck {
	cli, err := docker.NewClient()
	if err != nil {
		return doctorCheck{Name: "docker", OK: false, Detail: "not available (only needed for stimenv container)", Required: false}
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return doctorCheck{Name: "docker", OK: false, Detail: "daemon not responding (only needed for stimenv container)", Required: false}
	}
	return doctorCheck{Name: "docker", OK: true, Detail: "daemon reachable", Required: false}
}

// printDoctorReport outputs the checks in text or JSON format.
func printDoctorReport(checks []doctorCheck) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(checks, "", "  ")
		fmt.Println(string(data))
		return
	}

	for _, c := range checks {
		mark := "ok"
		if !c.OK {
			mark = "FAIL"
			if !c.Required {
				mark = "warn"
			}
		}
		if c.Detail != "" {
			fmt.Printf("  %-4s  %-20s %s\n", mark, c.Name, c.Detail)
		} else {
			fmt.Printf("  %-4s  %s\n", mark, c.Name)
		}
	}
}
