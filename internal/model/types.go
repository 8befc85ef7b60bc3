// Package model defines the domain types for the stimenv CLI.
//
// All entities in this package are transient representations derived from
// ambient state at runtime: the filesystem (virtual environment directory,
// bootstrap receipt) and Docker container labels (for containerized
// bootstrap runs). There is no state database.
package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// EnvStatus represents the bootstrap state of a project environment.
// The state transitions are:
//
//	missing → partial → ready
//	ready → missing (via clean)
//
// A container environment can additionally become orphaned when the
// project directory it was created from no longer exists.
type EnvStatus string

const (
	// StatusMissing indicates no virtual environment directory exists.
	StatusMissing EnvStatus = "missing"

	// StatusPartial indicates the virtual environment directory exists but
	// no bootstrap receipt was found — a bootstrap was interrupted before
	// completing, or the directory was created by hand.
	StatusPartial EnvStatus = "partial"

	// StatusReady indicates the environment is fully bootstrapped:
	// dependencies synced, package installed in editable mode, and the
	// receipt written.
	StatusReady EnvStatus = "ready"

	// StatusOrphaned indicates a container environment whose project
	// directory no longer exists on disk. This typically happens when a
	// user deletes the project checkout without removing the container.
	StatusOrphaned EnvStatus = "orphaned"
)

// String returns the string representation of EnvStatus.
// This method satisfies the fmt.Stringer interface, enabling
// human-readable output in CLI commands.
func (s EnvStatus) String() string {
	return string(s)
}

// IsValid checks whether the EnvStatus value is one of the
// predefined valid states.
func (s EnvStatus) IsValid() bool {
	switch s {
	case StatusMissing, StatusPartial, StatusReady, StatusOrphaned:
		return true
	default:
		return false
	}
}

// ParseEnvStatus converts a string to an EnvStatus.
// Returns an error if the string does not match any valid status.
func ParseEnvStatus(s string) (EnvStatus, error) {
	status := EnvStatus(strings.ToLower(s))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid environment status: %q (valid: missing, partial, ready, orphaned)", s)
	}
	return status, nil
}

// Step identifies a single stage of the bootstrap flow. The flow is
// strictly linear: each step must succeed before the next one runs,
// and any failure aborts the invocation.
type Step string

const (
	// StepManager verifies (or installs) the uv environment manager.
	StepManager Step = "manager"

	// StepVenv creates the project virtual environment if absent.
	StepVenv Step = "venv"

	// StepBuild builds the package distribution (`uv build`).
	StepBuild Step = "build"

	// StepSync resolves and installs project dependencies (`uv sync`).
	StepSync Step = "sync"

	// StepEditable installs the package in editable/development mode
	// (`uv pip install -e .`), so local edits take effect without
	// reinstalling.
	StepEditable Step = "editable-install"

	// StepVerify imports the package inside the venv and reads its
	// __version__ attribute.
	StepVerify Step = "verify"
)

// String returns the string representation of Step.
func (s Step) String() string {
	return string(s)
}

// StepRecord captures the completion of a single bootstrap step.
// Records are accumulated into the receipt as each step finishes.
type StepRecord struct {
	// Name is the step identifier.
	Name Step `yaml:"name" json:"name"`

	// CompletedAt is the UTC timestamp when the step finished.
	CompletedAt time.Time `yaml:"completedAt" json:"completedAt"`
}

// ContainerEnv represents a containerized bootstrap environment — a Docker
// container that ran (or is running) the bootstrap flow against a mounted
// project checkout. All fields are reconstructed from Docker container
// labels; there is no external state file.
type ContainerEnv struct {
	// Name is the unique identifier for this environment.
	// Must contain only alphanumeric characters and hyphens.
	Name string `json:"name"`

	// ProjectPath is the absolute path to the project checkout mounted
	// into the container.
	ProjectPath string `json:"projectPath"`

	// Image is the Docker image the bootstrap ran in.
	Image string `json:"image"`

	// Status is the aggregate status of the environment.
	Status EnvStatus `json:"status"`

	// Containers holds the Docker containers belonging to this environment.
	Containers []ContainerInfo `json:"containers,omitempty"`

	// CreatedAt is the timestamp when this environment was created.
	CreatedAt time.Time `json:"createdAt"`
}

// ContainerInfo holds runtime information about a Docker container.
// This data is fetched from the Docker API, not persisted.
type ContainerInfo struct {
	// ContainerID is the Docker container identifier.
	ContainerID string `json:"containerId"`

	// ContainerName is the human-readable Docker container name.
	ContainerName string `json:"containerName"`

	// Status is the Docker container state (e.g., "running", "exited").
	Status string `json:"status"`

	// StatusDetail is Docker's human-readable status line (e.g.,
	// "Exited (1) 5 minutes ago"). Unlike Status, it carries the exit
	// code of an exited container.
	StatusDetail string `json:"statusDetail,omitempty"`

	// Labels is the full set of Docker labels on the container,
	// including the stimenv.* management labels.
	Labels map[string]string `json:"labels,omitempty"`
}

// nameRegex validates environment names: alphanumeric + hyphens only,
// must start and end with alphanumeric.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*[a-zA-Z0-9]$|^[a-zA-Z0-9]$`)

// ValidateName checks if the given name is a valid environment name.
// Valid names contain only alphanumeric characters and hyphens,
// and must start/end with an alphanumeric character.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("environment name must not be empty")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("invalid environment name %q: must contain only alphanumeric characters and hyphens, and start/end with alphanumeric", name)
	}
	return nil
}

// ExitCode defines standard CLI exit codes. These codes allow scripts and
// CI systems to programmatically determine the outcome of a command.
//
// The bootstrap flow itself (the `up` command) deliberately maps declined
// consent and failing external commands to ExitGeneralError, matching the
// documented contract of the shell scripts it replaces. The more specific
// codes are used by the auxiliary commands.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error. This includes
	// declined consent during bootstrap and any failing external command.
	ExitGeneralError ExitCode = 1

	// ExitManifestNotFound indicates no pyproject.toml was found at or
	// above the working directory.
	ExitManifestNotFound ExitCode = 2

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 3

	// ExitVerifyFailed indicates the package could not be imported from
	// the virtual environment, or has no __version__ attribute.
	ExitVerifyFailed ExitCode = 4

	// ExitEnvNotFound indicates the specified container environment
	// does not exist.
	ExitEnvNotFound ExitCode = 5

	// ExitUserCancelled indicates the user declined a destructive
	// confirmation prompt (clean, container remove).
	ExitUserCancelled ExitCode = 6
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
