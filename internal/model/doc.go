// Package model defines the domain types and value objects for the
// stimenv CLI.
//
// This package contains pure data structures with no external dependencies.
// Environment state (EnvStatus) is derived from the filesystem and the
// bootstrap receipt; container environments (ContainerEnv) are reconstructed
// from Docker container labels at runtime — there are no persistent state
// files beyond the receipt inside the virtual environment directory.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
