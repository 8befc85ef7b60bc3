// Package project handles project discovery and the optional stimenv
// configuration file.
//
// A "project" is a directory tree rooted at a pyproject.toml — the
// packaging manifest that uv's build and sync steps consume. The optional
// stimenv.jsonc file next to it tunes the bootstrap (venv directory,
// python version, extras, container image).
//
// stimenv.jsonc is JSONC (JSON with Comments), so this package uses
// github.com/tidwall/jsonc to strip comments before parsing with the
// standard encoding/json library. Commented config is deliberate: the
// file lives in experiment repositories maintained by researchers, and
// inline comments explaining each knob have proven more durable than
// external documentation.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/vizlab3d/stimenv/internal/model"
)

const (
	// ManifestName is the packaging manifest that marks a project root.
	ManifestName = "pyproject.toml"

	// ConfigName is the optional bootstrap configuration file, expected
	// next to the manifest.
	ConfigName = "stimenv.jsonc"

	// DefaultVenvDir is the virtual environment directory used when the
	// config does not override it. Relative to the project root.
	DefaultVenvDir = ".venv"

	// DefaultModule is the import name verified after the editable
	// install when the config does not override it.
	DefaultModule = "threedipa"

	// DefaultContainerImage is the image used for containerized bootstrap
	// runs when the config does not override it. The astral-sh uv images
	// ship uv plus a pinned CPython, which is exactly the toolchain the
	// bootstrap needs.
	DefaultContainerImage = "ghcr.io/astral-sh/uv:python3.11-bookworm"
)

// Config holds the bootstrap configuration for a project. All fields have
// working defaults; a project without a stimenv.jsonc gets DefaultConfig.
type Config struct {
	// Name is the environment name, used for receipts and container
	// labels. Defaults to the project directory's base name.
	Name string `json:"name,omitempty"`

	// VenvDir is the virtual environment directory, relative to the
	// project root. Defaults to ".venv".
	VenvDir string `json:"venvDir,omitempty"`

	// Python is the interpreter version requested when creating the
	// virtual environment (passed to `uv venv --python`). Empty means
	// uv's default resolution.
	Python string `json:"python,omitempty"`

	// Module is the import name checked by the verify step.
	// Defaults to "threedipa".
	Module string `json:"module,omitempty"`

	// Build controls whether `uv build` runs during bootstrap. Building
	// the sdist/wheel is not required for a purely editable workflow,
	// so projects can turn it off. Defaults to true (pointer so that an
	// absent field is distinguishable from an explicit false).
	Build *bool `json:"build,omitempty"`

	// Extras lists dependency extras passed to `uv sync --extra`.
	Extras []string `json:"extras,omitempty"`

	// Frozen makes `uv sync` use the lockfile as-is (--frozen) instead
	// of re-resolving. Containerized runs always sync frozen regardless
	// of this setting.
	Frozen bool `json:"frozen,omitempty"`

	// ContainerImage is the Docker image for `stimenv container up`.
	ContainerImage string `json:"containerImage,omitempty"`
}

// DefaultConfig returns the configuration used when no stimenv.jsonc
// exists. projectRoot supplies the default environment name.
func DefaultConfig(projectRoot string) *Config {
	return &Config{
		Name:           filepath.Base(projectRoot),
		VenvDir:        DefaultVenvDir,
		Module:         DefaultModule,
		ContainerImage: DefaultContainerImage,
	}
}

// BuildEnabled reports whether the build step should run.
// An unset Build field means true.
func (c *Config) BuildEnabled() bool {
	return c.Build == nil || *c.Build
}

// FindProjectRoot walks upward from start looking for a directory that
// contains pyproject.toml, and returns its absolute path.
//
// Walking upward (rather than requiring the operator to cd to the root)
// mirrors how uv and git locate their own roots, so `stimenv up` works
// from anywhere inside the project tree.
//
// Returns a model.CLIError with ExitManifestNotFound when no manifest is
// found before reaching the filesystem root.
func FindProjectRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", start, err)
	}

	for {
		manifest := filepath.Join(dir, ManifestName)
		if info, err := os.Stat(manifest); err == nil && !info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached the filesystem root without finding a manifest.
			return "", model.NewCLIError(model.ExitManifestNotFound,
				fmt.Sprintf("no %s found at or above %s — run stimenv inside the project checkout", ManifestName, start))
		}
		dir = parent
	}
}

// LoadConfig reads the stimenv.jsonc file from the project root, strips
// JSONC comments, parses it, and fills in defaults for absent fields.
//
// A missing config file is not an error: the defaults describe the
// standard threedipa layout. A malformed config file IS an error — a
// silently ignored typo in venvDir could point the destructive clean
// command at the wrong directory.
func LoadConfig(projectRoot string) (*Config, error) {
	path := filepath.Join(projectRoot, ConfigName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(projectRoot), nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	// Strip JSONC comments (// and /* */) and trailing commas before
	// handing the bytes to encoding/json.
	cleanJSON := jsonc.ToJSON(data)

	cfg := &Config{}
	if err := json.Unmarshal(cleanJSON, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	applyDefaults(cfg, projectRoot)

	if err := model.ValidateName(cfg.Name); err != nil {
		return nil, fmt.Errorf("invalid name in %s: %w", ConfigName, err)
	}
	if filepath.IsAbs(cfg.VenvDir) {
		return nil, fmt.Errorf("venvDir in %s must be relative to the project root, got %q", ConfigName, cfg.VenvDir)
	}

	return cfg, nil
}

// applyDefaults fills in zero-valued fields with their defaults.
func applyDefaults(cfg *Config, projectRoot string) {
	if cfg.Name == "" {
		cfg.Name = filepath.Base(projectRoot)
	}
	if cfg.VenvDir == "" {
		cfg.VenvDir = DefaultVenvDir
	}
	if cfg.Module == "" {
		cfg.Module = DefaultModule
	}
	if cfg.ContainerImage == "" {
		cfg.ContainerImage = DefaultContainerImage
	}
}

// VenvPath returns the absolute path of the project's virtual environment
// directory.
func (c *Config) VenvPath(projectRoot string) string {
	return filepath.Join(projectRoot, c.VenvDir)
}

// VenvExists reports whether the virtual environment directory exists.
// This is the idempotence guard for the bootstrap flow: an existing
// directory is never recreated.
func (c *Config) VenvExists(projectRoot string) bool {
	info, err := os.Stat(c.VenvPath(projectRoot))
	return err == nil && info.IsDir()
}
