// receipt.go handles the bootstrap receipt — a small YAML document written
// into the virtual environment directory when a bootstrap completes.
//
// The receipt is the marker that distinguishes a fully bootstrapped
// environment (status "ready") from a bare or half-built venv directory
// (status "partial"). It deliberately lives INSIDE the venv so that
// deleting the environment, by stimenv or by hand, removes the receipt
// with it and the two can never disagree.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vizlab3d/stimenv/internal/model"
)

// ReceiptName is the receipt file name inside the venv directory.
const ReceiptName = "stimenv-receipt.yaml"

// receiptHeader is prepended to the serialized receipt so someone who
// stumbles on the file knows where it came from and that it is generated.
const receiptHeader = "# Generated by stimenv — do not edit.\n" +
	"# Records the last completed bootstrap of this virtual environment.\n"

// Receipt records the outcome of a completed bootstrap run.
type Receipt struct {
	// Name is the environment name from the project config.
	Name string `yaml:"name"`

	// UVVersion is the uv version that performed the bootstrap.
	UVVersion string `yaml:"uvVersion"`

	// Python is the interpreter version requested for the venv, if any.
	Python string `yaml:"python,omitempty"`

	// PackageVersion is the __version__ reported by the installed package.
	PackageVersion string `yaml:"packageVersion,omitempty"`

	// CreatedAt is when the environment was first bootstrapped.
	CreatedAt time.Time `yaml:"createdAt"`

	// UpdatedAt is when the most recent bootstrap completed. Differs from
	// CreatedAt after idempotent re-runs against an existing venv.
	UpdatedAt time.Time `yaml:"updatedAt"`

	// Steps lists the steps the most recent run completed, in order.
	Steps []model.StepRecord `yaml:"steps"`
}

// RecordStep appends a completion record for the given step with the
// current UTC time.
func (r *Receipt) RecordStep(step model.Step) {
	r.Steps = append(r.Steps, model.StepRecord{
		Name:        step,
		CompletedAt: time.Now().UTC(),
	})
}

// WriteReceipt serializes the receipt to YAML and writes it into the venv
// directory. If a previous receipt exists, its CreatedAt is preserved so
// the receipt reflects the environment's true age across re-runs.
func WriteReceipt(venvPath string, receipt *Receipt) error {
	now := time.Now().UTC()
	receipt.UpdatedAt = now

	if prev, err := LoadReceipt(venvPath); err == nil && prev != nil {
		receipt.CreatedAt = prev.CreatedAt
	}
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = now
	}

	data, err := yaml.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("failed to serialize bootstrap receipt: %w", err)
	}

	path := filepath.Join(venvPath, ReceiptName)
	if err := os.WriteFile(path, append([]byte(receiptHeader), data...), 0o644); err != nil {
		return fmt.Errorf("failed to write bootstrap receipt: %w", err)
	}
	return nil
}

// LoadReceipt reads and parses the receipt from the venv directory.
// Returns (nil, nil) when no receipt exists — the caller distinguishes
// "no receipt" (partial environment) from a read/parse failure.
func LoadReceipt(venvPath string) (*Receipt, error) {
	path := filepath.Join(venvPath, ReceiptName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read bootstrap receipt: %w", err)
	}

	receipt := &Receipt{}
	if err := yaml.Unmarshal(data, receipt); err != nil {
		return nil, fmt.Errorf("failed to parse bootstrap receipt at %s: %w", path, err)
	}
	return receipt, nil
}

// EnvState derives the environment status from the filesystem:
//
//	no venv directory            → missing
//	venv directory, no receipt   → partial
//	venv directory with receipt  → ready
//
// A receipt that exists but cannot be parsed counts as partial — the safe
// reading, since a re-run of the (idempotent) bootstrap repairs it.
func EnvState(cfg *Config, projectRoot string) model.EnvStatus {
	if !cfg.VenvExists(projectRoot) {
		return model.StatusMissing
	}
	receipt, err := LoadReceipt(cfg.VenvPath(projectRoot))
	if err != nil || receipt == nil {
		return model.StatusPartial
	}
	return model.StatusReady
}
