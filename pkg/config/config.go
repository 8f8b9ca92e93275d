// Package config is the parsed-flags record spec §6 hands the core: fault
// type, cone granularity, justifier policy, SAT backend selection, and the
// conflict-limit abort threshold. It is loadable from YAML
// (gopkg.in/yaml.v3), the way the rest of the retrieval pack's CLI tools
// layer a file-based config under cobra flags rather than the teacher's
// flags-only cmd/main.go.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vlsitest/fanatpg/pkg/dtpg"
	"github.com/vlsitest/fanatpg/pkg/structenc"
	"github.com/vlsitest/fanatpg/pkg/tpgnet"
)

// FaultType selects the activation/propagation condition and encoder
// variant a run targets.
type FaultType string

const (
	StuckAt         FaultType = "stuck-at"
	TransitionDelay FaultType = "transition-delay"
)

// Config is the recognized option set from spec §6's table.
type Config struct {
	FaultType     FaultType `yaml:"fault_type"`
	Cone          string    `yaml:"cone"`     // "ffr" or "mffc"
	Justifier     string    `yaml:"justifier"` // "just1" or "just2"
	SatType       string    `yaml:"sat_type"`
	SatOption     string    `yaml:"sat_option"`
	SatLog        string    `yaml:"sat_log"`
	ConflictLimit int       `yaml:"conflict_limit"`
	InputFormat   string    `yaml:"input_format"` // "blif" or "iscas89"
	MetricsAddr   string    `yaml:"metrics_addr"`
}

// Default returns the configuration the teacher's cmd/main.go effectively
// hard-coded: stuck-at faults, FFR cones, first-hit justification, no SAT
// abort bound.
func Default() Config {
	return Config{
		FaultType:     StuckAt,
		Cone:          "ffr",
		Justifier:     "just1",
		ConflictLimit: 0,
		InputFormat:   "iscas89",
	}
}

// Load reads a YAML config file, starting from Default() so an omitted
// field keeps its default rather than zeroing out.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate rejects any option the core doesn't recognize, the CLI-surface
// counterpart of spec §7's InputError: a typo'd --cone or --justifier value
// must fail before any DTPG begins, not silently fall back to a default.
func (c Config) Validate() error {
	switch c.FaultType {
	case StuckAt, TransitionDelay:
	default:
		return fmt.Errorf("config: unrecognized fault_type %q", c.FaultType)
	}
	switch c.Cone {
	case "ffr", "mffc":
	default:
		return fmt.Errorf("config: unrecognized cone %q (want ffr or mffc)", c.Cone)
	}
	switch c.Justifier {
	case "just1", "just2":
	default:
		return fmt.Errorf("config: unrecognized justifier %q (want just1 or just2)", c.Justifier)
	}
	switch c.InputFormat {
	case "blif", "iscas89":
	default:
		return fmt.Errorf("config: unrecognized input_format %q (want blif or iscas89)", c.InputFormat)
	}
	if c.ConflictLimit < 0 {
		return fmt.Errorf("config: conflict_limit must be >= 0, got %d", c.ConflictLimit)
	}
	return nil
}

// ConeKind translates the config's cone string into structenc's enum.
func (c Config) ConeKind() structenc.ConeKind {
	if c.Cone == "mffc" {
		return structenc.ConeMffc
	}
	return structenc.ConeSimple
}

// FaultKind translates the config's fault_type string into tpgnet's enum,
// the value RepFaultsOfKind needs to pick which fault universe a run targets.
func (c Config) FaultKind() tpgnet.FaultKind {
	if c.FaultType == TransitionDelay {
		return tpgnet.FaultTransition
	}
	return tpgnet.FaultStuckAt
}

// JustifyPolicy translates the config's justifier string into dtpg's enum.
func (c Config) JustifyPolicy() dtpg.JustifyPolicy {
	if c.Justifier == "just2" {
		return dtpg.Just2
	}
	return dtpg.Just1
}
