// Package config loads wlcheck.yaml, the driver settings shared by the
// CLI and the pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cznic/mathutil"
	"gopkg.in/yaml.v3"
)

// Config represents the top-level wlcheck.yaml configuration.
type Config struct {
	// MaxSteps bounds every run. Zero means DefaultMaxSteps.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// GC controls reclamation of unreachable terms between steps.
	GC GC `yaml:"gc,omitempty"`

	// Color is one of auto, always, never. Defaults to auto.
	Color string `yaml:"color,omitempty"`

	// Journal is a SQLite database path; every run and step is recorded
	// there when set. Relative paths are resolved against the config file.
	Journal string `yaml:"journal,omitempty"`

	// Timeout bounds each case, e.g. "2s". Empty means no limit.
	Timeout string `yaml:"timeout,omitempty"`

	timeout time.Duration
}

// GC mirrors analyzer.GCPolicy.
type GC struct {
	EverySteps  int `yaml:"every_steps,omitempty"`
	AllocBudget int `yaml:"alloc_budget,omitempty"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads and parses a wlcheck.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data, path)
	if err != nil {
		return nil, err
	}
	if cfg.Journal != "" && !filepath.IsAbs(cfg.Journal) {
		cfg.Journal = filepath.Join(filepath.Dir(path), cfg.Journal)
	}
	return cfg, nil
}

// ParseConfig parses wlcheck.yaml content from bytes.
// The path argument is used only for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// FindConfig searches for wlcheck.yaml starting from dir and walking up
// to parent directories. Returns "" and a nil error if none is found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// validate checks the configuration for semantic errors.
func (c *Config) validate(path string) error {
	if c.MaxSteps < 0 {
		return fmt.Errorf("%s: max_steps must not be negative", path)
	}
	if c.GC.EverySteps < 0 || c.GC.AllocBudget < 0 {
		return fmt.Errorf("%s: gc intervals must not be negative", path)
	}
	switch c.Color {
	case "", ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("%s: color must be one of %s, %s, %s, got %q", path, ColorAuto, ColorAlways, ColorNever, c.Color)
	}
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return fmt.Errorf("%s: timeout: %w", path, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s: timeout must be positive", path)
		}
		c.timeout = d
	}
	return nil
}

// setDefaults fills unset fields and clamps the numeric ones.
func (c *Config) setDefaults() {
	if c.MaxSteps == 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	c.MaxSteps = mathutil.Clamp(c.MaxSteps, MinMaxSteps, MaxMaxSteps)
	if c.GC.AllocBudget == 0 && c.GC.EverySteps == 0 {
		c.GC.AllocBudget = DefaultGCAllocBudget
	}
	c.GC.AllocBudget = mathutil.Clamp(c.GC.AllocBudget, 0, MaxGCAllocBudget)
	c.GC.EverySteps = mathutil.Clamp(c.GC.EverySteps, 0, c.MaxSteps)
	if c.Color == "" {
		c.Color = ColorAuto
	}
}

// SetMaxSteps overrides the step limit, applying the same bounds as the file.
func (c *Config) SetMaxSteps(n int) {
	c.MaxSteps = mathutil.Clamp(n, MinMaxSteps, MaxMaxSteps)
}

// TimeoutDuration returns the parsed timeout, zero when unset.
func (c *Config) TimeoutDuration() time.Duration {
	return c.timeout
}
