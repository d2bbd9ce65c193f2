package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML configuration shape for foxter. Pointer
// fields distinguish "unset" from zero values so precedence can fall through.
type FileConfig struct {
	Include    *string  `yaml:"include,omitempty"`
	Exclude    *string  `yaml:"exclude,omitempty"`
	Signatures []string `yaml:"signatures,omitempty"`
	BatchSize  *int     `yaml:"batch_size,omitempty"`

	QuarantineDir *string `yaml:"quarantine_dir,omitempty"`
	LogFile       *string `yaml:"log_file,omitempty"`
	LogLevel      *string `yaml:"log_level,omitempty"`
	NoColor       *bool   `yaml:"no_color,omitempty"`
	Notify        *bool   `yaml:"notify,omitempty"`

	// Local port probing
	Ports       []int   `yaml:"ports,omitempty"`
	PortTimeout *string `yaml:"port_timeout,omitempty"`
	PortWorkers *int    `yaml:"port_workers,omitempty"`

	// Process heuristics
	CPUThreshold    *float64 `yaml:"cpu_threshold,omitempty"`
	MemoryThreshold *float64 `yaml:"memory_threshold,omitempty"`
	SuspiciousNames []string `yaml:"suspicious_names,omitempty"`
}

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadLocal searches for a config file in the given directory.
// It supports .foxter.yml/.yaml and foxter.yml/.yaml.
func LoadLocal(dir string) (FileConfig, error) {
	var cfg FileConfig
	for _, name := range []string{".foxter.yml", ".foxter.yaml", "foxter.yml", "foxter.yaml"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return cfg, errors.New("no local config")
}

// GlobalPath returns the global config location: $XDG_CONFIG_HOME/foxter/config.yml,
// falling back to ~/.config.
func GlobalPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return "", errors.New("no config dir")
	}
	return filepath.Join(base, "foxter", "config.yml"), nil
}

// LoadGlobal loads the global config file from XDG base directory or ~/.config.
func LoadGlobal() (FileConfig, error) {
	var cfg FileConfig
	p, err := GlobalPath()
	if err != nil {
		return cfg, err
	}
	if _, err := os.Stat(p); err == nil {
		return LoadFile(p)
	}
	return cfg, errors.New("no global config")
}

// Marshal encodes cfg as YAML, omitting unset fields.
func Marshal(cfg FileConfig) ([]byte, error) {
	return yaml.Marshal(&cfg)
}

// Save writes cfg as YAML to path.
func Save(path string, cfg FileConfig) error {
	b, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// StateDir returns the per-user directory for foxter's log, quarantine,
// last-scan cache and audit history: $XDG_STATE_HOME/foxter, falling back
// to ~/.local/state/foxter.
func StateDir() (string, error) {
	if base := os.Getenv("XDG_STATE_HOME"); base != "" {
		return filepath.Join(base, "foxter"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", errors.New("no state dir")
	}
	return filepath.Join(home, ".local", "state", "foxter"), nil
}

// EnsureStateDir creates the state directory with owner-only permissions.
func EnsureStateDir() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create state dir: %w", err)
	}
	return dir, nil
}

// PortTimeoutOr parses port_timeout, returning def when unset or invalid.
func (fc FileConfig) PortTimeoutOr(def time.Duration) time.Duration {
	if fc.PortTimeout == nil {
		return def
	}
	d, err := time.ParseDuration(*fc.PortTimeout)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
