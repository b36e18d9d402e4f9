// Package config loads the workspace configuration for codeatlas from
// .atlas/config.yaml under the workspace root. Every field has a working
// default so a bare workspace needs no config file at all.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the process-wide settings.
type Config struct {
	// PythonBin is the interpreter used for module reloads.
	PythonBin string `yaml:"python_bin"`

	// PipBin is the dependency installer invoked by the deps subresource.
	PipBin string `yaml:"pip_bin"`

	// PytestBin runs the test subresource's test modules.
	PytestBin string `yaml:"pytest_bin"`

	// GitBin performs the coarse undo checkout.
	GitBin string `yaml:"git_bin"`

	// ReloadTimeout bounds a single module re-initialization.
	ReloadTimeout time.Duration `yaml:"reload_timeout"`

	// InstallTimeout bounds a dependency install run.
	InstallTimeout time.Duration `yaml:"install_timeout"`

	// TestTimeout bounds a test run.
	TestTimeout time.Duration `yaml:"test_timeout"`

	// UndoTimeout bounds the version-control checkout.
	UndoTimeout time.Duration `yaml:"undo_timeout"`

	// JournalPath is the sqlite edit journal location, relative to the
	// workspace. Empty disables journaling.
	JournalPath string `yaml:"journal_path"`

	// LogLevel is the zap level name for all categories.
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{
		PythonBin:      "python3",
		PipBin:         "pip3",
		PytestBin:      "pytest",
		GitBin:         "git",
		ReloadTimeout:  15 * time.Second,
		InstallTimeout: 2 * time.Minute,
		TestTimeout:    5 * time.Minute,
		UndoTimeout:    30 * time.Second,
		JournalPath:    filepath.Join(".atlas", "journal.db"),
		LogLevel:       "info",
	}
}

// Load reads .atlas/config.yaml under workspace, applying defaults for any
// missing field. A missing file is not an error.
func Load(workspace string) (Config, error) {
	cfg := Default()
	path := filepath.Join(workspace, ".atlas", "config.yaml")

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.PythonBin == "" {
		return fmt.Errorf("config: python_bin cannot be empty")
	}
	if c.ReloadTimeout <= 0 {
		return fmt.Errorf("config: reload_timeout must be positive")
	}
	return nil
}
