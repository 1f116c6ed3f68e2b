package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// IconWorker configures background icon resolution.
type IconWorker struct {
	Enabled   bool `yaml:"enabled"`
	QueueSize int  `yaml:"queue_size"` // pending requests before new ones are dropped
	IconSize  int  `yaml:"icon_size"`  // edge length in pixels of stored icons
}

// Config holds the effective daemon configuration.
type Config struct {
	// PollInterval is the period between window snapshots.
	PollInterval time.Duration `yaml:"poll_interval"`
	// TickBudget bounds how long one snapshot may take; 0 disables the bound.
	TickBudget time.Duration `yaml:"tick_budget"`

	BarHeight     int   `yaml:"bar_height"`
	RegionWeights []int `yaml:"region_weights"`

	// TitleExclusions are exact window titles that are never managed.
	TitleExclusions []string `yaml:"title_exclusions"`
	// BorderProcesses are process path substrings whose windows get the
	// border adjustment flag on creation.
	BorderProcesses []string `yaml:"border_processes"`

	IconWorker IconWorker `yaml:"icon_worker"`

	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		PollInterval:  250 * time.Millisecond,
		TickBudget:    200 * time.Millisecond,
		BarHeight:     28,
		RegionWeights: []int{1, 2, 1},
		TitleExclusions: []string{
			"Microsoft Text Input Application",
			"Windows indataupplevelse",
			"Program Manager",
			"Flow.Launcher",
		},
		BorderProcesses: []string{
			"chrome",
			"spotify",
			"applicationframehost",
			`editor\unity.exe`,
			"explorer.exe",
			"godot",
		},
		IconWorker: IconWorker{
			Enabled:   true,
			QueueSize: 64,
			IconSize:  32,
		},
		LogLevel: "info",
	}
}

// SlogLevel maps LogLevel to a slog level. Unknown values map to info.
func (c *Config) SlogLevel() slog.Level {
	level, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLogLevel parses debug, info, warn/warning or error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Marshal renders the effective configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// SaveTo validates and writes the configuration to path.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Save writes the configuration to the standard location.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	if c.PollInterval < 10*time.Millisecond {
		return &ValidationError{Path: "poll_interval", Err: fmt.Errorf("poll_interval must be >= 10ms")}
	}
	if c.TickBudget < 0 {
		return &ValidationError{Path: "tick_budget", Err: fmt.Errorf("tick_budget must be >= 0")}
	}
	if c.BarHeight < 0 {
		return &ValidationError{Path: "bar_height", Err: fmt.Errorf("bar_height must be >= 0")}
	}
	if len(c.RegionWeights) == 0 {
		return &ValidationError{Path: "region_weights", Err: fmt.Errorf("region_weights must not be empty")}
	}
	for i, w := range c.RegionWeights {
		if w <= 0 {
			return &ValidationError{Path: "region_weights", Err: fmt.Errorf("region_weights[%d] must be > 0", i)}
		}
	}
	for _, title := range c.TitleExclusions {
		if title == "" {
			return &ValidationError{Path: "title_exclusions", Err: fmt.Errorf("title_exclusions contains an empty title")}
		}
	}
	for _, proc := range c.BorderProcesses {
		if strings.TrimSpace(proc) == "" {
			return &ValidationError{Path: "border_processes", Err: fmt.Errorf("border_processes contains an empty entry")}
		}
	}
	if c.IconWorker.QueueSize < 1 {
		return &ValidationError{Path: "icon_worker.queue_size", Err: fmt.Errorf("queue_size must be >= 1")}
	}
	if c.IconWorker.IconSize < 8 || c.IconWorker.IconSize > 256 {
		return &ValidationError{Path: "icon_worker.icon_size", Err: fmt.Errorf("icon_size must be between 8 and 256")}
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}

	if c.TickBudget > 0 && c.TickBudget > c.PollInterval {
		fmt.Fprintln(os.Stderr, "warning: tick_budget exceeds poll_interval; slow snapshots will delay ticks")
	}
	return nil
}
