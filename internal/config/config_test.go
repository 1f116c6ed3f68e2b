package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.PollInterval != 250*time.Millisecond {
		t.Fatalf("expected poll_interval 250ms, got %v", cfg.PollInterval)
	}
	if !slices.Equal(cfg.RegionWeights, []int{1, 2, 1}) {
		t.Fatalf("expected region_weights [1 2 1], got %v", cfg.RegionWeights)
	}
	if cfg.BarHeight != 28 {
		t.Fatalf("expected bar_height 28, got %d", cfg.BarHeight)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(res.Files) != 0 {
		t.Fatalf("expected no files loaded, got %v", res.Files)
	}
	if res.Config.LogLevel != "info" {
		t.Fatalf("expected default log_level info, got %q", res.Config.LogLevel)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "# empty\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.TickBudget != 200*time.Millisecond {
		t.Fatalf("expected default tick_budget, got %v", res.Config.TickBudget)
	}
}

func TestLoadFromPath_Overrides(t *testing.T) {
	data := strings.Join([]string{
		"poll_interval: 500ms",
		"tick_budget: 0s",
		"bar_height: 40",
		"region_weights: [1, 1]",
		"title_exclusions: [\"Desktop\"]",
		"icon_worker:",
		"  enabled: false",
		"log_level: debug",
		"",
	}, "\n")
	path := writeConfig(t, t.TempDir(), "config.yaml", data)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.PollInterval != 500*time.Millisecond {
		t.Fatalf("expected poll_interval 500ms, got %v", cfg.PollInterval)
	}
	if cfg.TickBudget != 0 {
		t.Fatalf("expected tick_budget 0, got %v", cfg.TickBudget)
	}
	if cfg.BarHeight != 40 {
		t.Fatalf("expected bar_height 40, got %d", cfg.BarHeight)
	}
	if !slices.Equal(cfg.RegionWeights, []int{1, 1}) {
		t.Fatalf("expected region_weights [1 1], got %v", cfg.RegionWeights)
	}
	if !slices.Equal(cfg.TitleExclusions, []string{"Desktop"}) {
		t.Fatalf("expected title_exclusions replaced, got %v", cfg.TitleExclusions)
	}
	if cfg.IconWorker.Enabled {
		t.Fatalf("expected icon_worker.enabled false")
	}
	if cfg.IconWorker.QueueSize != 64 {
		t.Fatalf("expected icon_worker.queue_size default 64, got %d", cfg.IconWorker.QueueSize)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.SlogLevel())
	}
}

func TestLoadFromPath_StrictUnknownKeyErrors(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "unknown_key: 1\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "unknown_key") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
	if !strings.Contains(err.Error(), "config.yaml") {
		t.Fatalf("expected error to include file path, got %v", err)
	}
}

func TestLoadFromPath_ValidationErrorHasSourceContext(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "bar_height: 10\nregion_weights: [1, 0, 1]\n")

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "region_weights" {
		t.Fatalf("expected path region_weights, got %q", verr.Path)
	}
	if verr.Source.Line != 2 {
		t.Fatalf("expected source line 2, got %d", verr.Source.Line)
	}
	if !strings.Contains(err.Error(), "config.yaml:2:") {
		t.Fatalf("expected file:line in error, got %v", err)
	}
}

func TestLoadFromPath_IncludeDirectoryOrderAndMainOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "conf.d/10-a.yaml", "bar_height: 30\nlog_level: warn\n")
	writeConfig(t, dir, "conf.d/20-b.yaml", "bar_height: 32\n")
	path := writeConfig(t, dir, "config.yaml", "include: conf.d\nlog_level: error\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.BarHeight != 32 {
		t.Fatalf("expected later include to win bar_height, got %d", res.Config.BarHeight)
	}
	if res.Config.LogLevel != "error" {
		t.Fatalf("expected main file to override log_level, got %q", res.Config.LogLevel)
	}
	if len(res.Files) != 3 {
		t.Fatalf("expected 3 files loaded, got %v", res.Files)
	}
	if filepath.Base(res.Files[2]) != "config.yaml" {
		t.Fatalf("expected main file last, got %v", res.Files)
	}
}

func TestLoadFromPath_IncludeCycleDetection(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.yaml", "include: b.yaml\n")
	writeConfig(t, dir, "b.yaml", "include: a.yaml\n")

	_, err := LoadFromPath(filepath.Join(dir, "a.yaml"))
	if err == nil || !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected include cycle error, got %v", err)
	}
}

func TestLoadFromPath_IncludeMissingPathHasContext(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "include: missing.yaml\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error for missing include")
	}
	if !strings.Contains(err.Error(), "missing.yaml") || !strings.Contains(err.Error(), ":1:") {
		t.Fatalf("expected include position in error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"poll interval too small", func(c *Config) { c.PollInterval = time.Millisecond }, "poll_interval"},
		{"negative budget", func(c *Config) { c.TickBudget = -1 }, "tick_budget"},
		{"negative bar", func(c *Config) { c.BarHeight = -1 }, "bar_height"},
		{"no weights", func(c *Config) { c.RegionWeights = nil }, "region_weights"},
		{"zero weight", func(c *Config) { c.RegionWeights = []int{1, 0} }, "region_weights"},
		{"empty exclusion", func(c *Config) { c.TitleExclusions = []string{""} }, "title_exclusions"},
		{"blank border process", func(c *Config) { c.BorderProcesses = []string{"  "} }, "border_processes"},
		{"queue size", func(c *Config) { c.IconWorker.QueueSize = 0 }, "icon_worker.queue_size"},
		{"icon size", func(c *Config) { c.IconWorker.IconSize = 1024 }, "icon_worker.icon_size"},
		{"log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("expected path %q, got %q", tt.path, verr.Path)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.RegionWeights = []int{3, 1}
	cfg.PollInterval = time.Second

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !slices.Equal(res.Config.RegionWeights, []int{3, 1}) {
		t.Fatalf("expected weights [3 1], got %v", res.Config.RegionWeights)
	}
	if res.Config.PollInterval != time.Second {
		t.Fatalf("expected poll_interval 1s, got %v", res.Config.PollInterval)
	}
}

func TestExplain(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "bar_height: 30\n")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	val, src, err := Explain(res, "bar_height")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != 30 || src.Kind != SourceFile || src.Line != 1 {
		t.Fatalf("explain bar_height = %#v from %#v", val, src)
	}

	val, src, err = Explain(res, "poll_interval")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != "250ms" || src.Kind != SourceDefault {
		t.Fatalf("explain poll_interval = %#v from %#v", val, src)
	}

	if _, _, err := Explain(res, "nope"); err == nil {
		t.Fatalf("expected error for unknown path")
	}
}
