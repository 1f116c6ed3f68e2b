package config

import (
	"fmt"
	"slices"
)

// ValidationError is a config error tied to a YAML path and, when known, the
// file position that set it.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildEffectiveConfig applies raw on top of DefaultConfig.
func BuildEffectiveConfig(raw RawConfig) *Config {
	cfg := DefaultConfig()

	if raw.PollInterval != nil {
		cfg.PollInterval = *raw.PollInterval
	}
	if raw.TickBudget != nil {
		cfg.TickBudget = *raw.TickBudget
	}
	if raw.BarHeight != nil {
		cfg.BarHeight = *raw.BarHeight
	}
	if raw.RegionWeights != nil {
		cfg.RegionWeights = slices.Clone(raw.RegionWeights)
	}
	if raw.TitleExclusions != nil {
		cfg.TitleExclusions = slices.Clone(raw.TitleExclusions)
	}
	if raw.BorderProcesses != nil {
		cfg.BorderProcesses = slices.Clone(raw.BorderProcesses)
	}
	if iw := raw.IconWorker; iw != nil {
		if iw.Enabled != nil {
			cfg.IconWorker.Enabled = *iw.Enabled
		}
		if iw.QueueSize != nil {
			cfg.IconWorker.QueueSize = *iw.QueueSize
		}
		if iw.IconSize != nil {
			cfg.IconWorker.IconSize = *iw.IconSize
		}
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}

	return cfg
}
