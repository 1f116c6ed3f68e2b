package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

// RawIconWorker is the icon_worker section as written in a file.
type RawIconWorker struct {
	Enabled   *bool `yaml:"enabled"`
	QueueSize *int  `yaml:"queue_size"`
	IconSize  *int  `yaml:"icon_size"`
}

// RawConfig is one config file before defaults are applied. Nil fields were
// not set in that file.
type RawConfig struct {
	Include         IncludeList    `yaml:"include"`
	PollInterval    *time.Duration `yaml:"poll_interval"`
	TickBudget      *time.Duration `yaml:"tick_budget"`
	BarHeight       *int           `yaml:"bar_height"`
	RegionWeights   []int          `yaml:"region_weights"`
	TitleExclusions []string       `yaml:"title_exclusions"`
	BorderProcesses []string       `yaml:"border_processes"`
	IconWorker      *RawIconWorker `yaml:"icon_worker"`
	LogLevel        *string        `yaml:"log_level"`
}

// merge returns c with every field set in overlay replaced. Lists replace
// rather than append.
func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.PollInterval != nil {
		out.PollInterval = overlay.PollInterval
	}
	if overlay.TickBudget != nil {
		out.TickBudget = overlay.TickBudget
	}
	if overlay.BarHeight != nil {
		out.BarHeight = overlay.BarHeight
	}
	if overlay.RegionWeights != nil {
		out.RegionWeights = overlay.RegionWeights
	}
	if overlay.TitleExclusions != nil {
		out.TitleExclusions = overlay.TitleExclusions
	}
	if overlay.BorderProcesses != nil {
		out.BorderProcesses = overlay.BorderProcesses
	}
	if overlay.IconWorker != nil {
		merged := RawIconWorker{}
		if out.IconWorker != nil {
			merged = *out.IconWorker
		}
		if overlay.IconWorker.Enabled != nil {
			merged.Enabled = overlay.IconWorker.Enabled
		}
		if overlay.IconWorker.QueueSize != nil {
			merged.QueueSize = overlay.IconWorker.QueueSize
		}
		if overlay.IconWorker.IconSize != nil {
			merged.IconSize = overlay.IconWorker.IconSize
		}
		out.IconWorker = &merged
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}

	return out
}
