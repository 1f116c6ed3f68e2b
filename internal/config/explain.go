package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and where
// it came from.
//
// Supported paths:
//
//	poll_interval
//	tick_budget
//	bar_height
//	region_weights
//	title_exclusions
//	border_processes
//	icon_worker.enabled
//	icon_worker.queue_size
//	icon_worker.icon_size
//	log_level
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	switch strings.TrimSpace(path) {
	case "poll_interval":
		return cfg.PollInterval.String(), nil
	case "tick_budget":
		return cfg.TickBudget.String(), nil
	case "bar_height":
		return cfg.BarHeight, nil
	case "region_weights":
		return cfg.RegionWeights, nil
	case "title_exclusions":
		return cfg.TitleExclusions, nil
	case "border_processes":
		return cfg.BorderProcesses, nil
	case "icon_worker":
		return cfg.IconWorker, nil
	case "icon_worker.enabled":
		return cfg.IconWorker.Enabled, nil
	case "icon_worker.queue_size":
		return cfg.IconWorker.QueueSize, nil
	case "icon_worker.icon_size":
		return cfg.IconWorker.IconSize, nil
	case "log_level":
		return cfg.LogLevel, nil
	}
	return nil, fmt.Errorf("unknown path: %s", path)
}
