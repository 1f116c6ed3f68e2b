package mcp

import "github.com/1broseidon/winstrip/internal/ipc"

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct {
	ManageableOnly bool `json:"manageable_only,omitempty" jsonschema:"When true, omit windows that are excluded, hidden or minimized"`
	Region         *int `json:"region,omitempty" jsonschema:"Only return members of this region index"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []ipc.WindowInfo `json:"windows"`
}

// ListRegionsInput is the input for the list_regions tool.
type ListRegionsInput struct{}

// ListRegionsOutput is the output for the list_regions tool.
type ListRegionsOutput struct {
	Regions []ipc.RegionInfo `json:"regions"`
}

// StatusInput is the input for the daemon_status tool.
type StatusInput struct{}

// ReenumerateInput is the input for the reenumerate tool.
type ReenumerateInput struct{}

// ReenumerateOutput is the output for the reenumerate tool.
type ReenumerateOutput struct {
	Cleared bool `json:"cleared"`
}

// ActivateWindowInput is the input for the activate_window tool.
type ActivateWindowInput struct {
	Handle uint64 `json:"handle" jsonschema:"Window handle as reported by list_windows"`
}

// ActivateWindowOutput is the output for the activate_window tool.
type ActivateWindowOutput struct {
	Handle    uint64 `json:"handle"`
	Activated bool   `json:"activated"`
}

// ToggleCompactInput is the input for the toggle_compact tool.
type ToggleCompactInput struct {
	Handle uint64 `json:"handle" jsonschema:"Window handle as reported by list_windows"`
}

// FitWindowInput is the input for the fit_window tool.
type FitWindowInput struct {
	Handle uint64 `json:"handle" jsonschema:"Window handle as reported by list_windows"`
}

// GroupRegionInput is the input for the group_region tool.
type GroupRegionInput struct {
	Region int `json:"region" jsonschema:"Region index (0 is the leftmost region)"`
}
