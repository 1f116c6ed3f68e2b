package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/winstrip/internal/desktop"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandGetStatus     CommandType = "GET_STATUS"
	CommandListWindows   CommandType = "LIST_WINDOWS"
	CommandListRegions   CommandType = "LIST_REGIONS"
	CommandReenumerate   CommandType = "REENUMERATE"
	CommandActivate      CommandType = "ACTIVATE"
	CommandToggleCompact CommandType = "TOGGLE_COMPACT"
	CommandFitWindow     CommandType = "FIT_WINDOW"
	CommandGroupRegion   CommandType = "GROUP_REGION"
	CommandReload        CommandType = "RELOAD"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	UptimeSeconds int64  `json:"uptime_seconds"`
	Ticks         uint64 `json:"ticks"`
	SkippedTicks  uint64 `json:"skipped_ticks"`
	LastTick      string `json:"last_tick,omitempty"` // RFC 3339
	PollInterval  string `json:"poll_interval"`
	Windows       int    `json:"windows"`
	Managed       int    `json:"managed"`
	Regions       int    `json:"regions"`
	Foreground    uint64 `json:"foreground,omitempty"`
	ManagerWindow uint64 `json:"manager_window,omitempty"`
	IconsPending  int    `json:"icons_pending"`
}

// WindowInfo is one tracked window as reported by LIST_WINDOWS.
type WindowInfo struct {
	desktop.Window
	Region     int  `json:"region"` // -1 when the window is in no region
	Foreground bool `json:"foreground,omitempty"`
	HasIcon    bool `json:"has_icon,omitempty"`
	IconDenied bool `json:"icon_denied,omitempty"`
}

// WindowsData represents the data returned by LIST_WINDOWS
type WindowsData struct {
	Windows []WindowInfo `json:"windows"`
}

// RegionMember is a window listed in a region, oldest first.
type RegionMember struct {
	Handle uint64 `json:"handle"`
	Title  string `json:"title"`
}

// RegionInfo describes one region of the strip.
type RegionInfo struct {
	Index     int            `json:"index"`
	Bounds    desktop.Rect   `json:"bounds"`
	Members   []RegionMember `json:"members"`
	Frontmost uint64         `json:"frontmost,omitempty"`
}

// RegionsData represents the data returned by LIST_REGIONS
type RegionsData struct {
	Regions []RegionInfo `json:"regions"`
}

// WindowPayload addresses a single window.
type WindowPayload struct {
	Handle uint64 `json:"handle"`
}

// RegionPayload addresses a single region.
type RegionPayload struct {
	Region int `json:"region"`
}

// CompactData is returned by TOGGLE_COMPACT.
type CompactData struct {
	Handle  uint64 `json:"handle"`
	Compact bool   `json:"compact"`
}

// FitData is returned by FIT_WINDOW.
type FitData struct {
	Handle uint64       `json:"handle"`
	Rect   desktop.Rect `json:"rect"`
}

// GroupData is returned by GROUP_REGION.
type GroupData struct {
	Region int      `json:"region"`
	Moved  int      `json:"moved"`
	Failed []uint64 `json:"failed,omitempty"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data any) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
