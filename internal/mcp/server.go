package mcp

import (
	"context"
	"errors"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winstrip/internal/desktop"
	"github.com/1broseidon/winstrip/internal/ipc"
)

const (
	ServerName    = "winstrip"
	ServerVersion = "0.1.0"
)

// Daemon is the part of the IPC client the tools use.
type Daemon interface {
	GetStatus() (*ipc.StatusData, error)
	ListWindows() ([]ipc.WindowInfo, error)
	ListRegions() ([]ipc.RegionInfo, error)
	Reenumerate() error
	Activate(h desktop.Handle) error
	ToggleCompact(h desktop.Handle) (bool, error)
	FitWindow(h desktop.Handle) (*ipc.FitData, error)
	GroupRegion(region int) (*ipc.GroupData, error)
}

var _ Daemon = (*ipc.Client)(nil)

// Server is the MCP server exposing the running daemon as tools.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
}

// NewServer creates an MCP server that forwards every tool call to daemon.
func NewServer(daemon Daemon) (*Server, error) {
	if daemon == nil {
		return nil, errors.New("mcp: nil daemon client")
	}
	s := &Server{daemon: daemon}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "daemon_status",
		Description: "Report winstrip daemon status: uptime, completed and skipped reconciliation ticks, tracked and manageable window counts, region count and the foreground window handle.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List every window the daemon tracks, ordered by handle. Each entry carries title, rectangle, process, manageability, UI flags and the index of the region it belongs to (-1 for none).",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_regions",
		Description: "List the screen regions left to right with their bounds, member windows (oldest first) and the frontmost member, if any.",
	}, s.handleListRegions)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reenumerate",
		Description: "Forget every tracked window and rediscover them on the next tick. Destroyed events are emitted for all windows first. Use after changing title exclusions or when the window list looks stale.",
	}, s.handleReenumerate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "activate_window",
		Description: "Bring a manageable window to the foreground by handle.",
	}, s.handleActivateWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "toggle_compact",
		Description: "Flip the compact flag of a window. Compact windows are fitted over their title bar; a window inside a region is re-fitted immediately.",
	}, s.handleToggleCompact)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "fit_window",
		Description: "Maximise one window inside the region it belongs to, below the bar. Fails for windows that are not in a region. Returns the requested rectangle.",
	}, s.handleFitWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "group_region",
		Description: "Move every member of a region into the region's bounds below the bar. Returns how many moves succeeded and the handles that failed.",
	}, s.handleGroupRegion)
}
