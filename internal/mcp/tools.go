package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winstrip/internal/desktop"
	"github.com/1broseidon/winstrip/internal/ipc"
)

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ StatusInput) (*mcpsdk.CallToolResult, ipc.StatusData, error) {
	status, err := s.daemon.GetStatus()
	if err != nil {
		return nil, ipc.StatusData{}, err
	}
	return nil, *status, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	windows, err := s.daemon.ListWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}

	out := ListWindowsOutput{Windows: make([]ipc.WindowInfo, 0, len(windows))}
	for _, w := range windows {
		if args.ManageableOnly && !w.Manageable {
			continue
		}
		if args.Region != nil && w.Region != *args.Region {
			continue
		}
		out.Windows = append(out.Windows, w)
	}
	return nil, out, nil
}

func (s *Server) handleListRegions(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListRegionsInput) (*mcpsdk.CallToolResult, ListRegionsOutput, error) {
	regions, err := s.daemon.ListRegions()
	if err != nil {
		return nil, ListRegionsOutput{}, err
	}
	if regions == nil {
		regions = []ipc.RegionInfo{}
	}
	return nil, ListRegionsOutput{Regions: regions}, nil
}

func (s *Server) handleReenumerate(_ context.Context, _ *mcpsdk.CallToolRequest, _ ReenumerateInput) (*mcpsdk.CallToolResult, ReenumerateOutput, error) {
	if err := s.daemon.Reenumerate(); err != nil {
		return nil, ReenumerateOutput{}, err
	}
	return nil, ReenumerateOutput{Cleared: true}, nil
}

func (s *Server) handleActivateWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args ActivateWindowInput) (*mcpsdk.CallToolResult, ActivateWindowOutput, error) {
	if args.Handle == 0 {
		return nil, ActivateWindowOutput{}, fmt.Errorf("handle is required")
	}
	if err := s.daemon.Activate(desktop.Handle(args.Handle)); err != nil {
		return nil, ActivateWindowOutput{}, err
	}
	return nil, ActivateWindowOutput{Handle: args.Handle, Activated: true}, nil
}

func (s *Server) handleToggleCompact(_ context.Context, _ *mcpsdk.CallToolRequest, args ToggleCompactInput) (*mcpsdk.CallToolResult, ipc.CompactData, error) {
	if args.Handle == 0 {
		return nil, ipc.CompactData{}, fmt.Errorf("handle is required")
	}
	compact, err := s.daemon.ToggleCompact(desktop.Handle(args.Handle))
	if err != nil {
		return nil, ipc.CompactData{}, err
	}
	return nil, ipc.CompactData{Handle: args.Handle, Compact: compact}, nil
}

func (s *Server) handleFitWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args FitWindowInput) (*mcpsdk.CallToolResult, ipc.FitData, error) {
	if args.Handle == 0 {
		return nil, ipc.FitData{}, fmt.Errorf("handle is required")
	}
	data, err := s.daemon.FitWindow(desktop.Handle(args.Handle))
	if err != nil {
		return nil, ipc.FitData{}, err
	}
	return nil, *data, nil
}

func (s *Server) handleGroupRegion(_ context.Context, _ *mcpsdk.CallToolRequest, args GroupRegionInput) (*mcpsdk.CallToolResult, ipc.GroupData, error) {
	if args.Region < 0 {
		return nil, ipc.GroupData{}, fmt.Errorf("region must be >= 0, got %d", args.Region)
	}
	data, err := s.daemon.GroupRegion(args.Region)
	if err != nil {
		return nil, ipc.GroupData{}, err
	}
	return nil, *data, nil
}
