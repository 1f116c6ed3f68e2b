package mcp

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/1broseidon/winstrip/internal/desktop"
	"github.com/1broseidon/winstrip/internal/ipc"
)

type fakeDaemon struct {
	windows      []ipc.WindowInfo
	regions      []ipc.RegionInfo
	err          error
	reenumerated int
	activated    []desktop.Handle
	compact      bool
	fitted       []desktop.Handle
	grouped      []int
}

func (f *fakeDaemon) GetStatus() (*ipc.StatusData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ipc.StatusData{Windows: len(f.windows), Regions: len(f.regions)}, nil
}

func (f *fakeDaemon) ListWindows() ([]ipc.WindowInfo, error) {
	return f.windows, f.err
}

func (f *fakeDaemon) ListRegions() ([]ipc.RegionInfo, error) {
	return f.regions, f.err
}

func (f *fakeDaemon) Reenumerate() error {
	if f.err != nil {
		return f.err
	}
	f.reenumerated++
	return nil
}

func (f *fakeDaemon) Activate(h desktop.Handle) error {
	if f.err != nil {
		return f.err
	}
	f.activated = append(f.activated, h)
	return nil
}

func (f *fakeDaemon) ToggleCompact(h desktop.Handle) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.compact = !f.compact
	return f.compact, nil
}

func (f *fakeDaemon) FitWindow(h desktop.Handle) (*ipc.FitData, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.fitted = append(f.fitted, h)
	return &ipc.FitData{Handle: uint64(h), Rect: desktop.Rect{X: 480, Y: 28, Width: 960, Height: 1052}}, nil
}

func (f *fakeDaemon) GroupRegion(region int) (*ipc.GroupData, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.grouped = append(f.grouped, region)
	return &ipc.GroupData{Region: region, Moved: 2}, nil
}

func newTestServer(t *testing.T, d *fakeDaemon) *Server {
	t.Helper()
	s, err := NewServer(d)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func info(h desktop.Handle, manageable bool, region int) ipc.WindowInfo {
	return ipc.WindowInfo{Window: desktop.Window{Handle: h, Manageable: manageable}, Region: region}
}

func TestNewServer_RequiresDaemon(t *testing.T) {
	if _, err := NewServer(nil); err == nil {
		t.Fatalf("expected error for nil daemon")
	}
}

func TestListWindows_Filters(t *testing.T) {
	d := &fakeDaemon{windows: []ipc.WindowInfo{
		info(1, true, 0),
		info(2, false, -1),
		info(3, true, 1),
	}}
	s := newTestServer(t, d)
	region1 := 1

	tests := []struct {
		name string
		in   ListWindowsInput
		want []desktop.Handle
	}{
		{"all", ListWindowsInput{}, []desktop.Handle{1, 2, 3}},
		{"manageable only", ListWindowsInput{ManageableOnly: true}, []desktop.Handle{1, 3}},
		{"region", ListWindowsInput{Region: &region1}, []desktop.Handle{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := s.handleListWindows(context.Background(), nil, tt.in)
			if err != nil {
				t.Fatalf("handleListWindows: %v", err)
			}
			var got []desktop.Handle
			for _, w := range out.Windows {
				got = append(got, w.Handle)
			}
			if !slices.Equal(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListRegions_EmptyIsNotNil(t *testing.T) {
	s := newTestServer(t, &fakeDaemon{})
	_, out, err := s.handleListRegions(context.Background(), nil, ListRegionsInput{})
	if err != nil {
		t.Fatalf("handleListRegions: %v", err)
	}
	if out.Regions == nil {
		t.Fatalf("expected empty, non-nil regions")
	}
}

func TestCommandTools(t *testing.T) {
	d := &fakeDaemon{}
	s := newTestServer(t, d)
	ctx := context.Background()

	if _, out, err := s.handleReenumerate(ctx, nil, ReenumerateInput{}); err != nil || !out.Cleared {
		t.Fatalf("reenumerate = %+v, %v", out, err)
	}
	if d.reenumerated != 1 {
		t.Fatalf("expected one reenumerate, got %d", d.reenumerated)
	}

	if _, out, err := s.handleActivateWindow(ctx, nil, ActivateWindowInput{Handle: 7}); err != nil || !out.Activated {
		t.Fatalf("activate = %+v, %v", out, err)
	}
	if !slices.Equal(d.activated, []desktop.Handle{7}) {
		t.Fatalf("expected window 7 activated, got %v", d.activated)
	}

	if _, out, err := s.handleToggleCompact(ctx, nil, ToggleCompactInput{Handle: 7}); err != nil || !out.Compact {
		t.Fatalf("toggle_compact = %+v, %v", out, err)
	}

	_, fit, err := s.handleFitWindow(ctx, nil, FitWindowInput{Handle: 7})
	if err != nil || fit.Handle != 7 || fit.Rect.X != 480 {
		t.Fatalf("fit_window = %+v, %v", fit, err)
	}
	if !slices.Equal(d.fitted, []desktop.Handle{7}) {
		t.Fatalf("expected window 7 fitted, got %v", d.fitted)
	}

	_, group, err := s.handleGroupRegion(ctx, nil, GroupRegionInput{Region: 2})
	if err != nil || group.Moved != 2 || group.Region != 2 {
		t.Fatalf("group_region = %+v, %v", group, err)
	}
}

func TestTools_InvalidInput(t *testing.T) {
	s := newTestServer(t, &fakeDaemon{})
	ctx := context.Background()

	if _, _, err := s.handleActivateWindow(ctx, nil, ActivateWindowInput{}); err == nil {
		t.Fatalf("expected error for missing handle")
	}
	if _, _, err := s.handleToggleCompact(ctx, nil, ToggleCompactInput{}); err == nil {
		t.Fatalf("expected error for missing handle")
	}
	if _, _, err := s.handleFitWindow(ctx, nil, FitWindowInput{}); err == nil {
		t.Fatalf("expected error for missing handle")
	}
	if _, _, err := s.handleGroupRegion(ctx, nil, GroupRegionInput{Region: -1}); err == nil {
		t.Fatalf("expected error for negative region")
	}
}

func TestTools_PropagateDaemonErrors(t *testing.T) {
	down := errors.New("failed to connect to daemon")
	s := newTestServer(t, &fakeDaemon{err: down})
	ctx := context.Background()

	if _, _, err := s.handleStatus(ctx, nil, StatusInput{}); !errors.Is(err, down) {
		t.Fatalf("status error = %v", err)
	}
	if _, _, err := s.handleListWindows(ctx, nil, ListWindowsInput{}); !errors.Is(err, down) {
		t.Fatalf("list_windows error = %v", err)
	}
	if _, _, err := s.handleFitWindow(ctx, nil, FitWindowInput{Handle: 3}); !errors.Is(err, down) {
		t.Fatalf("fit_window error = %v", err)
	}
	if _, _, err := s.handleGroupRegion(ctx, nil, GroupRegionInput{Region: 0}); !errors.Is(err, down) {
		t.Fatalf("group_region error = %v", err)
	}
}
