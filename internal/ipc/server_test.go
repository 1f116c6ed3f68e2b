package ipc

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/1broseidon/winstrip/internal/desktop"
)

type fakeController struct {
	mu           sync.Mutex
	windows      []WindowInfo
	regions      []RegionInfo
	reenumerated int
	activated    []desktop.Handle
	compact      map[desktop.Handle]bool
	reloadErr    error
}

func (f *fakeController) Status(ctx context.Context) (StatusData, error) {
	return StatusData{Ticks: 7, Windows: len(f.windows), Regions: len(f.regions), PollInterval: "250ms"}, nil
}

func (f *fakeController) Windows(ctx context.Context) ([]WindowInfo, error) {
	return f.windows, nil
}

func (f *fakeController) Regions(ctx context.Context) ([]RegionInfo, error) {
	return f.regions, nil
}

func (f *fakeController) Reenumerate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reenumerated++
	return nil
}

func (f *fakeController) Activate(ctx context.Context, h desktop.Handle) error {
	if h == 404 {
		return errors.New("unknown window: 0x194")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activated = append(f.activated, h)
	return nil
}

func (f *fakeController) ToggleCompact(ctx context.Context, h desktop.Handle) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.compact == nil {
		f.compact = make(map[desktop.Handle]bool)
	}
	f.compact[h] = !f.compact[h]
	return f.compact[h], nil
}

func (f *fakeController) FitWindow(ctx context.Context, h desktop.Handle) (desktop.Rect, error) {
	if h == 404 {
		return desktop.Rect{}, errors.New("window is not in a region: 0x194")
	}
	return desktop.Rect{X: 480, Y: 28, Width: 960, Height: 1052}, nil
}

func (f *fakeController) GroupRegion(ctx context.Context, region int) (GroupData, error) {
	if region < 0 || region >= len(f.regions) {
		return GroupData{}, errors.New("unknown region")
	}
	return GroupData{Region: region, Moved: len(f.regions[region].Members)}, nil
}

func (f *fakeController) Reload(ctx context.Context) error {
	return f.reloadErr
}

func startServer(t *testing.T, ctrl Controller) *Client {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "winstrip.sock")
	srv, err := NewServer(ServerConfig{SocketPath: socket}, ctrl)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return NewClientAt(socket)
}

func TestServer_QueryCommands(t *testing.T) {
	ctrl := &fakeController{
		windows: []WindowInfo{
			{Window: desktop.Window{Handle: 1, Title: "editor", Manageable: true}, Region: 0},
			{Window: desktop.Window{Handle: 2, Title: "hidden"}, Region: -1},
		},
		regions: []RegionInfo{
			{Index: 0, Bounds: desktop.Rect{Width: 480, Height: 1080}, Members: []RegionMember{{Handle: 1, Title: "editor"}}, Frontmost: 1},
			{Index: 1, Bounds: desktop.Rect{X: 480, Width: 960, Height: 1080}},
		},
	}
	client := startServer(t, ctrl)

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Ticks != 7 || status.Windows != 2 || status.Regions != 2 {
		t.Fatalf("unexpected status: %+v", status)
	}

	windows, err := client.ListWindows()
	if err != nil {
		t.Fatalf("ListWindows: %v", err)
	}
	if len(windows) != 2 || windows[0].Handle != 1 || windows[0].Title != "editor" || windows[1].Region != -1 {
		t.Fatalf("unexpected windows: %+v", windows)
	}

	regions, err := client.ListRegions()
	if err != nil {
		t.Fatalf("ListRegions: %v", err)
	}
	if len(regions) != 2 || regions[0].Frontmost != 1 || len(regions[0].Members) != 1 {
		t.Fatalf("unexpected regions: %+v", regions)
	}
	if regions[1].Bounds.X != 480 {
		t.Fatalf("expected region 1 at x=480, got %+v", regions[1].Bounds)
	}
}

func TestServer_Commands(t *testing.T) {
	ctrl := &fakeController{
		regions: []RegionInfo{{Index: 0, Members: []RegionMember{{Handle: 1}, {Handle: 2}}}},
	}
	client := startServer(t, ctrl)

	if err := client.Reenumerate(); err != nil {
		t.Fatalf("Reenumerate: %v", err)
	}
	ctrl.mu.Lock()
	reenumerated, activated := ctrl.reenumerated, ctrl.activated
	ctrl.mu.Unlock()
	if reenumerated != 1 {
		t.Fatalf("expected one reenumerate, got %d", reenumerated)
	}
	if len(activated) != 0 {
		t.Fatalf("expected no activations yet, got %v", activated)
	}

	if err := client.Activate(5); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	ctrl.mu.Lock()
	activated = ctrl.activated
	ctrl.mu.Unlock()
	if len(activated) != 1 || activated[0] != 5 {
		t.Fatalf("expected window 5 activated, got %v", activated)
	}

	compact, err := client.ToggleCompact(5)
	if err != nil || !compact {
		t.Fatalf("ToggleCompact = %v, %v; want true", compact, err)
	}
	compact, err = client.ToggleCompact(5)
	if err != nil || compact {
		t.Fatalf("ToggleCompact = %v, %v; want false", compact, err)
	}

	fit, err := client.FitWindow(5)
	if err != nil {
		t.Fatalf("FitWindow: %v", err)
	}
	if fit.Handle != 5 || fit.Rect != (desktop.Rect{X: 480, Y: 28, Width: 960, Height: 1052}) {
		t.Fatalf("unexpected fit result: %+v", fit)
	}

	group, err := client.GroupRegion(0)
	if err != nil {
		t.Fatalf("GroupRegion: %v", err)
	}
	if group.Moved != 2 {
		t.Fatalf("expected 2 moved, got %+v", group)
	}

	if err := client.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
}

func TestServer_Errors(t *testing.T) {
	ctrl := &fakeController{reloadErr: errors.New("bad yaml")}
	client := startServer(t, ctrl)

	tests := []struct {
		name string
		call func() error
		want string
	}{
		{"unknown window", func() error { return client.Activate(404) }, "unknown window"},
		{"missing handle", func() error { return client.Activate(0) }, "handle is required"},
		{"fit outside regions", func() error { _, err := client.FitWindow(404); return err }, "not in a region"},
		{"fit missing handle", func() error { _, err := client.FitWindow(0); return err }, "handle is required"},
		{"unknown region", func() error { _, err := client.GroupRegion(3); return err }, "unknown region"},
		{"reload failure", client.Reload, "bad yaml"},
		{"unknown command", func() error { return client.call("NOPE", nil, nil) }, "Unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestClient_NoDaemon(t *testing.T) {
	client := NewClientAt(filepath.Join(t.TempDir(), "missing.sock"))
	err := client.Ping()
	if err == nil || !strings.Contains(err.Error(), "is the daemon running?") {
		t.Fatalf("expected connection error, got %v", err)
	}
}
