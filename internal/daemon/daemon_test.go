package daemon

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/winstrip/internal/config"
	"github.com/1broseidon/winstrip/internal/desktop"
	"github.com/1broseidon/winstrip/internal/ipc"
	"github.com/1broseidon/winstrip/internal/platform"
	"github.com/1broseidon/winstrip/internal/tiling"
)

type fakeBackend struct {
	mu         sync.Mutex
	windows    []desktop.Descriptor
	foreground desktop.Handle
	screen     platform.Screen
	moves      map[desktop.Handle]desktop.Rect
	moveErr    map[desktop.Handle]error
	activated  []desktop.Handle
}

func newFakeBackend(windows ...desktop.Descriptor) *fakeBackend {
	return &fakeBackend{
		windows: windows,
		screen: platform.Screen{
			Bounds: desktop.Rect{Width: 1920, Height: 1080},
			Usable: desktop.Rect{Width: 1920, Height: 1080},
		},
		moves:   make(map[desktop.Handle]desktop.Rect),
		moveErr: make(map[desktop.Handle]error),
	}
}

func (b *fakeBackend) Windows(ctx context.Context) ([]desktop.Descriptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.windows), nil
}

func (b *fakeBackend) Foreground(ctx context.Context) (desktop.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.foreground, nil
}

func (b *fakeBackend) Screen(ctx context.Context) (platform.Screen, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.screen, nil
}

func (b *fakeBackend) MoveResize(h desktop.Handle, bounds desktop.Rect) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.moveErr[h]; err != nil {
		return err
	}
	b.moves[h] = bounds
	return nil
}

func (b *fakeBackend) Activate(h desktop.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activated = append(b.activated, h)
	return nil
}

func (b *fakeBackend) Icon(ctx context.Context, w desktop.Window, size int) (image.Image, error) {
	return image.NewNRGBA(image.Rect(0, 0, size, size)), nil
}

func (b *fakeBackend) Close() error { return nil }

func (b *fakeBackend) move(h desktop.Handle) (desktop.Rect, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.moves[h]
	return r, ok
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.PollInterval = 10 * time.Millisecond
	cfg.TickBudget = 0
	cfg.IconWorker.Enabled = false
	return cfg
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func startDaemon(t *testing.T, cfg *config.Config, opts Options) *Daemon {
	t.Helper()
	d, err := New(cfg, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	eventually(t, "regions planned", func() bool {
		status, err := d.Status(context.Background())
		return err == nil && status.Regions == len(cfg.RegionWeights) && status.Ticks > 0
	})
	return d
}

func regionMembers(t *testing.T, d *Daemon) [][]uint64 {
	t.Helper()
	regions, err := d.Regions(context.Background())
	if err != nil {
		t.Fatalf("Regions: %v", err)
	}
	out := make([][]uint64, len(regions))
	for i, r := range regions {
		for _, m := range r.Members {
			out[i] = append(out[i], m.Handle)
		}
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, Options{Backend: newFakeBackend()}); err == nil {
		t.Fatalf("expected error for nil config")
	}
	if _, err := New(testConfig(), Options{}); err == nil {
		t.Fatalf("expected error for nil backend")
	}
}

func TestDaemon_LayoutAndQueries(t *testing.T) {
	backend := newFakeBackend(
		window(1, "left", 100, 500),
		window(2, "middle", 1000, 500),
		window(3, "Program Manager", 1000, 500),
	)
	backend.foreground = 2
	d := startDaemon(t, testConfig(), Options{Backend: backend})
	ctx := context.Background()

	regions, err := d.Regions(ctx)
	if err != nil {
		t.Fatalf("Regions: %v", err)
	}
	wantBounds := []desktop.Rect{
		{X: 0, Width: 480, Height: 1080},
		{X: 480, Width: 960, Height: 1080},
		{X: 1440, Width: 480, Height: 1080},
	}
	for i, r := range regions {
		if r.Bounds != wantBounds[i] {
			t.Fatalf("region %d bounds = %v, want %v", i, r.Bounds, wantBounds[i])
		}
	}

	members := regionMembers(t, d)
	if !slices.Equal(members[0], []uint64{1}) || !slices.Equal(members[1], []uint64{2}) || len(members[2]) != 0 {
		t.Fatalf("unexpected members: %v", members)
	}
	if regions[1].Frontmost != 2 {
		t.Fatalf("expected window 2 frontmost in region 1, got %d", regions[1].Frontmost)
	}

	windows, err := d.Windows(ctx)
	if err != nil {
		t.Fatalf("Windows: %v", err)
	}
	byHandle := make(map[desktop.Handle]ipc.WindowInfo)
	for _, w := range windows {
		byHandle[w.Handle] = w
	}
	if len(byHandle) != 3 {
		t.Fatalf("expected 3 tracked windows, got %d", len(byHandle))
	}
	if w := byHandle[3]; w.Manageable || w.Region != -1 {
		t.Fatalf("expected excluded window outside regions, got %+v", w)
	}
	if w := byHandle[2]; !w.Foreground || w.Region != 1 {
		t.Fatalf("expected window 2 foreground in region 1, got %+v", w)
	}

	status, err := d.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Windows != 3 || status.Managed != 2 || status.Foreground != 2 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestDaemon_ScreenChangeReplansRegions(t *testing.T) {
	backend := newFakeBackend(window(1, "a", 500, 500))
	d := startDaemon(t, testConfig(), Options{Backend: backend})

	if got := regionMembers(t, d); !slices.Equal(got[1], []uint64{1}) {
		t.Fatalf("expected window in region 1, got %v", got)
	}

	backend.mu.Lock()
	backend.screen.Usable = desktop.Rect{X: 100, Width: 800, Height: 1080}
	backend.mu.Unlock()

	eventually(t, "regions re-planned", func() bool {
		regions, err := d.Regions(context.Background())
		return err == nil && len(regions) == 3 && regions[0].Bounds.X == 100
	})
	// 800 wide from x=100: [100,300) [300,700) [700,900); center 500 stays in region 1.
	if got := regionMembers(t, d); !slices.Equal(got[1], []uint64{1}) {
		t.Fatalf("expected window in region 1 after re-plan, got %v", got)
	}
}

func (b *fakeBackend) clearMoves() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.moves)
}

func TestDaemon_ToggleCompactAndGroupRegion(t *testing.T) {
	backend := newFakeBackend(
		window(1, "one", 700, 500),
		window(2, "two", 900, 500),
		window(3, "three", 1100, 500),
	)
	backend.moveErr[3] = errors.New("window vanished")
	cfg := testConfig()
	d := startDaemon(t, cfg, Options{Backend: backend})
	ctx := context.Background()

	plain := desktop.Rect{X: 480, Y: cfg.BarHeight, Width: 960, Height: 1080 - cfg.BarHeight}
	compactRect := desktop.Rect{X: 480, Y: cfg.BarHeight - 53, Width: 960, Height: 1080 - cfg.BarHeight + 53}

	compact, err := d.ToggleCompact(ctx, 2)
	if err != nil || !compact {
		t.Fatalf("ToggleCompact = %v, %v; want true", compact, err)
	}
	if got, ok := backend.move(2); !ok || got != compactRect {
		t.Fatalf("toggling compact moved window 2 to %v (moved %v), want %v", got, ok, compactRect)
	}
	if _, ok := backend.move(1); ok {
		t.Fatalf("toggling compact on window 2 must not move window 1")
	}

	backend.clearMoves()
	group, err := d.GroupRegion(ctx, 1)
	if err != nil {
		t.Fatalf("GroupRegion: %v", err)
	}
	if group.Moved != 2 || !slices.Equal(group.Failed, []uint64{3}) {
		t.Fatalf("unexpected group result: %+v", group)
	}
	if got, _ := backend.move(1); got != plain {
		t.Fatalf("window 1 moved to %v, want %v", got, plain)
	}
	if got, _ := backend.move(2); got != compactRect {
		t.Fatalf("compact window 2 moved to %v, want %v", got, compactRect)
	}

	compact, err = d.ToggleCompact(ctx, 2)
	if err != nil || compact {
		t.Fatalf("ToggleCompact = %v, %v; want false", compact, err)
	}
	if got, _ := backend.move(2); got != plain {
		t.Fatalf("window 2 moved to %v after clearing compact, want %v", got, plain)
	}

	if _, err := d.GroupRegion(ctx, 7); !errors.Is(err, tiling.ErrUnknownRegion) {
		t.Fatalf("expected ErrUnknownRegion, got %v", err)
	}
	if _, err := d.ToggleCompact(ctx, 99); !errors.Is(err, ErrUnknownWindow) {
		t.Fatalf("expected ErrUnknownWindow, got %v", err)
	}
}

func TestDaemon_FitWindow(t *testing.T) {
	backend := newFakeBackend(
		window(1, "one", 100, 500),
		window(2, "", 900, 500),
		window(3, "three", 1100, 500),
	)
	backend.moveErr[3] = errors.New("window vanished")
	cfg := testConfig()
	d := startDaemon(t, cfg, Options{Backend: backend})
	ctx := context.Background()

	want := desktop.Rect{X: 0, Y: cfg.BarHeight, Width: 480, Height: 1080 - cfg.BarHeight}
	got, err := d.FitWindow(ctx, 1)
	if err != nil {
		t.Fatalf("FitWindow: %v", err)
	}
	if got != want {
		t.Fatalf("FitWindow = %v, want %v", got, want)
	}
	if moved, _ := backend.move(1); moved != want {
		t.Fatalf("window 1 moved to %v, want %v", moved, want)
	}

	tests := []struct {
		name   string
		handle desktop.Handle
		want   error
	}{
		{"unknown", 99, ErrUnknownWindow},
		{"not in a region", 2, ErrNotInRegion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.FitWindow(ctx, tt.handle); !errors.Is(err, tt.want) {
				t.Fatalf("FitWindow(%s) error = %v, want %v", tt.handle, err, tt.want)
			}
		})
	}

	if _, err := d.FitWindow(ctx, 3); err == nil {
		t.Fatalf("expected move failure to be returned")
	}
}

func TestDaemon_Activate(t *testing.T) {
	backend := newFakeBackend(
		window(1, "one", 100, 500),
		window(2, "Program Manager", 100, 500),
	)
	d := startDaemon(t, testConfig(), Options{Backend: backend})
	ctx := context.Background()

	if err := d.Activate(ctx, 1); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if err := d.Activate(ctx, 2); !errors.Is(err, ErrUnknownWindow) {
		t.Fatalf("expected unmanageable window to be rejected, got %v", err)
	}
	if err := d.Activate(ctx, 42); !errors.Is(err, ErrUnknownWindow) {
		t.Fatalf("expected ErrUnknownWindow, got %v", err)
	}

	backend.mu.Lock()
	activated := slices.Clone(backend.activated)
	backend.mu.Unlock()
	if !slices.Equal(activated, []desktop.Handle{1}) {
		t.Fatalf("expected only window 1 activated, got %v", activated)
	}
}

func TestDaemon_Reenumerate(t *testing.T) {
	backend := newFakeBackend(window(1, "one", 100, 500))
	d := startDaemon(t, testConfig(), Options{Backend: backend})
	ctx := context.Background()

	if err := d.Reenumerate(ctx); err != nil {
		t.Fatalf("Reenumerate: %v", err)
	}
	eventually(t, "window rediscovered", func() bool {
		members := regionMembers(t, d)
		return slices.Equal(members[0], []uint64{1})
	})
}

func TestDaemon_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	backend := newFakeBackend(
		window(1, "one", 100, 500),
		window(2, "two", 1000, 500),
	)
	d := startDaemon(t, testConfig(), Options{Backend: backend, ConfigPath: path})
	ctx := context.Background()

	data := "poll_interval: 10ms\ntick_budget: 0s\nregion_weights: [1, 1]\ntitle_exclusions: [\"two\"]\nicon_worker:\n  enabled: false\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := d.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	eventually(t, "two regions with window 2 excluded", func() bool {
		members := regionMembers(t, d)
		return len(members) == 2 && slices.Equal(members[0], []uint64{1}) && len(members[1]) == 0
	})

	if err := os.WriteFile(path, []byte("region_weights: [0]\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := d.Reload(ctx); err == nil {
		t.Fatalf("expected invalid config to fail reload")
	}
	if got := regionMembers(t, d); len(got) != 2 {
		t.Fatalf("expected previous layout kept, got %v", got)
	}
}

func TestDaemon_IconWorkerFillsIcons(t *testing.T) {
	cfg := testConfig()
	cfg.IconWorker.Enabled = true
	cfg.IconWorker.IconSize = 16
	backend := newFakeBackend(window(1, "one", 100, 500))
	d := startDaemon(t, cfg, Options{Backend: backend})

	eventually(t, "icon stored", func() bool {
		windows, err := d.Windows(context.Background())
		return err == nil && len(windows) == 1 && windows[0].HasIcon
	})
}
