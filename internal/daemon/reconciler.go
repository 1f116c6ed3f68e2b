package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/1broseidon/winstrip/internal/desktop"
	"github.com/1broseidon/winstrip/internal/events"
)

// SnapshotSource returns the current top-level windows and the foreground
// window handle. Windows may report per-handle failures through
// Descriptor.Err instead of failing the whole call.
type SnapshotSource interface {
	Windows(ctx context.Context) ([]desktop.Descriptor, error)
	Foreground(ctx context.Context) (desktop.Handle, error)
}

// EngineConfig holds configuration for the reconciliation engine.
type EngineConfig struct {
	TitleExclusions []string
	BorderProcesses []string

	// SelfPID and SelfHandle identify this process's own window, which is
	// never tracked. Zero disables the respective check.
	SelfPID    int
	SelfHandle desktop.Handle

	Logger *slog.Logger
}

// Engine reconciles window snapshots into the registry and publishes one
// event per observed change. It is not safe for concurrent use; drive it from
// a single goroutine (see Driver).
type Engine struct {
	source   SnapshotSource
	bus      events.Publisher
	registry *desktop.Registry
	logger   *slog.Logger

	selfPID        int
	selfHandle     desktop.Handle
	managerHandle  desktop.Handle
	lastForeground desktop.Handle

	ticks    uint64
	lastTick time.Time
}

// NewEngine creates an engine that reads from source and publishes to bus.
func NewEngine(cfg EngineConfig, source SnapshotSource, bus events.Publisher) (*Engine, error) {
	if source == nil {
		return nil, errors.New("engine: nil snapshot source")
	}
	if bus == nil {
		return nil, errors.New("engine: nil event publisher")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Engine{
		source:     source,
		bus:        bus,
		registry:   desktop.NewRegistry(desktop.NewPolicy(cfg.TitleExclusions, cfg.BorderProcesses)),
		logger:     logger,
		selfPID:    cfg.SelfPID,
		selfHandle: cfg.SelfHandle,
	}, nil
}

// Tick performs a single reconciliation pass. A failing snapshot call skips
// the whole pass and is returned; per-window problems are logged and never
// abort the pass.
func (e *Engine) Tick(ctx context.Context) error {
	descriptors, err := e.source.Windows(ctx)
	if err != nil {
		return fmt.Errorf("snapshot windows: %w", err)
	}

	seen := make(map[desktop.Handle]struct{}, len(descriptors))
	for _, d := range descriptors {
		if d.Handle == 0 {
			e.logger.Debug("reconciler: skipping descriptor without handle")
			continue
		}
		if e.isSelf(d) {
			if e.managerHandle == 0 {
				e.managerHandle = d.Handle
				e.logger.Debug("reconciler: own window identified", "window", d.Handle)
			}
			continue
		}
		if _, dup := seen[d.Handle]; dup {
			invariant(e.logger, "duplicate handle in snapshot", "window", d.Handle)
			continue
		}
		seen[d.Handle] = struct{}{}

		if err := d.Validate(); err != nil {
			// Keep whatever we knew; the window is re-read next tick.
			e.logger.Debug("reconciler: skipping window this tick", "window", d.Handle, "error", err)
			continue
		}
		e.upsert(d)
	}

	for _, h := range e.registry.Handles() {
		if _, ok := seen[h]; ok {
			continue
		}
		w, ok := e.registry.Remove(h)
		if !ok {
			invariant(e.logger, "remove of unknown window", "window", h)
			continue
		}
		e.publish(events.WindowDestroyed, w)
	}

	e.updateForeground(ctx)

	e.ticks++
	e.lastTick = time.Now()
	return nil
}

func (e *Engine) upsert(d desktop.Descriptor) {
	w, change := e.registry.Upsert(d)
	if change.Has(desktop.Created) {
		e.logger.Debug("window created", "window", w.Handle, "title", w.Title, "rect", w.Rect, "manageable", w.Manageable)
		e.publish(events.WindowCreated, w)
		e.publish(events.WindowRectangleChanged, w)
		return
	}
	if change.Has(desktop.TitleChanged) {
		e.logger.Debug("window title changed", "window", w.Handle, "title", w.Title)
		e.publish(events.WindowTitleChanged, w)
	}
	if change.Has(desktop.RectangleChanged) {
		e.logger.Debug("window rectangle changed", "window", w.Handle, "rect", w.Rect)
		e.publish(events.WindowRectangleChanged, w)
	}
	if change.Has(desktop.StateChanged) {
		e.logger.Debug("window state changed", "window", w.Handle, "manageable", w.Manageable)
		e.publish(events.WindowStateChanged, w)
	}
}

func (e *Engine) updateForeground(ctx context.Context) {
	fg, err := e.source.Foreground(ctx)
	if err != nil {
		e.logger.Debug("reconciler: failed to query foreground window", "error", err)
		return
	}
	if fg == e.lastForeground {
		return
	}
	e.lastForeground = fg

	var resolved *desktop.Window
	if w, ok := e.registry.Get(fg); ok && w.Manageable {
		resolved = &w
	}
	e.logger.Debug("foreground window changed", "window", fg, "tracked", resolved != nil)
	e.bus.Publish(events.Event{Kind: events.ForegroundWindowChanged, Window: resolved})
}

func (e *Engine) publish(kind events.Kind, w desktop.Window) {
	e.bus.Publish(events.Event{Kind: kind, Window: &w})
}

func (e *Engine) isSelf(d desktop.Descriptor) bool {
	if e.selfHandle != 0 && d.Handle == e.selfHandle {
		return true
	}
	return e.selfPID > 0 && d.PID == e.selfPID
}

// Reenumerate destroys every known window and clears the registry without
// taking a snapshot. The next Tick re-creates everything still present and
// re-announces the foreground window.
func (e *Engine) Reenumerate() {
	windows := e.registry.Clear()
	for _, w := range windows {
		e.publish(events.WindowDestroyed, w)
	}
	e.lastForeground = 0
	e.logger.Info("reenumerate: cleared registry", "windows", len(windows))
}

// SetPolicy replaces the title exclusions and border process list. Existing
// windows keep their state until Reenumerate.
func (e *Engine) SetPolicy(titleExclusions, borderProcesses []string) {
	e.registry.SetTitleExclusions(titleExclusions)
	e.registry.SetBorderProcesses(borderProcesses)
}

// SetFlags applies fn to the UI flags of window h.
func (e *Engine) SetFlags(h desktop.Handle, fn func(*desktop.Flags)) (desktop.Window, error) {
	w, ok := e.registry.SetFlags(h, fn)
	if !ok {
		return desktop.Window{}, fmt.Errorf("%w: %s", ErrUnknownWindow, h)
	}
	return w, nil
}

// Window returns the tracked window for h.
func (e *Engine) Window(h desktop.Handle) (desktop.Window, bool) {
	return e.registry.Get(h)
}

// Windows returns every tracked window ordered by handle.
func (e *Engine) Windows() []desktop.Window {
	return e.registry.All()
}

// ForegroundHandle returns the last observed foreground handle.
func (e *Engine) ForegroundHandle() desktop.Handle {
	return e.lastForeground
}

// ManagerHandle returns this process's own window, once identified.
func (e *Engine) ManagerHandle() desktop.Handle {
	return e.managerHandle
}

// Ticks returns the number of completed passes and when the last one ended.
func (e *Engine) Ticks() (uint64, time.Time) {
	return e.ticks, e.lastTick
}
