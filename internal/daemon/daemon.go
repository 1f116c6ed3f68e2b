package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/1broseidon/winstrip/internal/config"
	"github.com/1broseidon/winstrip/internal/desktop"
	"github.com/1broseidon/winstrip/internal/events"
	"github.com/1broseidon/winstrip/internal/icons"
	"github.com/1broseidon/winstrip/internal/ipc"
	"github.com/1broseidon/winstrip/internal/platform"
	"github.com/1broseidon/winstrip/internal/tiling"
)

// Options holds everything the daemon needs besides its config.
type Options struct {
	// ConfigPath is re-read on Reload and watched while running. Empty uses
	// config.DefaultConfigPath.
	ConfigPath string
	// Watch enables the config file watcher in Run.
	Watch bool

	Backend platform.Backend
	SelfPID int

	Logger *slog.Logger
	// Level is adjusted on reload when set.
	Level *slog.LevelVar
}

// Daemon wires the engine, driver, region strip and icon worker together and
// serves IPC requests by posting them to the driver loop.
type Daemon struct {
	configPath string
	watch      bool
	backend    platform.Backend
	logger     *slog.Logger
	level      *slog.LevelVar
	startTime  time.Time

	bus    *events.Bus
	engine *Engine
	driver *Driver
	strip  *tiling.Strip
	icons  *icons.Worker

	// Owned by the driver loop.
	cfg    *config.Config
	screen platform.Screen

	reloadMu sync.Mutex
}

var _ ipc.Controller = (*Daemon)(nil)

// New creates a daemon for cfg. Call Run to start it.
func New(cfg *config.Config, opts Options) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon: nil config")
	}
	if opts.Backend == nil {
		return nil, errors.New("daemon: nil backend")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	d := &Daemon{
		configPath: opts.ConfigPath,
		watch:      opts.Watch,
		backend:    opts.Backend,
		logger:     logger,
		level:      opts.Level,
		startTime:  time.Now(),
		bus:        events.NewBus(),
		cfg:        cfg,
	}

	engine, err := NewEngine(EngineConfig{
		TitleExclusions: cfg.TitleExclusions,
		BorderProcesses: cfg.BorderProcesses,
		SelfPID:         opts.SelfPID,
		Logger:          logger,
	}, WithBudget(opts.Backend, cfg.TickBudget), d.bus)
	if err != nil {
		return nil, err
	}
	d.engine = engine
	d.strip = tiling.NewStrip(d.bus)
	d.driver = NewDriver(DriverConfig{
		Interval:  cfg.PollInterval,
		Logger:    logger,
		AfterTick: d.afterTick,
	}, engine)

	if cfg.IconWorker.Enabled {
		d.icons = icons.NewWorker(icons.Config{
			QueueSize: cfg.IconWorker.QueueSize,
			IconSize:  cfg.IconWorker.IconSize,
			Logger:    logger,
		}, opts.Backend)
		d.bus.Subscribe(d.icons)
	}

	if d.level != nil {
		d.level.Set(cfg.SlogLevel())
	}
	return d, nil
}

// Run starts the icon worker and config watcher and runs the driver loop.
// Blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if d.icons != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.icons.Run(ctx)
		}()
	}

	if d.watch {
		path, err := d.resolveConfigPath()
		if err != nil {
			return err
		}
		w, err := NewWatcher(path, 500*time.Millisecond, d.logger, func() {
			if err := d.Reload(ctx); err != nil {
				d.logger.Error("config reload failed", "error", err)
			}
		})
		if err != nil {
			d.logger.Warn("config watcher disabled", "error", err)
		} else {
			w.Start()
			defer w.Stop()
		}
	}

	d.logger.Info("winstrip daemon started",
		"interval", d.driver.Interval(),
		"weights", d.cfg.RegionWeights,
		"icons", d.icons != nil,
	)
	d.driver.Run(ctx)

	cancel()
	wg.Wait()
	d.strip.Close()
	d.logger.Info("winstrip daemon stopped")
	return nil
}

// afterTick re-plans regions when the usable screen area or the weights
// changed. Runs on the driver loop.
func (d *Daemon) afterTick(ctx context.Context) {
	screen, err := d.backend.Screen(ctx)
	if err != nil {
		d.logger.Debug("screen query failed", "error", err)
		return
	}
	d.screen = screen

	area := tiling.Area{
		Width:  screen.Usable.Width,
		Height: screen.Bounds.Height,
		Inset:  screen.Usable.X,
	}
	if !d.strip.NeedsLayout(area, d.cfg.RegionWeights) {
		return
	}
	changed, err := d.strip.Layout(area, d.cfg.RegionWeights, d.engine.Windows(), d.engine.ForegroundHandle())
	if err != nil {
		d.logger.Warn("region layout failed", "error", err, "area", area, "weights", d.cfg.RegionWeights)
		return
	}
	if changed {
		d.logger.Info("regions planned", "count", len(d.strip.Regions()), "width", area.Width, "inset", area.Inset)
	}
}

// Status implements ipc.Controller.
func (d *Daemon) Status(ctx context.Context) (ipc.StatusData, error) {
	var status ipc.StatusData
	err := d.driver.Do(ctx, func() {
		ticks, last := d.engine.Ticks()
		windows := d.engine.Windows()
		managed := 0
		for _, w := range windows {
			if w.Manageable {
				managed++
			}
		}
		status = ipc.StatusData{
			UptimeSeconds: int64(time.Since(d.startTime).Seconds()),
			Ticks:         ticks,
			SkippedTicks:  d.driver.Skipped(),
			PollInterval:  d.cfg.PollInterval.String(),
			Windows:       len(windows),
			Managed:       managed,
			Regions:       len(d.strip.Regions()),
			Foreground:    uint64(d.engine.ForegroundHandle()),
			ManagerWindow: uint64(d.engine.ManagerHandle()),
		}
		if !last.IsZero() {
			status.LastTick = last.Format(time.RFC3339)
		}
		if d.icons != nil {
			status.IconsPending = d.icons.Pending()
		}
	})
	return status, err
}

// Windows implements ipc.Controller.
func (d *Daemon) Windows(ctx context.Context) ([]ipc.WindowInfo, error) {
	var out []ipc.WindowInfo
	err := d.driver.Do(ctx, func() {
		fg := d.engine.ForegroundHandle()
		for _, w := range d.engine.Windows() {
			info := ipc.WindowInfo{Window: w, Region: -1, Foreground: w.Handle == fg}
			if r, ok := d.strip.RegionOf(w.Handle); ok {
				info.Region = r.Index()
			}
			data, denied := w.Aux().Icon()
			info.HasIcon = len(data) > 0
			info.IconDenied = denied
			out = append(out, info)
		}
	})
	return out, err
}

// Regions implements ipc.Controller.
func (d *Daemon) Regions(ctx context.Context) ([]ipc.RegionInfo, error) {
	var out []ipc.RegionInfo
	err := d.driver.Do(ctx, func() {
		for _, r := range d.strip.Regions() {
			info := ipc.RegionInfo{
				Index:   r.Index(),
				Bounds:  r.Bounds(),
				Members: []ipc.RegionMember{},
			}
			for _, w := range r.Members() {
				info.Members = append(info.Members, ipc.RegionMember{Handle: uint64(w.Handle), Title: w.Title})
			}
			if w, ok := r.Frontmost(); ok {
				info.Frontmost = uint64(w.Handle)
			}
			out = append(out, info)
		}
	})
	return out, err
}

// Reenumerate implements ipc.Controller.
func (d *Daemon) Reenumerate(ctx context.Context) error {
	return d.driver.Do(ctx, d.engine.Reenumerate)
}

// Activate implements ipc.Controller. Only tracked manageable windows can be
// activated.
func (d *Daemon) Activate(ctx context.Context, h desktop.Handle) error {
	var opErr error
	err := d.driver.Do(ctx, func() {
		w, ok := d.engine.Window(h)
		if !ok || !w.Manageable {
			opErr = fmt.Errorf("%w: %s", ErrUnknownWindow, h)
		}
	})
	if err != nil {
		return err
	}
	if opErr != nil {
		return opErr
	}
	if err := d.backend.Activate(h); err != nil {
		return fmt.Errorf("activate %s: %w", h, err)
	}
	return nil
}

// ToggleCompact implements ipc.Controller. A window that is a region member
// is re-fitted right away so the new flag shows.
func (d *Daemon) ToggleCompact(ctx context.Context, h desktop.Handle) (bool, error) {
	var (
		compact bool
		fit     []move
		opErr   error
	)
	err := d.driver.Do(ctx, func() {
		var w desktop.Window
		w, opErr = d.engine.SetFlags(h, func(f *desktop.Flags) { f.Compact = !f.Compact })
		if opErr != nil {
			return
		}
		compact = w.Flags.Compact
		if r, ok := d.strip.RegionOf(h); ok {
			fit = d.fitMoves(r, h)
		}
	})
	if err != nil {
		return false, err
	}
	if opErr != nil {
		return false, opErr
	}
	for _, m := range fit {
		if err := d.backend.MoveResize(m.handle, m.rect); err != nil {
			d.logger.Warn("move failed", "window", m.handle, "rect", m.rect, "error", err)
		}
	}
	return compact, nil
}

type move struct {
	handle desktop.Handle
	rect   desktop.Rect
}

// fitMoves returns the fitted geometry for the given members of r, or for
// every member when none are named. Flags are read from the registry since a
// region only refreshes its copies on window events. Runs on the driver loop.
func (d *Daemon) fitMoves(r *tiling.Region, handles ...desktop.Handle) []move {
	if len(handles) == 0 {
		for _, w := range r.Members() {
			handles = append(handles, w.Handle)
		}
	}
	moves := make([]move, 0, len(handles))
	for _, h := range handles {
		w, ok := d.engine.Window(h)
		if !ok {
			continue
		}
		moves = append(moves, move{
			handle: h,
			rect:   tiling.FitRect(r.Bounds(), d.cfg.BarHeight, d.screen.Bounds.Height, w.Flags),
		})
	}
	return moves
}

// FitWindow implements ipc.Controller. It maximises one region member inside
// its region and returns the requested geometry.
func (d *Daemon) FitWindow(ctx context.Context, h desktop.Handle) (desktop.Rect, error) {
	var (
		fit   []move
		opErr error
	)
	err := d.driver.Do(ctx, func() {
		if _, ok := d.engine.Window(h); !ok {
			opErr = fmt.Errorf("%w: %s", ErrUnknownWindow, h)
			return
		}
		r, ok := d.strip.RegionOf(h)
		if !ok {
			opErr = fmt.Errorf("%w: %s", ErrNotInRegion, h)
			return
		}
		fit = d.fitMoves(r, h)
	})
	if err != nil {
		return desktop.Rect{}, err
	}
	if opErr != nil {
		return desktop.Rect{}, opErr
	}
	m := fit[0]
	if err := d.backend.MoveResize(m.handle, m.rect); err != nil {
		return desktop.Rect{}, fmt.Errorf("move %s: %w", h, err)
	}
	return m.rect, nil
}

// GroupRegion implements ipc.Controller. It fits every member of the region
// to the region's bounds. Moves are fire-and-forget; failures are reported
// per window and never abort the rest.
func (d *Daemon) GroupRegion(ctx context.Context, index int) (ipc.GroupData, error) {
	var (
		moves []move
		opErr error
	)
	err := d.driver.Do(ctx, func() {
		r, err := d.strip.Region(index)
		if err != nil {
			opErr = err
			return
		}
		moves = d.fitMoves(r)
	})
	if err != nil {
		return ipc.GroupData{}, err
	}
	if opErr != nil {
		return ipc.GroupData{}, opErr
	}

	out := ipc.GroupData{Region: index}
	for _, m := range moves {
		if err := d.backend.MoveResize(m.handle, m.rect); err != nil {
			d.logger.Warn("move failed", "window", m.handle, "rect", m.rect, "error", err)
			out.Failed = append(out.Failed, uint64(m.handle))
			continue
		}
		out.Moved++
	}
	return out, nil
}

// Reload implements ipc.Controller. It re-reads the config file and applies
// it on the driver loop. An invalid file leaves the running config untouched.
func (d *Daemon) Reload(ctx context.Context) error {
	d.reloadMu.Lock()
	defer d.reloadMu.Unlock()

	path, err := d.resolveConfigPath()
	if err != nil {
		return err
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return err
	}
	return d.driver.Do(ctx, func() { d.apply(res.Config) })
}

// apply swaps in cfg. Runs on the driver loop.
func (d *Daemon) apply(cfg *config.Config) {
	old := d.cfg
	d.cfg = cfg

	if !slices.Equal(old.TitleExclusions, cfg.TitleExclusions) || !slices.Equal(old.BorderProcesses, cfg.BorderProcesses) {
		d.engine.SetPolicy(cfg.TitleExclusions, cfg.BorderProcesses)
		d.engine.Reenumerate()
	}
	if old.TickBudget != cfg.TickBudget {
		d.engine.source = WithBudget(d.backend, cfg.TickBudget)
	}
	if old.PollInterval != cfg.PollInterval {
		d.driver.SetInterval(cfg.PollInterval)
	}
	if d.level != nil {
		d.level.Set(cfg.SlogLevel())
	}
	if old.IconWorker != cfg.IconWorker {
		d.logger.Info("icon_worker changes take effect on restart")
	}

	d.logger.Info("config applied",
		"interval", cfg.PollInterval,
		"budget", cfg.TickBudget,
		"weights", cfg.RegionWeights,
		"log_level", cfg.LogLevel,
	)
}

func (d *Daemon) resolveConfigPath() (string, error) {
	if d.configPath != "" {
		return d.configPath, nil
	}
	return config.DefaultConfigPath()
}
