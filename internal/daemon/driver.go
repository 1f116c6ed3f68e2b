package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"
)

// DriverConfig holds configuration for the polling driver.
type DriverConfig struct {
	Interval time.Duration
	Logger   *slog.Logger

	// AfterTick runs on the loop goroutine after every tick, including
	// skipped ones.
	AfterTick func(ctx context.Context)
}

type command struct {
	fn   func()
	done chan struct{}
}

// Driver runs the engine on a timer. Ticks and commands posted with Do all
// execute on the goroutine that called Run, one at a time, so the engine,
// registry and regions need no locking.
type Driver struct {
	engine    *Engine
	interval  time.Duration
	afterTick func(ctx context.Context)
	logger    *slog.Logger

	commands  chan command
	intervals chan time.Duration
	stopped   chan struct{}
	running   atomic.Bool

	skipped atomic.Uint64
}

// NewDriver creates a driver for engine.
func NewDriver(cfg DriverConfig, engine *Engine) *Driver {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Driver{
		engine:    engine,
		interval:  interval,
		afterTick: cfg.AfterTick,
		logger:    logger,
		commands:  make(chan command, 16),
		intervals: make(chan time.Duration, 1),
		stopped:   make(chan struct{}),
	}
}

// Run starts the polling loop. Blocks until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) {
	if !d.running.CompareAndSwap(false, true) {
		d.logger.Error("driver already running")
		return
	}
	defer close(d.stopped)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("driver started", "interval", d.interval)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("driver stopped")
			return
		case <-ticker.C:
			d.Step(ctx)
		case cmd := <-d.commands:
			d.exec(cmd)
		case iv := <-d.intervals:
			d.interval = iv
			ticker.Reset(iv)
			d.logger.Info("driver interval changed", "interval", iv)
		}
	}
}

// Step performs one tick and the after-tick hook on the calling goroutine.
// Tests call it directly instead of waiting for the timer.
func (d *Driver) Step(ctx context.Context) error {
	err := d.tick(ctx)
	if err != nil {
		d.skipped.Add(1)
		switch {
		case errors.Is(err, ErrSnapshotInFlight):
			d.logger.Debug("tick skipped", "error", err)
		default:
			d.logger.Warn("tick skipped", "error", err)
		}
	}
	if d.afterTick != nil {
		d.afterTick(ctx)
	}
	return err
}

func (d *Driver) tick(ctx context.Context) (err error) {
	// Recover from panics to keep the loop alive.
	if !debugBuild {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("tick panic recovered", "error", r)
				err = errors.New("tick panicked")
			}
		}()
	}
	return d.engine.Tick(ctx)
}

// Do runs fn on the loop goroutine between ticks and waits for it to finish.
func (d *Driver) Do(ctx context.Context, fn func()) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case d.commands <- cmd:
	case <-d.stopped:
		return ErrDriverStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-cmd.done:
		return nil
	case <-d.stopped:
		return ErrDriverStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Driver) exec(cmd command) {
	defer close(cmd.done)
	if !debugBuild {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("command panic recovered", "error", r)
			}
		}()
	}
	cmd.fn()
}

// SetInterval changes the tick period of a running loop.
func (d *Driver) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	select {
	case d.intervals <- interval:
	default:
		// A newer value replaces one not yet applied.
		select {
		case <-d.intervals:
		default:
		}
		d.intervals <- interval
	}
}

// Interval returns the configured tick period.
func (d *Driver) Interval() time.Duration {
	return d.interval
}

// Skipped returns how many ticks were skipped since start.
func (d *Driver) Skipped() uint64 {
	return d.skipped.Load()
}
