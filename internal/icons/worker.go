// Package icons fills in window icons off the reconciliation goroutine.
//
// The worker listens for window events, queues manageable windows that have
// no icon yet and resolves their icons on its own goroutine. Results land in the window's
// auxiliary cell; the registry itself is never touched.
package icons

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/image/draw"

	"github.com/1broseidon/winstrip/internal/desktop"
	"github.com/1broseidon/winstrip/internal/events"
)

// ErrIconUnavailable marks a window whose icon cannot be resolved, for
// example because its owning process is unknown.
var ErrIconUnavailable = errors.New("icon unavailable")

// Source resolves the icon image of a window.
type Source interface {
	Icon(ctx context.Context, w desktop.Window, size int) (image.Image, error)
}

// Config holds worker settings.
type Config struct {
	QueueSize int
	IconSize  int
	Logger    *slog.Logger
}

// Worker resolves icons for newly created windows.
type Worker struct {
	source Source
	queue  chan desktop.Window
	size   int
	logger *slog.Logger

	mu     sync.Mutex
	queued map[*desktop.Aux]struct{}
}

var _ events.Subscriber = (*Worker)(nil)

// NewWorker creates a worker. Subscribe it to the event bus and call Run.
func NewWorker(cfg Config, source Source) *Worker {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.IconSize <= 0 {
		cfg.IconSize = 32
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Worker{
		source: source,
		queue:  make(chan desktop.Window, cfg.QueueSize),
		size:   cfg.IconSize,
		logger: logger,
		queued: make(map[*desktop.Aux]struct{}),
	}
}

// HandleEvent queues manageable windows as they are created, and windows
// that become manageable later (a title arriving after creation) while they
// still have no icon. It never blocks the publisher; a full queue drops the
// request.
func (w *Worker) HandleEvent(e events.Event) {
	switch e.Kind {
	case events.WindowCreated, events.WindowTitleChanged, events.WindowStateChanged:
	default:
		return
	}
	if e.Window == nil || !e.Window.Manageable {
		return
	}
	aux := e.Window.Aux()
	if aux == nil || !needsIcon(aux) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.queued[aux]; ok {
		return
	}
	select {
	case w.queue <- *e.Window:
		w.queued[aux] = struct{}{}
	default:
		w.logger.Debug("icon queue full, dropping request", "window", e.Window.Handle)
	}
}

func needsIcon(aux *desktop.Aux) bool {
	data, denied := aux.Icon()
	return len(data) == 0 && !denied && !aux.Detached()
}

// Pending returns the number of queued requests.
func (w *Worker) Pending() int {
	return len(w.queue)
}

// Run processes the queue until ctx is cancelled. Queued requests are
// abandoned on cancellation.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case win := <-w.queue:
			w.process(ctx, win)
		}
	}
}

func (w *Worker) process(ctx context.Context, win desktop.Window) {
	aux := win.Aux()
	if aux == nil {
		return
	}
	defer func() {
		w.mu.Lock()
		delete(w.queued, aux)
		w.mu.Unlock()
	}()
	if !needsIcon(aux) {
		return
	}

	data, err := w.resolve(ctx, win)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Debug("icon lookup failed", "window", win.Handle, "error", err)
		aux.DenyIcon()
		return
	}
	if !aux.SetIcon(data) {
		w.logger.Debug("window gone before icon arrived", "window", win.Handle)
	}
}

func (w *Worker) resolve(ctx context.Context, win desktop.Window) ([]byte, error) {
	if !win.HasProcess() {
		return nil, ErrIconUnavailable
	}
	img, err := w.source.Icon(ctx, win, w.size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIconUnavailable, err)
	}
	return EncodePNG(Scale(img, w.size))
}

// Scale returns img resized to size x size. Images already that size are
// returned unchanged.
func Scale(img image.Image, size int) image.Image {
	b := img.Bounds()
	if b.Dx() == size && b.Dy() == size {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode icon: %w", err)
	}
	return buf.Bytes(), nil
}
