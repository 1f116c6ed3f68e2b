package platform

import (
	"context"
	"errors"
	"image"

	"github.com/1broseidon/winstrip/internal/desktop"
)

// ErrUnsupported is returned by New on platforms without a backend.
var ErrUnsupported = errors.New("platform: no window system backend for this OS")

// Screen describes the primary display. Usable excludes panels and taskbars.
type Screen struct {
	Bounds desktop.Rect
	Usable desktop.Rect
}

// Backend abstracts window-system operations across platforms.
//
// Windows reports per-window query failures through Descriptor.Err so one
// vanished window does not fail the snapshot.
type Backend interface {
	Windows(ctx context.Context) ([]desktop.Descriptor, error)
	Foreground(ctx context.Context) (desktop.Handle, error)
	Screen(ctx context.Context) (Screen, error)
	MoveResize(h desktop.Handle, bounds desktop.Rect) error
	Activate(h desktop.Handle) error
	Icon(ctx context.Context, w desktop.Window, size int) (image.Image, error)
	Close() error
}
