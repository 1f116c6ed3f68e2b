//go:build linux

package platform

import (
	"context"
	"fmt"
	"image"

	"github.com/1broseidon/winstrip/internal/desktop"
	"github.com/1broseidon/winstrip/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
)

// LinuxBackend wraps an X11 connection behind the platform Backend interface.
type LinuxBackend struct {
	conn *x11.Connection
}

var _ Backend = (*LinuxBackend)(nil)

// New opens the default backend for this platform.
func New() (Backend, error) {
	return NewLinuxBackendFromDisplay()
}

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11 connection.
func NewLinuxBackendFromDisplay() (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn}, nil
}

// Close closes the underlying X11 connection.
func (b *LinuxBackend) Close() error {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
	return nil
}

// Windows returns one descriptor per managed client window.
func (b *LinuxBackend) Windows(ctx context.Context) ([]desktop.Descriptor, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	clients, err := conn.ClientWindows()
	if err != nil {
		return nil, err
	}

	currentDesktop, desktopErr := conn.GetCurrentDesktop()

	out := make([]desktop.Descriptor, 0, len(clients))
	for _, windowID := range clients {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		h := desktop.Handle(windowID)
		geom, err := conn.WindowGeometry(windowID)
		if err != nil {
			// Usually a window destroyed after the client list was read.
			out = append(out, desktop.Descriptor{Handle: h, Err: err})
			continue
		}

		visible := conn.IsViewable(windowID)
		if visible && desktopErr == nil {
			visible = conn.OnDesktop(windowID, currentDesktop)
		}

		pid := conn.WindowPID(windowID)
		out = append(out, desktop.Descriptor{
			Handle:      h,
			Title:       conn.WindowTitle(windowID),
			Rect:        desktop.Rect{X: geom.X, Y: geom.Y, Width: geom.Width, Height: geom.Height},
			PID:         pid,
			ProcessPath: x11.ProcessPath(pid),
			State: desktop.State{
				TopLevel:  conn.IsNormalWindow(windowID) && !conn.IsTransient(windowID),
				Visible:   visible,
				Minimized: conn.IsHidden(windowID),
			},
		})
	}
	return out, nil
}

// Foreground returns the active window, or 0 when none is focused.
func (b *LinuxBackend) Foreground(ctx context.Context) (desktop.Handle, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}

	wid, err := conn.GetActiveWindow()
	if err != nil {
		return 0, err
	}
	return desktop.Handle(wid), nil
}

// Screen returns the primary monitor and its work area.
func (b *LinuxBackend) Screen(ctx context.Context) (Screen, error) {
	conn, err := b.connection()
	if err != nil {
		return Screen{}, err
	}

	m, err := conn.PrimaryMonitor()
	if err != nil {
		return Screen{}, err
	}
	return Screen{Bounds: rectFromGeometry(m.Bounds), Usable: rectFromGeometry(m.Usable)}, nil
}

// MoveResize moves and resizes a window to the specified bounds.
func (b *LinuxBackend) MoveResize(h desktop.Handle, bounds desktop.Rect) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}

	return conn.MoveResizeWindow(
		xproto.Window(h),
		bounds.X,
		bounds.Y,
		bounds.Width,
		bounds.Height,
	)
}

// Activate focuses and raises a window.
func (b *LinuxBackend) Activate(h desktop.Handle) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.FocusWindow(xproto.Window(h))
}

// Icon returns the window's _NET_WM_ICON closest to size.
func (b *LinuxBackend) Icon(ctx context.Context, w desktop.Window, size int) (image.Image, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	return conn.WindowIcon(xproto.Window(w.Handle), size)
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

func rectFromGeometry(g x11.Geometry) desktop.Rect {
	return desktop.Rect{X: g.X, Y: g.Y, Width: g.Width, Height: g.Height}
}
