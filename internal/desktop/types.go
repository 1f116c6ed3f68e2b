package desktop

import "fmt"

// Handle is an opaque window identifier. It is stable for the lifetime of a
// window and may be reused by the window system after the window is gone.
// Zero is never a valid handle.
type Handle uint64

func (h Handle) String() string {
	return fmt.Sprintf("0x%x", uint64(h))
}

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Center returns the rectangle's center point, rounded toward the origin.
func (r Rect) Center() (x, y int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Contains reports whether (x, y) lies in r. The minimum edges are inclusive
// and the maximum edges exclusive, so rectangles that tile the plane assign
// every point to exactly one of them.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// ContainsCenter reports whether the center point of other lies in r.
func (r Rect) ContainsCenter(other Rect) bool {
	return r.Contains(other.Center())
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// State holds the window-system flags that feed manageability.
type State struct {
	TopLevel  bool `json:"top_level"`
	Visible   bool `json:"visible"`
	Minimized bool `json:"minimized"`
}

// Descriptor is one raw entry of a window snapshot. It is produced fresh on
// every enumeration and never retained.
type Descriptor struct {
	Handle      Handle
	Title       string
	Rect        Rect
	PID         int // 0 when the owning process could not be resolved
	ProcessPath string
	State       State

	// Err is set when the window vanished or could not be queried while the
	// snapshot was taken. Such a descriptor carries only Handle.
	Err error
}

// Validate reports whether the descriptor can be reconciled.
func (d Descriptor) Validate() error {
	if d.Handle == 0 {
		return fmt.Errorf("descriptor has zero handle")
	}
	if d.Err != nil {
		return fmt.Errorf("window %s: %w", d.Handle, d.Err)
	}
	if d.Rect.Width < 0 || d.Rect.Height < 0 {
		return fmt.Errorf("window %s: negative size %s", d.Handle, d.Rect)
	}
	return nil
}
