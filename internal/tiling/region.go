package tiling

import (
	"sort"

	"github.com/1broseidon/winstrip/internal/desktop"
	"github.com/1broseidon/winstrip/internal/events"
)

// Region claims the manageable windows whose center lies inside its bounds.
// Membership is updated incrementally from events; it never rescans the
// registry. A Region is not safe for concurrent use.
type Region struct {
	index     int
	bounds    Rect
	members   []desktop.Window
	frontmost desktop.Handle
}

var _ events.Subscriber = (*Region)(nil)

// NewRegion creates an empty region with the given bounds.
func NewRegion(index int, bounds Rect) *Region {
	return &Region{index: index, bounds: bounds}
}

// Index returns the region's position in its strip.
func (r *Region) Index() int { return r.index }

// Bounds returns the region rectangle.
func (r *Region) Bounds() Rect { return r.bounds }

// Members returns the member snapshots in join order.
func (r *Region) Members() []desktop.Window {
	out := make([]desktop.Window, len(r.members))
	copy(out, r.members)
	return out
}

// Frontmost returns the member currently holding focus, if any.
func (r *Region) Frontmost() (desktop.Window, bool) {
	if r.frontmost == 0 {
		return desktop.Window{}, false
	}
	if i := r.find(r.frontmost); i >= 0 {
		return r.members[i], true
	}
	return desktop.Window{}, false
}

// IsMember reports whether h is currently in the region.
func (r *Region) IsMember(h desktop.Handle) bool {
	return r.find(h) >= 0
}

// Claims reports whether w qualifies for membership with the current bounds.
func (r *Region) Claims(w desktop.Window) bool {
	return w.Manageable && r.bounds.ContainsCenter(w.Rect)
}

// HandleEvent applies one engine event.
func (r *Region) HandleEvent(e events.Event) {
	switch e.Kind {
	case events.WindowCreated, events.WindowRectangleChanged, events.WindowStateChanged:
		if e.Window != nil {
			r.classify(*e.Window)
		}
	case events.WindowTitleChanged:
		if e.Window != nil {
			r.retitle(*e.Window)
		}
	case events.WindowDestroyed:
		if e.Window != nil {
			r.remove(e.Window.Handle)
		}
	case events.ForegroundWindowChanged:
		r.focus(e.Window)
	}
}

// SetBounds moves the region and reclassifies the given windows against the
// new bounds. Surviving members keep their order; newly claimed windows are
// appended in handle order.
func (r *Region) SetBounds(bounds Rect, windows []desktop.Window, foreground desktop.Handle) {
	r.bounds = bounds

	current := make(map[desktop.Handle]desktop.Window, len(windows))
	for _, w := range windows {
		current[w.Handle] = w
	}

	kept := r.members[:0]
	for _, m := range r.members {
		w, ok := current[m.Handle]
		if ok && r.Claims(w) {
			kept = append(kept, w)
		}
	}
	r.members = kept

	sorted := make([]desktop.Window, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Handle < sorted[j].Handle })
	for _, w := range sorted {
		if r.Claims(w) && !r.IsMember(w.Handle) {
			r.members = append(r.members, w)
		}
	}

	r.frontmost = 0
	if foreground != 0 && r.IsMember(foreground) {
		r.frontmost = foreground
	}
}

func (r *Region) classify(w desktop.Window) {
	i := r.find(w.Handle)
	switch {
	case r.Claims(w) && i < 0:
		r.members = append(r.members, w)
	case r.Claims(w):
		r.members[i] = w
	case i >= 0:
		r.removeAt(i)
	}
}

func (r *Region) retitle(w desktop.Window) {
	i := r.find(w.Handle)
	switch {
	case i >= 0 && !w.Manageable:
		r.removeAt(i)
	case i >= 0:
		r.members[i] = w
	case r.Claims(w):
		r.members = append(r.members, w)
	}
}

func (r *Region) remove(h desktop.Handle) {
	if i := r.find(h); i >= 0 {
		r.removeAt(i)
	}
}

func (r *Region) removeAt(i int) {
	if r.members[i].Handle == r.frontmost {
		r.frontmost = 0
	}
	r.members = append(r.members[:i], r.members[i+1:]...)
}

func (r *Region) focus(w *desktop.Window) {
	r.frontmost = 0
	if w != nil && r.IsMember(w.Handle) {
		r.frontmost = w.Handle
	}
}

func (r *Region) find(h desktop.Handle) int {
	for i := range r.members {
		if r.members[i].Handle == h {
			return i
		}
	}
	return -1
}
