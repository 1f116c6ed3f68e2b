package desktop

import (
	"fmt"
	"sort"
	"strings"
)

// Change is the set of differences Upsert observed for one descriptor.
type Change uint8

const (
	Created Change = 1 << iota
	TitleChanged
	RectangleChanged
	StateChanged

	// Unchanged means the descriptor matched the stored window.
	Unchanged Change = 0
)

// Has reports whether c includes all bits of other.
func (c Change) Has(other Change) bool {
	return c&other == other && other != 0
}

func (c Change) String() string {
	if c == Unchanged {
		return "unchanged"
	}
	var parts []string
	if c.Has(Created) {
		parts = append(parts, "created")
	}
	if c.Has(TitleChanged) {
		parts = append(parts, "title")
	}
	if c.Has(RectangleChanged) {
		parts = append(parts, "rect")
	}
	if c.Has(StateChanged) {
		parts = append(parts, "state")
	}
	if len(parts) == 0 {
		return fmt.Sprintf("change(%d)", uint8(c))
	}
	return strings.Join(parts, "|")
}

// Registry is the authoritative handle -> Window mapping. It is not safe for
// concurrent use; the reconciliation loop is its only writer.
type Registry struct {
	windows map[Handle]*Window
	policy  *Policy
}

// NewRegistry creates an empty registry. A nil policy uses the built-in
// manageability rules with no exclusions.
func NewRegistry(policy *Policy) *Registry {
	if policy == nil {
		policy = NewPolicy(nil, nil)
	}
	return &Registry{
		windows: make(map[Handle]*Window),
		policy:  policy,
	}
}

// Upsert creates or updates the window for d and reports what changed.
// Identity, process and flags survive updates.
func (r *Registry) Upsert(d Descriptor) (Window, Change) {
	w, ok := r.windows[d.Handle]
	if !ok {
		w = &Window{
			Handle:      d.Handle,
			Title:       d.Title,
			Rect:        d.Rect,
			PID:         d.PID,
			ProcessPath: d.ProcessPath,
			State:       d.State,
			Flags:       r.policy.DefaultFlags(d.ProcessPath),
			aux:         &Aux{},
		}
		w.Manageable = r.policy.Manageable(w.Title, w.Rect, w.State)
		r.windows[d.Handle] = w
		return *w, Created
	}

	change := Unchanged
	if d.Title != w.Title {
		w.Title = d.Title
		change |= TitleChanged
	}
	if d.Rect != w.Rect {
		w.Rect = d.Rect
		change |= RectangleChanged
	}
	if d.State != w.State {
		w.State = d.State
		change |= StateChanged
	}
	if change != Unchanged {
		w.Manageable = r.policy.Manageable(w.Title, w.Rect, w.State)
	}
	return *w, change
}

// Remove deletes the window for h and returns it.
func (r *Registry) Remove(h Handle) (Window, bool) {
	w, ok := r.windows[h]
	if !ok {
		return Window{}, false
	}
	delete(r.windows, h)
	w.aux.detach()
	return *w, true
}

// Get returns the window for h.
func (r *Registry) Get(h Handle) (Window, bool) {
	w, ok := r.windows[h]
	if !ok {
		return Window{}, false
	}
	return *w, true
}

// Len returns the number of tracked windows.
func (r *Registry) Len() int {
	return len(r.windows)
}

// Handles returns every tracked handle in ascending order.
func (r *Registry) Handles() []Handle {
	out := make([]Handle, 0, len(r.windows))
	for h := range r.windows {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// All returns snapshots of every tracked window ordered by handle.
func (r *Registry) All() []Window {
	out := make([]Window, 0, len(r.windows))
	for _, h := range r.Handles() {
		out = append(out, *r.windows[h])
	}
	return out
}

// SetFlags applies fn to the flags of h. It is the only way flags change
// after creation.
func (r *Registry) SetFlags(h Handle, fn func(*Flags)) (Window, bool) {
	w, ok := r.windows[h]
	if !ok {
		return Window{}, false
	}
	fn(&w.Flags)
	return *w, true
}

// SetTitleExclusions replaces the title exclusion set. Stored windows keep
// their current Manageable value until their next observed change.
func (r *Registry) SetTitleExclusions(titles []string) {
	r.policy.SetTitleExclusions(titles)
}

// SetBorderProcesses replaces the border-adjust process list used for new
// windows.
func (r *Registry) SetBorderProcesses(procs []string) {
	r.policy.SetBorderProcesses(procs)
}

// Clear removes every window and returns them ordered by handle.
func (r *Registry) Clear() []Window {
	out := r.All()
	for _, w := range r.windows {
		w.aux.detach()
	}
	r.windows = make(map[Handle]*Window)
	return out
}
