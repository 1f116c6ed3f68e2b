package tiling

import (
	"fmt"
	"slices"

	"github.com/1broseidon/winstrip/internal/desktop"
	"github.com/1broseidon/winstrip/internal/events"
)

// Bus is the subscription side of the event bus.
type Bus interface {
	Subscribe(events.Subscriber) (unsubscribe func())
}

// Area is the usable screen area regions are planned into.
type Area struct {
	Width  int
	Height int
	Inset  int
}

// Strip owns the set of regions laid out across the screen and keeps each
// one subscribed to the event bus.
type Strip struct {
	bus     Bus
	regions []*Region
	unsubs  []func()

	area    Area
	weights []int
	planned bool
}

// NewStrip creates a strip with no regions. Call Layout to create them.
func NewStrip(bus Bus) *Strip {
	return &Strip{bus: bus}
}

// Regions returns the regions in screen order.
func (s *Strip) Regions() []*Region {
	out := make([]*Region, len(s.regions))
	copy(out, s.regions)
	return out
}

// Region returns the region at index i.
func (s *Strip) Region(i int) (*Region, error) {
	if i < 0 || i >= len(s.regions) {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrUnknownRegion, i, len(s.regions))
	}
	return s.regions[i], nil
}

// RegionOf returns the region that currently lists h as a member.
func (s *Strip) RegionOf(h desktop.Handle) (*Region, bool) {
	for _, r := range s.regions {
		if r.IsMember(h) {
			return r, true
		}
	}
	return nil, false
}

// NeedsLayout reports whether area or weights differ from the last layout.
func (s *Strip) NeedsLayout(area Area, weights []int) bool {
	return !s.planned || area != s.area || !slices.Equal(weights, s.weights)
}

// Layout re-plans the regions when area or weights changed. Regions are added
// or dropped to match len(weights); every region then gets its new bounds and
// is reclassified against windows. It reports whether anything was re-planned.
func (s *Strip) Layout(area Area, weights []int, windows []desktop.Window, foreground desktop.Handle) (bool, error) {
	if !s.NeedsLayout(area, weights) {
		return false, nil
	}
	rects, err := PlanRegions(area.Width, area.Height, weights, area.Inset)
	if err != nil {
		return false, err
	}

	for len(s.regions) < len(rects) {
		r := NewRegion(len(s.regions), Rect{})
		s.regions = append(s.regions, r)
		s.unsubs = append(s.unsubs, s.bus.Subscribe(r))
	}
	for len(s.regions) > len(rects) {
		last := len(s.regions) - 1
		s.unsubs[last]()
		s.regions = s.regions[:last]
		s.unsubs = s.unsubs[:last]
	}

	for i, rect := range rects {
		s.regions[i].SetBounds(rect, windows, foreground)
	}

	s.area = area
	s.weights = slices.Clone(weights)
	s.planned = true
	return true, nil
}

// Close unsubscribes every region.
func (s *Strip) Close() {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.regions = nil
	s.unsubs = nil
	s.planned = false
}
