package tiling

import (
	"fmt"

	"github.com/1broseidon/winstrip/internal/desktop"
)

// Rect is the geometry type shared with the window model.
type Rect = desktop.Rect

// PlanRegions slices the available width into len(weights) side-by-side
// rectangles of full height. Widths are proportional to weights and sum to
// width exactly; the rounding remainder goes to the first region. The first
// region starts at x = inset.
func PlanRegions(width, height int, weights []int, inset int) ([]Rect, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid area %dx%d", width, height)
	}
	if len(weights) == 0 {
		return nil, fmt.Errorf("no region weights")
	}

	total := 0
	for i, w := range weights {
		if w <= 0 {
			return nil, fmt.Errorf("region %d: weight must be positive, got %d", i, w)
		}
		total += w
	}

	widths := make([]int, len(weights))
	used := 0
	for i, w := range weights {
		widths[i] = width * w / total
		used += widths[i]
	}
	widths[0] += width - used

	rects := make([]Rect, len(weights))
	x := inset
	for i, w := range widths {
		rects[i] = Rect{
			X:      x,
			Y:      0,
			Width:  w,
			Height: height,
		}
		x += w
	}
	return rects, nil
}

// Adjustments applied when fitting a window into a region. borderPadding
// hides the invisible resize frame some processes draw around the client.
const (
	borderPadding = 8
	compactLift   = 53
)

// FitRect returns the geometry that maximises a window inside region, below a
// bar of barHeight pixels and down to the bottom of the screen.
func FitRect(region Rect, barHeight, screenHeight int, flags desktop.Flags) Rect {
	r := Rect{
		X:      region.X,
		Y:      barHeight,
		Width:  region.Width,
		Height: screenHeight - barHeight,
	}
	if flags.BorderAdjust {
		r.X -= borderPadding
		r.Width += 2 * borderPadding
	}
	if flags.Compact {
		r.Y -= compactLift
		r.Height += compactLift
	}
	if r.Width < 1 {
		r.Width = 1
	}
	if r.Height < 1 {
		r.Height = 1
	}
	return r
}
