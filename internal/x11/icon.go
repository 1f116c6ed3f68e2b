package x11

import (
	"errors"
	"image"
	"image/color"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// ErrNoIcon is returned when a window does not publish _NET_WM_ICON.
var ErrNoIcon = errors.New("window has no icon")

// WindowIcon returns the _NET_WM_ICON image closest to size pixels, preferring
// the smallest one that is at least that large.
func (c *Connection) WindowIcon(windowID xproto.Window, size int) (image.Image, error) {
	icons, err := ewmh.WmIconGet(c.XUtil, windowID)
	if err != nil || len(icons) == 0 {
		return nil, ErrNoIcon
	}
	best := pickIcon(icons, size)
	return iconImage(best)
}

func pickIcon(icons []ewmh.WmIcon, size int) ewmh.WmIcon {
	best := icons[0]
	for _, icon := range icons[1:] {
		w, bw := int(icon.Width), int(best.Width)
		switch {
		case bw < size && w > bw:
			best = icon
		case w >= size && w < bw:
			best = icon
		}
	}
	return best
}

// iconImage converts packed ARGB cardinals to an image.
func iconImage(icon ewmh.WmIcon) (image.Image, error) {
	w, h := int(icon.Width), int(icon.Height)
	if w <= 0 || h <= 0 || len(icon.Data) < w*h {
		return nil, ErrNoIcon
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		argb := icon.Data[i]
		img.SetNRGBA(i%w, i/w, color.NRGBA{
			A: uint8(argb >> 24),
			R: uint8(argb >> 16),
			G: uint8(argb >> 8),
			B: uint8(argb),
		})
	}
	return img, nil
}
