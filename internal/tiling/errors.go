package tiling

import "errors"

// ErrUnknownRegion is returned for a region index outside the strip.
var ErrUnknownRegion = errors.New("unknown region")
