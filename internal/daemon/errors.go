package daemon

import "errors"

var (
	// ErrUnknownWindow is returned for a handle the registry does not track.
	ErrUnknownWindow = errors.New("unknown window")

	// ErrNotInRegion is returned when a window that must be fitted is not a
	// member of any region.
	ErrNotInRegion = errors.New("window is not in a region")

	// ErrTickBudgetExceeded means the snapshot source did not answer within
	// the tick budget; the tick is skipped.
	ErrTickBudgetExceeded = errors.New("snapshot exceeded tick budget")

	// ErrSnapshotInFlight means an earlier over-budget snapshot call is still
	// running; the tick is skipped rather than overlapped.
	ErrSnapshotInFlight = errors.New("previous snapshot still in flight")

	// ErrDriverStopped is returned by Do once the driver loop has exited.
	ErrDriverStopped = errors.New("driver stopped")
)
