//go:build !debug

package daemon

import "log/slog"

const debugBuild = false

// invariant reports a broken internal invariant. Release builds log it and
// carry on so the polling loop keeps running.
func invariant(logger *slog.Logger, msg string, args ...any) {
	logger.Error("invariant violated: "+msg, args...)
}
