//go:build debug

package daemon

import (
	"fmt"
	"log/slog"
)

const debugBuild = true

// invariant reports a broken internal invariant. Debug builds stop here.
func invariant(logger *slog.Logger, msg string, args ...any) {
	logger.Error("invariant violated: "+msg, args...)
	panic(fmt.Sprintf("invariant violated: %s %v", msg, args))
}
