package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/1broseidon/winstrip/internal/desktop"
)

type snapshotResult struct {
	windows []desktop.Descriptor
	err     error
}

// BudgetedSource bounds how long a tick may wait for the window snapshot.
// A call that runs past the budget makes the tick fail with
// ErrTickBudgetExceeded; until that call returns, later ticks fail with
// ErrSnapshotInFlight instead of starting a second call. The late result is
// discarded.
type BudgetedSource struct {
	source SnapshotSource
	budget time.Duration

	mu      sync.Mutex
	pending chan snapshotResult
}

var _ SnapshotSource = (*BudgetedSource)(nil)

// WithBudget wraps source. A non-positive budget returns source unchanged.
func WithBudget(source SnapshotSource, budget time.Duration) SnapshotSource {
	if budget <= 0 {
		return source
	}
	return &BudgetedSource{source: source, budget: budget}
}

// Windows calls the wrapped source, waiting at most the budget.
func (b *BudgetedSource) Windows(ctx context.Context) ([]desktop.Descriptor, error) {
	b.mu.Lock()
	if b.pending != nil {
		select {
		case <-b.pending:
			b.pending = nil
		default:
			b.mu.Unlock()
			return nil, ErrSnapshotInFlight
		}
	}
	ch := make(chan snapshotResult, 1)
	b.pending = ch
	b.mu.Unlock()

	go func() {
		windows, err := b.source.Windows(ctx)
		ch <- snapshotResult{windows: windows, err: err}
	}()

	timer := time.NewTimer(b.budget)
	defer timer.Stop()

	select {
	case res := <-ch:
		b.clear(ch)
		return res.windows, res.err
	case <-timer.C:
		return nil, ErrTickBudgetExceeded
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Foreground is a single cheap query and is not budgeted.
func (b *BudgetedSource) Foreground(ctx context.Context) (desktop.Handle, error) {
	return b.source.Foreground(ctx)
}

func (b *BudgetedSource) clear(ch chan snapshotResult) {
	b.mu.Lock()
	if b.pending == ch {
		b.pending = nil
	}
	b.mu.Unlock()
}
