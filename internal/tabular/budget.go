package tabular

import (
	"context"
	"fmt"
	"sync"
)

// Guard wraps a Store with a per-run call budget. Every read, append and
// update consumes one unit; once the budget is spent every further call
// fails with ErrCallBudgetExceeded so a workflow aborts before exhausting
// the backing service's quota mid-run.
type Guard struct {
	inner Store

	mu        sync.Mutex
	remaining int
}

// NewGuard wraps inner with a budget of maxCalls. A non-positive budget
// means unlimited.
func NewGuard(inner Store, maxCalls int) *Guard {
	if maxCalls <= 0 {
		maxCalls = -1
	}
	return &Guard{inner: inner, remaining: maxCalls}
}

func (g *Guard) spend() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.remaining == 0 {
		return fmt.Errorf("%w", ErrCallBudgetExceeded)
	}
	if g.remaining > 0 {
		g.remaining--
	}
	return nil
}

// Remaining returns the unspent budget, -1 for unlimited.
func (g *Guard) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remaining
}

func (g *Guard) GetRows(ctx context.Context, table string) ([]Row, error) {
	if err := g.spend(); err != nil {
		return nil, err
	}
	return g.inner.GetRows(ctx, table)
}

func (g *Guard) AppendRows(ctx context.Context, table string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	if err := g.spend(); err != nil {
		return err
	}
	return g.inner.AppendRows(ctx, table, rows)
}

func (g *Guard) UpdateRow(ctx context.Context, table string, ref RowRef, row Row) error {
	if err := g.spend(); err != nil {
		return err
	}
	return g.inner.UpdateRow(ctx, table, ref, row)
}

func (g *Guard) GetColumnValues(ctx context.Context, table string, column string) ([]string, error) {
	if err := g.spend(); err != nil {
		return nil, err
	}
	return g.inner.GetColumnValues(ctx, table, column)
}

var _ Store = (*Guard)(nil)
