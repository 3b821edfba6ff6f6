// Package tabular defines the outbound port for the tabular datastore.
// Rows are addressed by header name rather than fixed position, so the
// backing sheets may carry extra columns or reorder them freely.
package tabular

import (
	"context"
	"errors"
)

var (
	ErrTableNotFound  = errors.New("table not found")
	ErrColumnNotFound = errors.New("column not found")

	// ErrCallBudgetExceeded signals that the per-run call budget to the
	// backing store is exhausted. Workflows abort early on it instead of
	// partially completing (checked with errors.Is).
	ErrCallBudgetExceeded = errors.New("tabular store call budget exceeded")
)

// RowRef is an opaque, store-specific handle to an existing row, valid for
// the duration of one run. Implementations use sheet row numbers, SQLite
// rowids, or slice indexes.
type RowRef string

// Row is one table row keyed by column header name. Ref is empty for rows
// that have not been persisted yet.
type Row struct {
	Ref   RowRef
	Cells map[string]string
}

// NewRow builds an unpersisted row from column/value pairs.
func NewRow(cells map[string]string) Row {
	return Row{Cells: cells}
}

// Get returns the named cell, or "" when absent.
func (r Row) Get(column string) string {
	return r.Cells[column]
}

// Store is the tabular datastore port.
type (
	Store interface {
		// GetRows returns all data rows of the table (header excluded),
		// each with a stable RowRef.
		GetRows(ctx context.Context, table string) ([]Row, error)
		// AppendRows appends rows in one batched call.
		AppendRows(ctx context.Context, table string, rows []Row) error
		// UpdateRow overwrites the cells of an existing row in place.
		// Columns missing from row.Cells keep their current value.
		UpdateRow(ctx context.Context, table string, ref RowRef, row Row) error
		// GetColumnValues returns a single column for all data rows, in
		// row order, with blanks preserved.
		GetColumnValues(ctx context.Context, table string, column string) ([]string, error)
	}
)
