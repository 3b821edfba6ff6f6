// Package memory provides an in-process tabular store used by tests and
// local runs without Google credentials.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"talous/internal/tabular"
)

type table struct {
	headers []string
	rows    []map[string]string
}

// Store keeps whole tables in memory. Tables must be declared up front
// with their header row, mirroring how a spreadsheet tab carries a fixed
// header.
type Store struct {
	mu     sync.Mutex
	tables map[string]*table
}

// New creates a store with the given table headers.
func New(headers map[string][]string) *Store {
	s := &Store{tables: make(map[string]*table, len(headers))}
	for name, cols := range headers {
		s.tables[name] = &table{headers: append([]string(nil), cols...)}
	}
	return s
}

func (s *Store) get(name string) (*table, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", tabular.ErrTableNotFound, name)
	}
	return t, nil
}

func (s *Store) GetRows(_ context.Context, name string) ([]tabular.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.get(name)
	if err != nil {
		return nil, err
	}
	out := make([]tabular.Row, len(t.rows))
	for i, cells := range t.rows {
		copied := make(map[string]string, len(cells))
		for k, v := range cells {
			copied[k] = v
		}
		out[i] = tabular.Row{Ref: tabular.RowRef(strconv.Itoa(i)), Cells: copied}
	}
	return out, nil
}

func (s *Store) AppendRows(_ context.Context, name string, rows []tabular.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.get(name)
	if err != nil {
		return err
	}
	for _, r := range rows {
		cells := make(map[string]string, len(t.headers))
		for _, col := range t.headers {
			cells[col] = r.Cells[col]
		}
		t.rows = append(t.rows, cells)
	}
	return nil
}

func (s *Store) UpdateRow(_ context.Context, name string, ref tabular.RowRef, row tabular.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.get(name)
	if err != nil {
		return err
	}
	idx, err := strconv.Atoi(string(ref))
	if err != nil || idx < 0 || idx >= len(t.rows) {
		return fmt.Errorf("invalid row ref %q for table %s", ref, name)
	}
	for col, v := range row.Cells {
		t.rows[idx][col] = v
	}
	return nil
}

func (s *Store) GetColumnValues(_ context.Context, name string, column string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.get(name)
	if err != nil {
		return nil, err
	}
	found := false
	for _, h := range t.headers {
		if h == column {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s.%s", tabular.ErrColumnNotFound, name, column)
	}
	out := make([]string, len(t.rows))
	for i, cells := range t.rows {
		out[i] = cells[column]
	}
	return out, nil
}

var _ tabular.Store = (*Store)(nil)
