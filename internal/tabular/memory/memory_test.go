package memory

import (
	"context"
	"errors"
	"testing"

	"talous/internal/tabular"
)

func newTestStore() *Store {
	return New(map[string][]string{
		"Rules": {"pattern", "group", "category", "mode"},
	})
}

func TestAppendAndGetRows(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	err := s.AppendRows(ctx, "Rules", []tabular.Row{
		tabular.NewRow(map[string]string{"pattern": "foo", "group": "g", "category": "c", "mode": "auto"}),
		tabular.NewRow(map[string]string{"pattern": "bar", "mode": "skip"}),
	})
	if err != nil {
		t.Fatalf("AppendRows: %v", err)
	}

	rows, err := s.GetRows(ctx, "Rules")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Get("pattern") != "foo" || rows[1].Get("mode") != "skip" {
		t.Errorf("unexpected cells: %v", rows)
	}
	// Unset columns come back as empty strings.
	if rows[1].Get("group") != "" {
		t.Errorf("unset column = %q, want empty", rows[1].Get("group"))
	}
}

func TestUpdateRow(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	if err := s.AppendRows(ctx, "Rules", []tabular.Row{
		tabular.NewRow(map[string]string{"pattern": "foo", "mode": "auto"}),
	}); err != nil {
		t.Fatal(err)
	}
	rows, _ := s.GetRows(ctx, "Rules")

	err := s.UpdateRow(ctx, "Rules", rows[0].Ref, tabular.NewRow(map[string]string{"mode": "review"}))
	if err != nil {
		t.Fatalf("UpdateRow: %v", err)
	}
	rows, _ = s.GetRows(ctx, "Rules")
	if rows[0].Get("mode") != "review" {
		t.Errorf("mode = %q, want review", rows[0].Get("mode"))
	}
	// Untouched columns survive partial updates.
	if rows[0].Get("pattern") != "foo" {
		t.Errorf("pattern = %q, want foo", rows[0].Get("pattern"))
	}
}

func TestGetColumnValues(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	_ = s.AppendRows(ctx, "Rules", []tabular.Row{
		tabular.NewRow(map[string]string{"pattern": "a"}),
		tabular.NewRow(map[string]string{"pattern": "b"}),
	})
	vals, err := s.GetColumnValues(ctx, "Rules", "pattern")
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 2 || vals[0] != "a" || vals[1] != "b" {
		t.Errorf("vals = %v", vals)
	}

	if _, err := s.GetColumnValues(ctx, "Rules", "nope"); !errors.Is(err, tabular.ErrColumnNotFound) {
		t.Errorf("missing column: got %v", err)
	}
}

func TestUnknownTable(t *testing.T) {
	s := newTestStore()
	if _, err := s.GetRows(context.Background(), "Nope"); !errors.Is(err, tabular.ErrTableNotFound) {
		t.Errorf("got %v, want ErrTableNotFound", err)
	}
}
