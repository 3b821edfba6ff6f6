// Package sqlite implements the tabular store on a local SQLite file,
// giving a fully offline mode with the same table semantics as the
// spreadsheet backend. The schema ships as embedded migrations and uses
// the default table names; every column is TEXT, mirroring how a sheet
// stores cells.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"talous/internal/tabular"
)

// Store keeps one SQL table per logical table. SQLite's rowid serves as
// the row reference.
type Store struct {
	db      *sql.DB
	headers map[string][]string
}

var _ tabular.Store = (*Store)(nil)

// Open runs migrations and opens the store. headers declares the known
// tables and their column order (see tables.Names.Headers); it must
// match the migrated schema.
func Open(dbPath string, headers map[string][]string) (*Store, error) {
	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	copied := make(map[string][]string, len(headers))
	for name, cols := range headers {
		copied[name] = append([]string(nil), cols...)
	}
	return &Store{db: db, headers: copied}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) columns(table string) ([]string, error) {
	cols, ok := s.headers[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", tabular.ErrTableNotFound, table)
	}
	return cols, nil
}

func quoteAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = `"` + c + `"`
	}
	return out
}

func (s *Store) GetRows(ctx context.Context, table string) ([]tabular.Row, error) {
	cols, err := s.columns(table)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT rowid, %s FROM "%s" ORDER BY rowid`,
		strings.Join(quoteAll(cols), ", "), table)
	sqlRows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}
	defer sqlRows.Close()

	var rows []tabular.Row
	for sqlRows.Next() {
		var rowid int64
		values := make([]sql.NullString, len(cols))
		dest := make([]any, 0, len(cols)+1)
		dest = append(dest, &rowid)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := sqlRows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		cells := make(map[string]string, len(cols))
		for i, c := range cols {
			cells[c] = values[i].String
		}
		rows = append(rows, tabular.Row{
			Ref:   tabular.RowRef(strconv.FormatInt(rowid, 10)),
			Cells: cells,
		})
	}
	if err := sqlRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", table, err)
	}
	return rows, nil
}

func (s *Store) AppendRows(ctx context.Context, table string, rows []tabular.Row) error {
	if len(rows) == 0 {
		return nil
	}
	cols, err := s.columns(table)
	if err != nil {
		return err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
	query := fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES (%s)`,
		table, strings.Join(quoteAll(cols), ", "), placeholders)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append to %s: %w", table, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		args := make([]any, len(cols))
		for i, c := range cols {
			args[i] = row.Cells[c]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append to %s: %w", table, err)
	}
	return nil
}

// UpdateRow writes only the cells present in row; absent columns keep
// their current content.
func (s *Store) UpdateRow(ctx context.Context, table string, ref tabular.RowRef, row tabular.Row) error {
	cols, err := s.columns(table)
	if err != nil {
		return err
	}
	rowid, err := strconv.ParseInt(string(ref), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid row ref %q for table %s", ref, table)
	}

	var sets []string
	var args []any
	for _, c := range cols {
		v, present := row.Cells[c]
		if !present {
			continue
		}
		sets = append(sets, fmt.Sprintf(`"%s" = ?`, c))
		args = append(args, v)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, rowid)
	query := fmt.Sprintf(`UPDATE "%s" SET %s WHERE rowid = ?`, table, strings.Join(sets, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s row %d: %w", table, rowid, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("no row %d in table %s", rowid, table)
	}
	return nil
}

func (s *Store) GetColumnValues(ctx context.Context, table string, column string) ([]string, error) {
	cols, err := s.columns(table)
	if err != nil {
		return nil, err
	}
	found := false
	for _, c := range cols {
		if c == column {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s.%s", tabular.ErrColumnNotFound, table, column)
	}
	query := fmt.Sprintf(`SELECT "%s" FROM "%s" ORDER BY rowid`, column, table)
	sqlRows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select %s.%s: %w", table, column, err)
	}
	defer sqlRows.Close()

	var out []string
	for sqlRows.Next() {
		var v sql.NullString
		if err := sqlRows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s.%s: %w", table, column, err)
		}
		out = append(out, v.String)
	}
	if err := sqlRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s.%s: %w", table, column, err)
	}
	return out, nil
}
