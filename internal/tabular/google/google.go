// Package google implements the tabular store over one Google
// spreadsheet: every logical table is a tab whose first row is the
// column header.
package google

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"talous/internal/tabular"
)

// Store reads and writes header-addressed rows in spreadsheet tabs.
// Header rows are fetched once per tab and cached for the process
// lifetime; tabs are never restructured at runtime.
type Store struct {
	svc           *gsheet.Service
	spreadsheetID string

	mu      sync.Mutex
	headers map[string][]string
}

var _ tabular.Store = (*Store)(nil)

// New creates a store over the given spreadsheet using an authenticated
// HTTP client (see internal/googleauth).
func New(ctx context.Context, httpClient *http.Client, spreadsheetID string) (*Store, error) {
	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Store{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		headers:       make(map[string][]string),
	}, nil
}

func (s *Store) GetRows(ctx context.Context, table string) ([]tabular.Row, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, table).Context(ctx).Do()
	if err != nil {
		return nil, rangeErr(table, err)
	}
	if len(resp.Values) == 0 {
		return nil, fmt.Errorf("%w: %s has no header row", tabular.ErrTableNotFound, table)
	}
	headers := stringCells(resp.Values[0])
	s.cacheHeaders(table, headers)

	rows := make([]tabular.Row, 0, len(resp.Values)-1)
	for i, raw := range resp.Values[1:] {
		cells := make(map[string]string, len(headers))
		values := stringCells(raw)
		for j, h := range headers {
			if j < len(values) {
				cells[h] = values[j]
			} else {
				cells[h] = ""
			}
		}
		// Sheet row number: header is row 1.
		rows = append(rows, tabular.Row{Ref: tabular.RowRef(strconv.Itoa(i + 2)), Cells: cells})
	}
	return rows, nil
}

func (s *Store) AppendRows(ctx context.Context, table string, rows []tabular.Row) error {
	if len(rows) == 0 {
		return nil
	}
	headers, err := s.headersFor(ctx, table)
	if err != nil {
		return err
	}
	values := make([][]any, len(rows))
	for i, row := range rows {
		line := make([]any, len(headers))
		for j, h := range headers {
			line[j] = row.Cells[h]
		}
		values[i] = line
	}
	vr := &gsheet.ValueRange{Values: values}
	_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, table, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append %d rows to %s: %w", len(rows), table, err)
	}
	return nil
}

// UpdateRow writes only the cells present in row, one batched values
// update per call. Absent columns keep their current content.
func (s *Store) UpdateRow(ctx context.Context, table string, ref tabular.RowRef, row tabular.Row) error {
	headers, err := s.headersFor(ctx, table)
	if err != nil {
		return err
	}
	rowNum, err := strconv.Atoi(string(ref))
	if err != nil || rowNum < 2 {
		return fmt.Errorf("invalid row ref %q for table %s", ref, table)
	}

	var data []*gsheet.ValueRange
	for j, h := range headers {
		v, present := row.Cells[h]
		if !present {
			continue
		}
		data = append(data, &gsheet.ValueRange{
			Range:  fmt.Sprintf("%s!%s%d", table, columnLetter(j), rowNum),
			Values: [][]any{{v}},
		})
	}
	if len(data) == 0 {
		return nil
	}
	req := &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}
	if _, err := s.svc.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("update row %d in %s: %w", rowNum, table, err)
	}
	return nil
}

func (s *Store) GetColumnValues(ctx context.Context, table string, column string) ([]string, error) {
	headers, err := s.headersFor(ctx, table)
	if err != nil {
		return nil, err
	}
	idx := -1
	for j, h := range headers {
		if h == column {
			idx = j
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s.%s", tabular.ErrColumnNotFound, table, column)
	}
	letter := columnLetter(idx)
	rng := fmt.Sprintf("%s!%s2:%s", table, letter, letter)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, rangeErr(table, err)
	}
	out := make([]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		cells := stringCells(raw)
		if len(cells) > 0 {
			out = append(out, cells[0])
		} else {
			out = append(out, "")
		}
	}
	return out, nil
}

func (s *Store) headersFor(ctx context.Context, table string) ([]string, error) {
	s.mu.Lock()
	cached, ok := s.headers[table]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, table+"!1:1").Context(ctx).Do()
	if err != nil {
		return nil, rangeErr(table, err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return nil, fmt.Errorf("%w: %s has no header row", tabular.ErrTableNotFound, table)
	}
	headers := stringCells(resp.Values[0])
	s.cacheHeaders(table, headers)
	return headers, nil
}

func (s *Store) cacheHeaders(table string, headers []string) {
	s.mu.Lock()
	s.headers[table] = headers
	s.mu.Unlock()
}

func stringCells(raw []any) []string {
	out := make([]string, len(raw))
	for i, v := range raw {
		if v == nil {
			continue
		}
		out[i] = fmt.Sprintf("%v", v)
	}
	return out
}

// columnLetter converts a zero-based column index to A1 notation.
func columnLetter(idx int) string {
	letters := ""
	for idx >= 0 {
		letters = string(rune('A'+idx%26)) + letters
		idx = idx/26 - 1
	}
	return letters
}

// rangeErr maps the Sheets API's "Unable to parse range" onto the typed
// missing-table error so callers can branch with errors.Is.
func rangeErr(table string, err error) error {
	if strings.Contains(err.Error(), "Unable to parse range") {
		return fmt.Errorf("%w: %s: %v", tabular.ErrTableNotFound, table, err)
	}
	return fmt.Errorf("table %s: %w", table, err)
}
