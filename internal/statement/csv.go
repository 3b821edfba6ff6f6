// Package statement reads credit-card statement CSV exports. The header
// contract is verbatim: configured column names must appear exactly, and
// a missing column aborts the whole file since it signals a structural
// change in the export format rather than routine bad data.
package statement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMissingColumn wraps header mismatches so callers can distinguish the
// fatal structural case from per-row noise.
var ErrMissingColumn = errors.New("statement header missing column")

// Columns names the three required statement columns. Names must match
// the CSV header verbatim.
type Columns struct {
	Date   string
	Entity string
	Amount string
}

// DefaultColumns returns the card issuer's export header names.
func DefaultColumns() Columns {
	return Columns{
		Date:   "Date of payment",
		Entity: "Location of purchase",
		Amount: "Transaction amount",
	}
}

// Record is one raw statement row. Values are unparsed; the router owns
// date/amount parsing and malformed-row dropping.
type Record struct {
	Date   string
	Entity string
	Amount string
}

// Read parses a statement CSV (RFC-4180 quoting, doubled-quote escapes).
// Rows too short to carry all three columns are dropped silently.
func Read(r io.Reader, cols Columns) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("statement is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read statement header: %w", err)
	}

	dateIdx, err := findColumn(header, cols.Date)
	if err != nil {
		return nil, err
	}
	entityIdx, err := findColumn(header, cols.Entity)
	if err != nil {
		return nil, err
	}
	amountIdx, err := findColumn(header, cols.Amount)
	if err != nil {
		return nil, err
	}

	max := dateIdx
	if entityIdx > max {
		max = entityIdx
	}
	if amountIdx > max {
		max = amountIdx
	}

	var out []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read statement row: %w", err)
		}
		if len(row) <= max {
			continue
		}
		out = append(out, Record{
			Date:   strings.TrimSpace(row[dateIdx]),
			Entity: strings.TrimSpace(row[entityIdx]),
			Amount: strings.TrimSpace(row[amountIdx]),
		})
	}
	return out, nil
}

func findColumn(header []string, name string) (int, error) {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrMissingColumn, name)
}
