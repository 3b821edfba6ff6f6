package statement

import (
	"errors"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	input := `Date of payment,Location of purchase,Transaction amount
2026-01-02,Foo Store,-12.34
2026-01-03,"Bar, Inc.","-5,00"
2026-01-04,"Quote ""Shop""",-1.00
`
	records, err := Read(strings.NewReader(input), DefaultColumns())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0].Entity != "Foo Store" || records[0].Amount != "-12.34" {
		t.Errorf("record 0 = %+v", records[0])
	}
	if records[1].Entity != "Bar, Inc." {
		t.Errorf("quoted comma entity = %q", records[1].Entity)
	}
	if records[2].Entity != `Quote "Shop"` {
		t.Errorf("doubled-quote escape = %q", records[2].Entity)
	}
}

func TestReadColumnOrderIndependent(t *testing.T) {
	input := `Transaction amount,Extra,Date of payment,Location of purchase
-9.99,x,2026-02-01,Shuffled Shop
`
	records, err := Read(strings.NewReader(input), DefaultColumns())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 1 || records[0].Entity != "Shuffled Shop" || records[0].Date != "2026-02-01" {
		t.Errorf("records = %+v", records)
	}
}

func TestReadMissingColumn(t *testing.T) {
	input := `Date of payment,Location of purchase
2026-01-02,Foo Store
`
	_, err := Read(strings.NewReader(input), DefaultColumns())
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("got %v, want ErrMissingColumn", err)
	}
	if !strings.Contains(err.Error(), "Transaction amount") {
		t.Errorf("error should name the missing column: %v", err)
	}
}

func TestReadShortRowsDropped(t *testing.T) {
	input := `Date of payment,Location of purchase,Transaction amount
2026-01-02
2026-01-03,Full Row,-1.00
`
	records, err := Read(strings.NewReader(input), DefaultColumns())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 1 || records[0].Entity != "Full Row" {
		t.Errorf("records = %+v", records)
	}
}

func TestReadEmpty(t *testing.T) {
	if _, err := Read(strings.NewReader(""), DefaultColumns()); err == nil {
		t.Fatal("empty input should error")
	}
}
