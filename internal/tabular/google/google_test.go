package google

import "testing"

func TestColumnLetter(t *testing.T) {
	tests := []struct {
		idx  int
		want string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
		{701, "ZZ"},
		{702, "AAA"},
	}
	for _, tt := range tests {
		if got := columnLetter(tt.idx); got != tt.want {
			t.Errorf("columnLetter(%d) = %q, want %q", tt.idx, got, tt.want)
		}
	}
}

func TestStringCells(t *testing.T) {
	got := stringCells([]any{"a", nil, 12.5, true})
	want := []string{"a", "", "12.5", "true"}
	if len(got) != len(want) {
		t.Fatalf("stringCells length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stringCells[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
