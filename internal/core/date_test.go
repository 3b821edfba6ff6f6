package core

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   string
	}{
		{"iso", "2026-01-02"},
		{"slashes", "2026/01/02"},
		{"finnish", "2.1.2026"},
		{"finnish padded", "02.01.2026"},
		{"timestamp", "2026-01-02T10:30:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			if !ok {
				t.Fatalf("ParseDate(%q) failed", tt.in)
			}
			if !got.Equal(want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, want)
			}
		})
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, in := range []string{"", "not a date", "32.13.2026", "2026-13-40"} {
		if _, ok := ParseDate(in); ok {
			t.Errorf("ParseDate(%q) should fail", in)
		}
	}
}

func TestParseDateTimezoneInvariant(t *testing.T) {
	// A calendar-only input must not shift by process timezone.
	got, ok := ParseDate("2026-01-02")
	if !ok {
		t.Fatal("parse failed")
	}
	if got.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", got.Location())
	}
	y, m, d := got.Date()
	if y != 2026 || m != time.January || d != 2 {
		t.Errorf("got %04d-%02d-%02d, want 2026-01-02", y, m, d)
	}
}

func TestMonthKey(t *testing.T) {
	if got := MonthKey(time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)); got != "2026-09" {
		t.Errorf("MonthKey = %q, want 2026-09", got)
	}
}
