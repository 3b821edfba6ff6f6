package core

import (
	"errors"
	"math"
	"strings"
)

// Mode is the per-rule disposition: fully automatic posting, human review,
// or ignore entirely.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeReview Mode = "review"
	ModeSkip   Mode = "skip"
)

// RouteMode records why a staging entry exists. It extends Mode with the
// two router-derived outcomes that never appear in the rule table.
type RouteMode string

const (
	RouteReview  RouteMode = "review"
	RouteUnknown RouteMode = "unknown"
	RouteRefund  RouteMode = "refund"
)

// Status is the lifecycle state of staging rows and unknown-entity rows.
// Approved and Error are terminal.
type Status string

const (
	StatusNeedsReview Status = "NEEDS_REVIEW"
	StatusNeedsRule   Status = "NEEDS_RULE"
	StatusApproved    Status = "APPROVED"
	StatusError       Status = "ERROR"
)

// Terminal reports whether the status may never change again.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusError
}

// Source identifies which document kind produced a ledger entry.
type Source string

const (
	SourceCreditCard Source = "credit_card"
	SourceReceipt    Source = "receipt"
)

var (
	ErrEmptyPattern   = errors.New("empty rule pattern")
	ErrInvalidMode    = errors.New("invalid rule mode")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyEntity    = errors.New("empty entity name")
	ErrEmptyCategory  = errors.New("empty group or category")
	ErrUnknownStatus  = errors.New("unknown status value")
	ErrTerminalStatus = errors.New("status is terminal")
)

type (
	// Rule maps a normalized substring pattern to a group/category pair and
	// a disposition mode. Immutable once loaded for a run.
	Rule struct {
		Pattern  string
		Group    string
		Category string
		Mode     Mode
	}

	// LedgerEntry is a fully categorized, posted transaction. The ledger is
	// append-only; entries are never mutated after creation.
	LedgerEntry struct {
		TxID     string
		Date     string // ISO-8601 calendar date
		Month    string // YYYY-MM
		Entity   string
		Amount   float64 // always the absolute spend magnitude
		Group    string
		Category string
		PostedAt string // RFC3339 timestamp
		Source   Source
	}

	// StagingEntry holds a transaction awaiting human categorization.
	StagingEntry struct {
		TxID     string // empty for refunds (no dedup applied)
		Date     string
		Entity   string
		Amount   float64
		RuleMode RouteMode
		Group    string
		Category string
		PostedAt string
		Status   Status
	}

	// SkippedEntry records a transaction matched by a skip rule. Kept for
	// receipt cross-verification, never promoted to the ledger.
	SkippedEntry struct {
		TxID       string
		Date       string
		Entity     string
		Amount     float64
		ReceiptID  string
		Verified   bool
		VerifiedAt string
	}

	// UnknownEntity tracks a merchant or item name with no matching rule.
	// Count and LastSeen advance on every encounter; DisplayName and
	// FirstSeen are fixed at first sight.
	UnknownEntity struct {
		Key         string // normalized form, primary key
		DisplayName string // first-seen raw form
		Group       string
		Category    string
		Mode        string // filled by a human before rule promotion
		Count       int
		FirstSeen   string
		LastSeen    string
		Status      Status
	}

	// Category is one row of the read-only reference taxonomy.
	Category struct {
		Group       string
		Category    string
		Subcategory string
		Active      bool
	}

	// ReceiptItem is a single line item extracted from a receipt.
	ReceiptItem struct {
		Name   string
		Amount float64
	}

	// ParsedReceipt is the best-effort structured form of one receipt
	// document. Date is empty and Total is NaN when extraction failed;
	// neither is an error.
	ParsedReceipt struct {
		Merchant string
		Date     string // ISO-8601 or empty
		Total    float64
		Items    []ReceiptItem
		RawText  string
	}
)

// ValidMode reports whether s is one of the three rule dispositions.
func ValidMode(s string) bool {
	switch Mode(s) {
	case ModeAuto, ModeReview, ModeSkip:
		return true
	}
	return false
}

func (r Rule) Validate() error {
	if strings.TrimSpace(r.Pattern) == "" {
		return ErrEmptyPattern
	}
	if !ValidMode(string(r.Mode)) {
		return ErrInvalidMode
	}
	return nil
}

func (e LedgerEntry) Validate() error {
	if strings.TrimSpace(e.Entity) == "" {
		return ErrEmptyEntity
	}
	if math.IsNaN(e.Amount) || e.Amount < 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Group) == "" || strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// HasTotal reports whether a total was found on the receipt.
func (p ParsedReceipt) HasTotal() bool {
	return !math.IsNaN(p.Total)
}
