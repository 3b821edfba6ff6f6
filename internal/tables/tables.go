// Package tables fixes the column schemas of every backing table and
// converts between domain structs and header-keyed tabular rows.
package tables

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"talous/internal/core"
	"talous/internal/tabular"
)

// Column names, shared by every backend.
const (
	ColPattern     = "pattern"
	ColGroup       = "group"
	ColCategory    = "category"
	ColSubcategory = "subcategory"
	ColMode        = "mode"
	ColActive      = "active"

	ColTxID     = "tx_id"
	ColDate     = "date"
	ColMonth    = "month"
	ColEntity   = "entity"
	ColAmount   = "amount"
	ColRuleMode = "rule_mode"
	ColPostedAt = "posted_at"
	ColStatus   = "status"
	ColSource   = "source"

	ColReceiptID  = "receipt_id"
	ColVerified   = "verified"
	ColVerifiedAt = "verified_at"

	ColKey         = "key"
	ColDisplayName = "display_name"
	ColCount       = "count"
	ColFirstSeen   = "first_seen"
	ColLastSeen    = "last_seen"

	ColFileID      = "file_id"
	ColFileName    = "file_name"
	ColMerchant    = "merchant"
	ColTotal       = "total"
	ColItemsTotal  = "items"
	ColReadyCount  = "ready"
	ColStagedCount = "staged"
	ColProcessedAt = "processed_at"
)

// Names holds the table (sheet tab) names for one spreadsheet. All
// workflows receive a Names value instead of hardcoding tab names, which
// keeps test/staging spreadsheets isolated.
type Names struct {
	Rules            string
	Categories       string
	Ledger           string
	MerchantStaging  string
	ItemStaging      string
	Skipped          string
	UnknownMerchants string
	UnknownItems     string
	ReceiptFiles     string
}

// DefaultNames returns the production tab names.
func DefaultNames() Names {
	return Names{
		Rules:            "Rules",
		Categories:       "Categories",
		Ledger:           "Ledger",
		MerchantStaging:  "MerchantStaging",
		ItemStaging:      "ItemStaging",
		Skipped:          "Skipped",
		UnknownMerchants: "UnknownMerchants",
		UnknownItems:     "UnknownItems",
		ReceiptFiles:     "ReceiptFiles",
	}
}

// Headers maps each table name to its column header row, in storage order.
func (n Names) Headers() map[string][]string {
	staging := []string{ColTxID, ColDate, ColEntity, ColAmount, ColRuleMode, ColGroup, ColCategory, ColPostedAt, ColStatus}
	unknown := []string{ColKey, ColDisplayName, ColGroup, ColCategory, ColMode, ColCount, ColFirstSeen, ColLastSeen, ColStatus}
	return map[string][]string{
		n.Rules:            {ColPattern, ColGroup, ColCategory, ColMode},
		n.Categories:       {ColGroup, ColCategory, ColSubcategory, ColActive},
		n.Ledger:           {ColTxID, ColDate, ColMonth, ColEntity, ColAmount, ColGroup, ColCategory, ColPostedAt, ColSource},
		n.MerchantStaging:  staging,
		n.ItemStaging:      staging,
		n.Skipped:          {ColTxID, ColDate, ColEntity, ColAmount, ColReceiptID, ColVerified, ColVerifiedAt},
		n.UnknownMerchants: unknown,
		n.UnknownItems:     unknown,
		n.ReceiptFiles:     {ColFileID, ColFileName, ColReceiptID, ColMerchant, ColDate, ColTotal, ColItemsTotal, ColReadyCount, ColStagedCount, ColStatus, ColProcessedAt},
	}
}

// FormatAmount renders an amount the way every table stores it.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(core.Round2(v), 'f', 2, 64)
}

func parseAmountCell(s string) (float64, error) {
	v := core.ParseAmount(s)
	if math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)
	}
	return v, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y":
		return true
	}
	return false
}

func formatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// EncodeLedger converts a ledger entry to a row.
func EncodeLedger(e core.LedgerEntry) tabular.Row {
	return tabular.NewRow(map[string]string{
		ColTxID:     e.TxID,
		ColDate:     e.Date,
		ColMonth:    e.Month,
		ColEntity:   e.Entity,
		ColAmount:   FormatAmount(e.Amount),
		ColGroup:    e.Group,
		ColCategory: e.Category,
		ColPostedAt: e.PostedAt,
		ColSource:   string(e.Source),
	})
}

// EncodeStaging converts a staging entry to a row.
func EncodeStaging(e core.StagingEntry) tabular.Row {
	return tabular.NewRow(map[string]string{
		ColTxID:     e.TxID,
		ColDate:     e.Date,
		ColEntity:   e.Entity,
		ColAmount:   FormatAmount(e.Amount),
		ColRuleMode: string(e.RuleMode),
		ColGroup:    e.Group,
		ColCategory: e.Category,
		ColPostedAt: e.PostedAt,
		ColStatus:   string(e.Status),
	})
}

// DecodeStaging reads a staging row back into a domain struct. The amount
// must parse; everything else is taken verbatim.
func DecodeStaging(r tabular.Row) (core.StagingEntry, error) {
	amount, err := parseAmountCell(r.Get(ColAmount))
	if err != nil {
		return core.StagingEntry{}, fmt.Errorf("staging row %s: %w", r.Ref, err)
	}
	return core.StagingEntry{
		TxID:     r.Get(ColTxID),
		Date:     r.Get(ColDate),
		Entity:   r.Get(ColEntity),
		Amount:   amount,
		RuleMode: core.RouteMode(r.Get(ColRuleMode)),
		Group:    r.Get(ColGroup),
		Category: r.Get(ColCategory),
		PostedAt: r.Get(ColPostedAt),
		Status:   core.Status(r.Get(ColStatus)),
	}, nil
}

// EncodeSkipped converts a skipped entry to a row.
func EncodeSkipped(e core.SkippedEntry) tabular.Row {
	return tabular.NewRow(map[string]string{
		ColTxID:       e.TxID,
		ColDate:       e.Date,
		ColEntity:     e.Entity,
		ColAmount:     FormatAmount(e.Amount),
		ColReceiptID:  e.ReceiptID,
		ColVerified:   formatBool(e.Verified),
		ColVerifiedAt: e.VerifiedAt,
	})
}

// EncodeUnknown converts an unknown-entity record to a row.
func EncodeUnknown(u core.UnknownEntity) tabular.Row {
	return tabular.NewRow(map[string]string{
		ColKey:         u.Key,
		ColDisplayName: u.DisplayName,
		ColGroup:       u.Group,
		ColCategory:    u.Category,
		ColMode:        u.Mode,
		ColCount:       strconv.Itoa(u.Count),
		ColFirstSeen:   u.FirstSeen,
		ColLastSeen:    u.LastSeen,
		ColStatus:      string(u.Status),
	})
}

// DecodeUnknown reads an unknown-entity row. A blank count is treated as 1
// (hand-added rows), a blank status as NEEDS_REVIEW.
func DecodeUnknown(r tabular.Row) (core.UnknownEntity, error) {
	key := strings.TrimSpace(r.Get(ColKey))
	if key == "" {
		return core.UnknownEntity{}, fmt.Errorf("unknown-entity row %s: %w", r.Ref, core.ErrEmptyEntity)
	}
	count := 1
	if raw := strings.TrimSpace(r.Get(ColCount)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return core.UnknownEntity{}, fmt.Errorf("unknown-entity row %s: bad count %q", r.Ref, raw)
		}
		count = n
	}
	status := core.Status(strings.TrimSpace(r.Get(ColStatus)))
	if status == "" {
		status = core.StatusNeedsReview
	}
	return core.UnknownEntity{
		Key:         key,
		DisplayName: r.Get(ColDisplayName),
		Group:       r.Get(ColGroup),
		Category:    r.Get(ColCategory),
		Mode:        strings.TrimSpace(r.Get(ColMode)),
		Count:       count,
		FirstSeen:   r.Get(ColFirstSeen),
		LastSeen:    r.Get(ColLastSeen),
		Status:      status,
	}, nil
}

// EncodeRule converts a rule to a row (used when approvals promote an
// unknown entity into the rule table).
func EncodeRule(r core.Rule) tabular.Row {
	return tabular.NewRow(map[string]string{
		ColPattern:  r.Pattern,
		ColGroup:    r.Group,
		ColCategory: r.Category,
		ColMode:     string(r.Mode),
	})
}

// DecodeCategory reads a taxonomy row. Active defaults to false so only
// explicitly activated rows are approval targets.
func DecodeCategory(r tabular.Row) core.Category {
	return core.Category{
		Group:       r.Get(ColGroup),
		Category:    r.Get(ColCategory),
		Subcategory: r.Get(ColSubcategory),
		Active:      parseBool(r.Get(ColActive)),
	}
}
