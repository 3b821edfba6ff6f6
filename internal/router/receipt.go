package router

import (
	"math"
	"strings"
	"time"

	"talous/internal/core"
	"talous/internal/dedup"
	"talous/internal/rules"
	"talous/internal/unknown"
)

// Receipt routes parsed receipt line items, mirroring the credit-card
// dispatch per item instead of per statement row. The caller handles the
// per-file bookkeeping (a receipt without a usable date never reaches the
// router), so only item-level concerns live here.
type Receipt struct {
	Matcher  *rules.Matcher
	Seen     dedup.IDSet
	Unknowns *unknown.Index
	Clock    func() time.Time
}

// Route dispatches every item of one receipt. The date is the receipt's
// ISO date; receiptID links skipped rows back to their source document
// for cross-verification against the statement.
func (r *Receipt) Route(receiptID string, date string, items []core.ReceiptItem) Buckets {
	var out Buckets
	for _, item := range items {
		r.routeOne(receiptID, date, item, &out)
	}
	return out
}

func (r *Receipt) routeOne(receiptID, date string, item core.ReceiptItem, out *Buckets) {
	name := strings.TrimSpace(item.Name)
	if name == "" || math.IsNaN(item.Amount) || item.Amount <= 0 {
		out.Dropped++
		return
	}
	amount := core.Round2(item.Amount)
	id := dedup.MakeID(date, name, amount, core.SourceReceipt)
	if !r.Seen.Add(id) {
		out.Duplicates++
		return
	}
	posted := timestamp(r.Clock)

	rule, matched := r.Matcher.Find(name)
	if !matched {
		out.Staging = append(out.Staging, core.StagingEntry{
			TxID:     id,
			Date:     date,
			Entity:   name,
			Amount:   amount,
			RuleMode: core.RouteUnknown,
			PostedAt: posted,
			Status:   core.StatusNeedsRule,
		})
		r.Unknowns.Upsert(name, date)
		return
	}

	switch rule.Mode {
	case core.ModeSkip:
		out.Skipped = append(out.Skipped, core.SkippedEntry{
			TxID:      id,
			Date:      date,
			Entity:    name,
			Amount:    amount,
			ReceiptID: receiptID,
		})
	case core.ModeReview:
		out.Staging = append(out.Staging, core.StagingEntry{
			TxID:     id,
			Date:     date,
			Entity:   name,
			Amount:   amount,
			RuleMode: core.RouteReview,
			Group:    rule.Group,
			Category: rule.Category,
			PostedAt: posted,
			Status:   core.StatusNeedsReview,
		})
	default: // auto
		day, _ := core.ParseDate(date)
		out.Ready = append(out.Ready, core.LedgerEntry{
			TxID:     id,
			Date:     date,
			Month:    core.MonthKey(day),
			Entity:   name,
			Amount:   amount,
			Group:    rule.Group,
			Category: rule.Category,
			PostedAt: posted,
			Source:   core.SourceReceipt,
		})
	}
}
