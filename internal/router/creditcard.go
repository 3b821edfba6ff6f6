package router

import (
	"math"
	"strings"
	"time"

	"talous/internal/core"
	"talous/internal/dedup"
	"talous/internal/rules"
	"talous/internal/statement"
	"talous/internal/unknown"
)

// CreditCard routes parsed statement rows. Statement amounts are negative
// for expenses and positive for refunds; persisted amounts are always the
// absolute spend magnitude.
type CreditCard struct {
	// BudgetYear is the import partition: rows dated in any other year
	// are dropped silently.
	BudgetYear int
	Matcher    *rules.Matcher
	// Seen holds the ledger's existing tx ids and grows as the run
	// progresses, so a row duplicated within one statement is also
	// caught.
	Seen     dedup.IDSet
	Unknowns *unknown.Index
	// Clock stamps posted_at; nil means time.Now.
	Clock func() time.Time
}

// Route dispatches every record to exactly one bucket. Malformed rows
// (missing entity, unparsable date or amount) are dropped, not errored.
func (r *CreditCard) Route(records []statement.Record) Buckets {
	var out Buckets
	for _, rec := range records {
		r.routeOne(rec, &out)
	}
	return out
}

func (r *CreditCard) routeOne(rec statement.Record, out *Buckets) {
	entity := strings.TrimSpace(rec.Entity)
	day, ok := core.ParseDate(rec.Date)
	amount := core.ParseAmount(rec.Amount)
	if entity == "" || !ok || math.IsNaN(amount) {
		out.Dropped++
		return
	}
	if day.Year() != r.BudgetYear {
		out.Dropped++
		return
	}
	date := core.FormatDate(day)
	posted := timestamp(r.Clock)

	// Refunds always need a human to say which purchase they offset, so
	// they go straight to staging without dedup or rule matching.
	if amount > 0 {
		out.Staging = append(out.Staging, core.StagingEntry{
			Date:     date,
			Entity:   entity,
			Amount:   core.Round2(amount),
			RuleMode: core.RouteRefund,
			PostedAt: posted,
			Status:   core.StatusNeedsReview,
		})
		return
	}

	abs := core.Round2(math.Abs(amount))
	id := dedup.MakeID(date, entity, abs, core.SourceCreditCard)
	if !r.Seen.Add(id) {
		out.Duplicates++
		return
	}

	rule, matched := r.Matcher.Find(entity)
	if !matched {
		out.Staging = append(out.Staging, core.StagingEntry{
			TxID:     id,
			Date:     date,
			Entity:   entity,
			Amount:   abs,
			RuleMode: core.RouteUnknown,
			PostedAt: posted,
			Status:   core.StatusNeedsRule,
		})
		r.Unknowns.Upsert(entity, date)
		return
	}

	switch rule.Mode {
	case core.ModeSkip:
		out.Skipped = append(out.Skipped, core.SkippedEntry{
			TxID:   id,
			Date:   date,
			Entity: entity,
			Amount: abs,
		})
	case core.ModeReview:
		out.Staging = append(out.Staging, core.StagingEntry{
			TxID:     id,
			Date:     date,
			Entity:   entity,
			Amount:   abs,
			RuleMode: core.RouteReview,
			Group:    rule.Group,
			Category: rule.Category,
			PostedAt: posted,
			Status:   core.StatusNeedsReview,
		})
	default: // auto
		out.Ready = append(out.Ready, core.LedgerEntry{
			TxID:     id,
			Date:     date,
			Month:    core.MonthKey(day),
			Entity:   entity,
			Amount:   abs,
			Group:    rule.Group,
			Category: rule.Category,
			PostedAt: posted,
			Source:   core.SourceCreditCard,
		})
	}
}
