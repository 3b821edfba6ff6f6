package approve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"talous/internal/core"
	"talous/internal/dedup"
	"talous/internal/rules"
	"talous/internal/tables"
	"talous/internal/tabular"
)

// Summary counts one reconciliation run's row outcomes.
type Summary struct {
	Approved  int // rows transitioned to APPROVED
	Rejected  int // rows transitioned to ERROR
	Untouched int // terminal rows and rows still awaiting human input
}

// Reconciler runs the two approval flows over one spreadsheet. Terminal
// rows (APPROVED, ERROR) are never reprocessed, so re-running after a
// partial failure is safe.
type Reconciler struct {
	Store tabular.Store
	Names tables.Names
	// Clock stamps posted_at; nil means time.Now.
	Clock func() time.Time
}

func (r *Reconciler) now() string {
	clock := r.Clock
	if clock == nil {
		clock = time.Now
	}
	return clock().UTC().Format(time.RFC3339)
}

// ApproveStaging promotes staging rows whose group and category a human
// has filled in. Valid pairs become ledger entries under their canonical
// spelling; invalid pairs mark the row ERROR and the run continues. The
// ledger write happens before the staging row turns terminal, and a tx id
// already present in the ledger is not written twice, so a crash between
// the two writes heals on the next run.
func (r *Reconciler) ApproveStaging(ctx context.Context, table string, source core.Source) (Summary, error) {
	var sum Summary
	cats, err := LoadCategories(ctx, r.Store, r.Names.Categories)
	if err != nil {
		return sum, err
	}
	posted, err := r.Store.GetColumnValues(ctx, r.Names.Ledger, tables.ColTxID)
	if err != nil {
		return sum, fmt.Errorf("read ledger tx ids: %w", err)
	}
	ledgerIDs := dedup.NewIDSet(posted)

	stagingRows, err := r.Store.GetRows(ctx, table)
	if err != nil {
		return sum, fmt.Errorf("read staging table %s: %w", table, err)
	}

	for _, row := range stagingRows {
		entry, err := tables.DecodeStaging(row)
		if err != nil {
			// A human broke the row; flag it and move on.
			if err := r.markError(ctx, table, row.Ref); err != nil {
				return sum, err
			}
			sum.Rejected++
			continue
		}
		if entry.Status.Terminal() {
			sum.Untouched++
			continue
		}
		if strings.TrimSpace(entry.Group) == "" || strings.TrimSpace(entry.Category) == "" {
			sum.Untouched++
			continue
		}

		cat, ok := cats.Lookup(entry.Group, entry.Category)
		if !ok {
			if err := r.markError(ctx, table, row.Ref); err != nil {
				return sum, err
			}
			sum.Rejected++
			continue
		}

		if err := r.post(ctx, entry, cat, source, ledgerIDs); err != nil {
			return sum, err
		}
		update := tabular.NewRow(map[string]string{
			tables.ColGroup:    cat.Group,
			tables.ColCategory: cat.Category,
			tables.ColStatus:   string(core.StatusApproved),
			tables.ColPostedAt: r.now(),
		})
		if err := r.Store.UpdateRow(ctx, table, row.Ref, update); err != nil {
			return sum, fmt.Errorf("mark staging row %s approved: %w", row.Ref, err)
		}
		sum.Approved++
	}
	return sum, nil
}

// post appends the ledger entry for an approved staging row unless its tx
// id is already posted. Refund rows carry no tx id; one is derived here so
// a re-approval after a crash stays idempotent.
func (r *Reconciler) post(ctx context.Context, entry core.StagingEntry, cat core.Category, source core.Source, ledgerIDs dedup.IDSet) error {
	txID := strings.TrimSpace(entry.TxID)
	if txID == "" {
		txID = dedup.MakeID(entry.Date, entry.Entity, entry.Amount, source)
	}
	if !ledgerIDs.Add(txID) {
		return nil
	}
	day, ok := core.ParseDate(entry.Date)
	if !ok {
		return fmt.Errorf("staging entry %s: unparsable date %q", txID, entry.Date)
	}
	ledger := core.LedgerEntry{
		TxID:     txID,
		Date:     core.FormatDate(day),
		Month:    core.MonthKey(day),
		Entity:   entry.Entity,
		Amount:   entry.Amount,
		Group:    cat.Group,
		Category: cat.Category,
		PostedAt: r.now(),
		Source:   source,
	}
	if err := ledger.Validate(); err != nil {
		return fmt.Errorf("ledger entry %s: %w", txID, err)
	}
	if err := r.Store.AppendRows(ctx, r.Names.Ledger, []tabular.Row{tables.EncodeLedger(ledger)}); err != nil {
		return fmt.Errorf("append ledger entry %s: %w", txID, err)
	}
	return nil
}

// ApproveUnknowns promotes annotated unknown-entity rows to new rules.
// A row is eligible once a human has filled group, category and mode.
// Duplicate patterns and invalid modes mark the row ERROR; skip-mode
// promotions bypass category validation since a skip rule needs none.
func (r *Reconciler) ApproveUnknowns(ctx context.Context, unknownTable string) (Summary, error) {
	var sum Summary
	cats, err := LoadCategories(ctx, r.Store, r.Names.Categories)
	if err != nil {
		return sum, err
	}
	patterns, err := r.Store.GetColumnValues(ctx, r.Names.Rules, tables.ColPattern)
	if err != nil {
		return sum, fmt.Errorf("read rule patterns: %w", err)
	}
	existing := make(map[string]struct{}, len(patterns))
	for _, p := range patterns {
		if p = rules.Normalize(p); p != "" {
			existing[p] = struct{}{}
		}
	}

	unknownRows, err := r.Store.GetRows(ctx, unknownTable)
	if err != nil {
		return sum, fmt.Errorf("read unknown-entity table %s: %w", unknownTable, err)
	}

	for _, row := range unknownRows {
		entity, err := tables.DecodeUnknown(row)
		if err != nil {
			if err := r.markError(ctx, unknownTable, row.Ref); err != nil {
				return sum, err
			}
			sum.Rejected++
			continue
		}
		if entity.Status.Terminal() {
			sum.Untouched++
			continue
		}
		mode := strings.TrimSpace(entity.Mode)
		needsCategory := mode != string(core.ModeSkip)
		if mode == "" || (needsCategory && (strings.TrimSpace(entity.Group) == "" || strings.TrimSpace(entity.Category) == "")) {
			sum.Untouched++
			continue
		}

		rule, ok := r.buildRule(entity, mode, cats, existing)
		if !ok {
			if err := r.markError(ctx, unknownTable, row.Ref); err != nil {
				return sum, err
			}
			sum.Rejected++
			continue
		}

		if err := r.Store.AppendRows(ctx, r.Names.Rules, []tabular.Row{tables.EncodeRule(rule)}); err != nil {
			return sum, fmt.Errorf("append rule %q: %w", rule.Pattern, err)
		}
		existing[rule.Pattern] = struct{}{}
		update := tabular.NewRow(map[string]string{
			tables.ColStatus: string(core.StatusApproved),
		})
		if err := r.Store.UpdateRow(ctx, unknownTable, row.Ref, update); err != nil {
			return sum, fmt.Errorf("mark unknown entity %q approved: %w", entity.Key, err)
		}
		sum.Approved++
	}
	return sum, nil
}

// buildRule validates one annotated unknown entity and shapes the rule it
// promotes to. ok is false when the row must be rejected.
func (r *Reconciler) buildRule(entity core.UnknownEntity, mode string, cats *Categories, existing map[string]struct{}) (core.Rule, bool) {
	if !core.ValidMode(mode) {
		return core.Rule{}, false
	}
	pattern := rules.Normalize(entity.Key)
	if _, dup := existing[pattern]; dup {
		return core.Rule{}, false
	}
	rule := core.Rule{Pattern: pattern, Mode: core.Mode(mode)}
	if rule.Mode != core.ModeSkip {
		cat, ok := cats.Lookup(entity.Group, entity.Category)
		if !ok {
			return core.Rule{}, false
		}
		rule.Group = cat.Group
		rule.Category = cat.Category
	}
	return rule, true
}

func (r *Reconciler) markError(ctx context.Context, table string, ref tabular.RowRef) error {
	update := tabular.NewRow(map[string]string{
		tables.ColStatus: string(core.StatusError),
	})
	if err := r.Store.UpdateRow(ctx, table, ref, update); err != nil {
		return fmt.Errorf("mark row %s error: %w", ref, err)
	}
	return nil
}
