package services

import (
	"context"
	"io"

	"talous/internal/router"
	"talous/internal/statement"
	"talous/internal/unknown"
)

// ImportCreditCard routes one statement CSV export. A header missing a
// required column aborts the whole file with zero rows written; malformed
// data rows are dropped silently and counted.
func (s *Service) ImportCreditCard(ctx context.Context, csv io.Reader) Result {
	return s.run(ctx, WorkflowImportCreditCard, func(ctx context.Context, d *Details) error {
		records, err := statement.Read(csv, s.Columns)
		if err != nil {
			return err
		}

		matcher, err := s.loadMatcher(ctx)
		if err != nil {
			return err
		}
		seen, err := s.seenIDs(ctx, s.Names.MerchantStaging)
		if err != nil {
			return err
		}
		unknowns, err := unknown.Load(ctx, s.Store, s.Names.UnknownMerchants)
		if err != nil {
			return err
		}

		rt := router.CreditCard{
			BudgetYear: s.BudgetYear,
			Matcher:    matcher,
			Seen:       seen,
			Unknowns:   unknowns,
			Clock:      s.Clock,
		}
		buckets := rt.Route(records)

		if err := s.persistBuckets(ctx, buckets, s.Names.MerchantStaging, d); err != nil {
			return err
		}
		d.Unknowns = unknowns.Dirty()
		return unknowns.Flush(ctx, s.Store)
	})
}
