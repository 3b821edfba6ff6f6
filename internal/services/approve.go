package services

import (
	"context"

	"talous/internal/approve"
	"talous/internal/core"
)

func (s *Service) reconciler() *approve.Reconciler {
	return &approve.Reconciler{Store: s.Store, Names: s.Names, Clock: s.Clock}
}

func fill(d *Details, sum approve.Summary) {
	d.Approved = sum.Approved
	d.Rejected = sum.Rejected
	d.Untouched = sum.Untouched
}

// ApproveMerchantStaging promotes human-categorized merchant staging rows
// to the ledger.
func (s *Service) ApproveMerchantStaging(ctx context.Context) Result {
	return s.run(ctx, WorkflowApproveMerchantStaging, func(ctx context.Context, d *Details) error {
		sum, err := s.reconciler().ApproveStaging(ctx, s.Names.MerchantStaging, core.SourceCreditCard)
		fill(d, sum)
		return err
	})
}

// ApproveItemStaging promotes human-categorized receipt item staging rows
// to the ledger.
func (s *Service) ApproveItemStaging(ctx context.Context) Result {
	return s.run(ctx, WorkflowApproveItemStaging, func(ctx context.Context, d *Details) error {
		sum, err := s.reconciler().ApproveStaging(ctx, s.Names.ItemStaging, core.SourceReceipt)
		fill(d, sum)
		return err
	})
}

// ApproveUnknownMerchants promotes annotated unknown merchants to rules.
func (s *Service) ApproveUnknownMerchants(ctx context.Context) Result {
	return s.run(ctx, WorkflowApproveUnknownMerchants, func(ctx context.Context, d *Details) error {
		sum, err := s.reconciler().ApproveUnknowns(ctx, s.Names.UnknownMerchants)
		fill(d, sum)
		return err
	})
}

// ApproveUnknownItems promotes annotated unknown items to rules.
func (s *Service) ApproveUnknownItems(ctx context.Context) Result {
	return s.run(ctx, WorkflowApproveUnknownItems, func(ctx context.Context, d *Details) error {
		sum, err := s.reconciler().ApproveUnknowns(ctx, s.Names.UnknownItems)
		fill(d, sum)
		return err
	})
}
