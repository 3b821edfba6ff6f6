package services

import (
	"errors"
	"time"

	"talous/internal/statement"
	"talous/internal/tabular"
)

// Workflow names, used in logs, notifications and the CLI.
const (
	WorkflowImportCreditCard        = "import-credit-card"
	WorkflowImportReceipts          = "import-receipts"
	WorkflowApproveMerchantStaging  = "approve-merchant-staging"
	WorkflowApproveUnknownMerchants = "approve-unknown-merchants"
	WorkflowApproveItemStaging      = "approve-item-staging"
	WorkflowApproveUnknownItems     = "approve-unknown-items"
)

// Failure codes carried on Result and FailureNotice.
const (
	CodeCallBudget = "CALL_BUDGET"
	CodeBadInput   = "BAD_INPUT"
	CodePanic      = "PANIC"
	CodeInternal   = "INTERNAL"
)

// Details carries the per-run counters. Import workflows fill the bucket
// counters, approval workflows the approval ones.
type Details struct {
	Ready      int
	Staged     int
	Skipped    int
	Dropped    int
	Duplicates int
	Unknowns   int
	Files      int

	Approved  int
	Rejected  int
	Untouched int
}

// Result is the structured outcome every workflow entrypoint returns.
// Callers never see a raw error or panic from a workflow.
type Result struct {
	RunID    string
	Workflow string
	Success  bool
	Error    string
	Code     string
	Details  Details
	Duration time.Duration
}

func classify(err error) string {
	switch {
	case errors.Is(err, tabular.ErrCallBudgetExceeded):
		return CodeCallBudget
	case errors.Is(err, statement.ErrMissingColumn):
		return CodeBadInput
	default:
		return CodeInternal
	}
}
