// Package services hosts the workflow entrypoints. Every workflow runs
// behind the same boundary: panics are recovered, errors are classified
// into codes, the outcome is logged and published best-effort, and the
// caller gets a structured Result.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"talous/internal/amqp"
	"talous/internal/dedup"
	"talous/internal/filestore"
	"talous/internal/log"
	"talous/internal/ocr"
	"talous/internal/router"
	"talous/internal/rules"
	"talous/internal/statement"
	"talous/internal/tables"
	"talous/internal/tabular"
)

// Notifier publishes run outcomes to interested consumers. Implemented by
// *amqp.Client; nil disables notifications.
type Notifier interface {
	PublishRunSummary(ctx context.Context, msg *amqp.RunSummary) error
	PublishFailure(ctx context.Context, msg *amqp.FailureNotice) error
}

// Service wires the workflows to their collaborators. All fields except
// Store and Names are optional for workflows that do not use them.
type Service struct {
	Store     tabular.Store
	Names     tables.Names
	Files     filestore.Store
	Extractor ocr.Extractor
	Notifier  Notifier
	Log       *log.Logger
	// Clock stamps posted_at and drives the receipt time budget; nil
	// means time.Now.
	Clock func() time.Time

	BudgetYear    int
	Policy        rules.AmbiguityPolicy
	Columns       statement.Columns
	DriveFolderID string

	// ReceiptBatchSize caps files per invocation; ReceiptTimeBudget stops
	// the batch early once elapsed. Zero disables the respective limit.
	ReceiptBatchSize  int
	ReceiptTimeBudget time.Duration
}

var fallbackLogger = log.New(slog.LevelInfo, log.ComponentService)

func (s *Service) logger() *log.Logger {
	if s.Log != nil {
		return s.Log
	}
	return fallbackLogger
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// run is the shared workflow boundary.
func (s *Service) run(ctx context.Context, workflow string, fn func(ctx context.Context, d *Details) error) Result {
	res := Result{RunID: uuid.NewString(), Workflow: workflow}
	started := time.Now()
	logger := s.logger()

	func() {
		defer func() {
			if r := recover(); r != nil {
				res.Error = fmt.Sprintf("panic: %v", r)
				res.Code = CodePanic
				logger.Error("workflow panicked",
					log.FieldWorkflow, workflow,
					log.FieldRunID, res.RunID,
					log.FieldError, res.Error,
					"stack", string(debug.Stack()))
			}
		}()
		if err := fn(ctx, &res.Details); err != nil {
			res.Error = err.Error()
			res.Code = classify(err)
		}
	}()

	res.Success = res.Error == ""
	res.Duration = time.Since(started)

	fields := log.NewFields().
		WithWorkflow(workflow, res.RunID).
		WithBuckets(res.Details.Ready, res.Details.Staged, res.Details.Skipped, res.Details.Dropped, res.Details.Duplicates)
	fields[log.FieldSuccess] = res.Success
	fields[log.FieldDuration] = res.Duration.Milliseconds()
	fields[log.FieldUnknowns] = res.Details.Unknowns
	fields[log.FieldFiles] = res.Details.Files
	fields[log.FieldApproved] = res.Details.Approved
	fields[log.FieldRejected] = res.Details.Rejected
	if res.Success {
		logger.Info("workflow finished", fields.ToSlice()...)
	} else {
		fields[log.FieldError] = res.Error
		logger.Error("workflow failed", fields.ToSlice()...)
	}

	s.notify(ctx, res)
	return res
}

// notify publishes the run summary and, on failure, a failure notice.
// Publish errors are logged and swallowed: notification is best-effort
// and never changes a workflow's outcome.
func (s *Service) notify(ctx context.Context, res Result) {
	if s.Notifier == nil {
		return
	}
	summary := &amqp.RunSummary{
		RunID:      res.RunID,
		Workflow:   res.Workflow,
		Success:    res.Success,
		Error:      res.Error,
		Ready:      res.Details.Ready,
		Staged:     res.Details.Staged,
		Skipped:    res.Details.Skipped,
		Dropped:    res.Details.Dropped,
		Duplicates: res.Details.Duplicates,
		Unknowns:   res.Details.Unknowns,
		Files:      res.Details.Files,
		Approved:   res.Details.Approved,
		Rejected:   res.Details.Rejected,
		DurationMS: res.Duration.Milliseconds(),
		Timestamp:  s.now().UTC(),
	}
	if err := s.Notifier.PublishRunSummary(ctx, summary); err != nil {
		s.logger().Warn("publish run summary failed",
			log.FieldRunID, res.RunID, log.FieldError, err.Error())
	}
	if res.Success {
		return
	}
	notice := &amqp.FailureNotice{
		RunID:     res.RunID,
		Workflow:  res.Workflow,
		Error:     res.Error,
		Code:      res.Code,
		Timestamp: s.now().UTC(),
	}
	if err := s.Notifier.PublishFailure(ctx, notice); err != nil {
		s.logger().Warn("publish failure notice failed",
			log.FieldRunID, res.RunID, log.FieldError, err.Error())
	}
}

func (s *Service) loadMatcher(ctx context.Context) (*rules.Matcher, error) {
	list, err := rules.LoadFromStore(ctx, s.Store, s.Names.Rules)
	if err != nil {
		return nil, err
	}
	return rules.NewMatcher(list, s.Policy), nil
}

// seenIDs seeds the dedup set with every tx id already persisted for this
// source: ledger, the source's staging table, and the skipped table.
// Re-importing an identical document therefore produces zero new rows.
func (s *Service) seenIDs(ctx context.Context, stagingTable string) (dedup.IDSet, error) {
	var all []string
	for _, table := range []string{s.Names.Ledger, stagingTable, s.Names.Skipped} {
		ids, err := s.Store.GetColumnValues(ctx, table, tables.ColTxID)
		if err != nil {
			return nil, fmt.Errorf("read tx ids from %s: %w", table, err)
		}
		all = append(all, ids...)
	}
	return dedup.NewIDSet(all), nil
}

func (s *Service) append(ctx context.Context, table string, rows []tabular.Row) error {
	if len(rows) == 0 {
		return nil
	}
	if err := s.Store.AppendRows(ctx, table, rows); err != nil {
		return fmt.Errorf("append to %s: %w", table, err)
	}
	return nil
}

// persistBuckets writes one routing run's output and accumulates counts.
func (s *Service) persistBuckets(ctx context.Context, b router.Buckets, stagingTable string, d *Details) error {
	ledgerRows := make([]tabular.Row, 0, len(b.Ready))
	for _, e := range b.Ready {
		ledgerRows = append(ledgerRows, tables.EncodeLedger(e))
	}
	if err := s.append(ctx, s.Names.Ledger, ledgerRows); err != nil {
		return err
	}

	stagingRows := make([]tabular.Row, 0, len(b.Staging))
	for _, e := range b.Staging {
		stagingRows = append(stagingRows, tables.EncodeStaging(e))
	}
	if err := s.append(ctx, stagingTable, stagingRows); err != nil {
		return err
	}

	skippedRows := make([]tabular.Row, 0, len(b.Skipped))
	for _, e := range b.Skipped {
		skippedRows = append(skippedRows, tables.EncodeSkipped(e))
	}
	if err := s.append(ctx, s.Names.Skipped, skippedRows); err != nil {
		return err
	}

	d.Ready += len(b.Ready)
	d.Staged += len(b.Staging)
	d.Skipped += len(b.Skipped)
	d.Dropped += b.Dropped
	d.Duplicates += b.Duplicates
	return nil
}
