package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"talous/internal/core"
	"talous/internal/dedup"
	"talous/internal/filestore"
	"talous/internal/log"
	"talous/internal/router"
	"talous/internal/rules"
	"talous/internal/tables"
	"talous/internal/tabular"
	"talous/internal/unknown"
)

// Receipt file outcomes recorded in the receipt-files table. Every listed
// file ends up with exactly one record, so the next run can skip it.
const (
	FileProcessed = "PROCESSED"
	FileNoDate    = "NO_DATE"
	FileOutOfYear = "OUT_OF_YEAR"
	FileError     = "ERROR"
)

// ImportReceipts processes unseen files from the receipt folder, at most
// ReceiptBatchSize per invocation and stopping early once the elapsed time
// exceeds ReceiptTimeBudget. Remaining files are picked up next run.
// Extraction failures are file-local: the file is recorded with an error
// status and the batch continues.
func (s *Service) ImportReceipts(ctx context.Context) Result {
	return s.run(ctx, WorkflowImportReceipts, func(ctx context.Context, d *Details) error {
		matcher, err := s.loadMatcher(ctx)
		if err != nil {
			return err
		}
		seen, err := s.seenIDs(ctx, s.Names.ItemStaging)
		if err != nil {
			return err
		}
		unknowns, err := unknown.Load(ctx, s.Store, s.Names.UnknownItems)
		if err != nil {
			return err
		}

		files, err := s.Files.ListFiles(ctx, s.DriveFolderID)
		if err != nil {
			return fmt.Errorf("list receipt folder: %w", err)
		}
		done, err := s.processedFileIDs(ctx)
		if err != nil {
			return err
		}

		started := s.now()
		for _, f := range files {
			if _, ok := done[f.ID]; ok {
				continue
			}
			if s.ReceiptBatchSize > 0 && d.Files >= s.ReceiptBatchSize {
				break
			}
			if s.ReceiptTimeBudget > 0 && d.Files > 0 && s.now().Sub(started) >= s.ReceiptTimeBudget {
				s.logger().Info("receipt time budget exhausted",
					log.FieldFiles, d.Files, log.FieldDuration, s.now().Sub(started).Milliseconds())
				break
			}
			if err := s.processReceiptFile(ctx, f, matcher, seen, unknowns, d); err != nil {
				return err
			}
			d.Files++
		}

		d.Unknowns = unknowns.Dirty()
		return unknowns.Flush(ctx, s.Store)
	})
}

func (s *Service) processedFileIDs(ctx context.Context) (map[string]struct{}, error) {
	ids, err := s.Store.GetColumnValues(ctx, s.Names.ReceiptFiles, tables.ColFileID)
	if err != nil {
		return nil, fmt.Errorf("read processed file ids: %w", err)
	}
	done := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		done[id] = struct{}{}
	}
	return done, nil
}

func (s *Service) processReceiptFile(ctx context.Context, f filestore.File, matcher *rules.Matcher, seen dedup.IDSet, unknowns *unknown.Index, d *Details) error {
	data, err := s.Files.ReadFileBytes(ctx, f.ID)
	if err != nil {
		return fmt.Errorf("read receipt %s: %w", f.Name, err)
	}
	parsed, err := s.Extractor.Extract(ctx, f, data)
	if err != nil {
		s.logger().Warn("receipt extraction failed",
			log.FieldFileID, f.ID, log.FieldFileName, f.Name, log.FieldError, err.Error())
		return s.recordReceiptFile(ctx, f, "", core.ParsedReceipt{Total: math.NaN()}, router.Buckets{}, FileError)
	}
	receiptID := uuid.NewString()

	if parsed.Date == "" {
		return s.recordReceiptFile(ctx, f, receiptID, parsed, router.Buckets{}, FileNoDate)
	}
	day, ok := core.ParseDate(parsed.Date)
	if !ok || day.Year() != s.BudgetYear {
		return s.recordReceiptFile(ctx, f, receiptID, parsed, router.Buckets{}, FileOutOfYear)
	}

	rt := router.Receipt{Matcher: matcher, Seen: seen, Unknowns: unknowns, Clock: s.Clock}
	buckets := rt.Route(receiptID, parsed.Date, parsed.Items)
	if err := s.persistBuckets(ctx, buckets, s.Names.ItemStaging, d); err != nil {
		return err
	}
	s.logger().Info("receipt processed",
		log.FieldFileName, f.Name,
		log.FieldMerchant, parsed.Merchant,
		log.FieldReady, len(buckets.Ready),
		log.FieldStaged, len(buckets.Staging))
	return s.recordReceiptFile(ctx, f, receiptID, parsed, buckets, FileProcessed)
}

// recordReceiptFile appends the per-file status record. It is written
// after the item rows, so a crash in between causes a reprocess whose
// item writes are suppressed by the dedup ids.
func (s *Service) recordReceiptFile(ctx context.Context, f filestore.File, receiptID string, parsed core.ParsedReceipt, b router.Buckets, status string) error {
	total := ""
	if parsed.HasTotal() {
		total = tables.FormatAmount(parsed.Total)
	}
	row := tabular.NewRow(map[string]string{
		tables.ColFileID:      f.ID,
		tables.ColFileName:    f.Name,
		tables.ColReceiptID:   receiptID,
		tables.ColMerchant:    parsed.Merchant,
		tables.ColDate:        parsed.Date,
		tables.ColTotal:       total,
		tables.ColItemsTotal:  strconv.Itoa(len(parsed.Items)),
		tables.ColReadyCount:  strconv.Itoa(len(b.Ready)),
		tables.ColStagedCount: strconv.Itoa(len(b.Staging)),
		tables.ColStatus:      status,
		tables.ColProcessedAt: s.now().UTC().Format(time.RFC3339),
	})
	if err := s.Store.AppendRows(ctx, s.Names.ReceiptFiles, []tabular.Row{row}); err != nil {
		return fmt.Errorf("record receipt file %s: %w", f.Name, err)
	}
	return nil
}
