package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"talous/internal/amqp"
	"talous/internal/core"
	"talous/internal/filestore"
	fsmemory "talous/internal/filestore/memory"
	"talous/internal/log"
	"talous/internal/ocr"
	"talous/internal/receipt"
	"talous/internal/rules"
	"talous/internal/statement"
	"talous/internal/tables"
	"talous/internal/tabular"
	tabmemory "talous/internal/tabular/memory"
)

const testFolder = "receipts-folder"

func newTestService(t *testing.T) (*Service, *tabmemory.Store, *fsmemory.Store) {
	t.Helper()
	names := tables.DefaultNames()
	store := tabmemory.New(names.Headers())
	files := fsmemory.New()
	svc := &Service{
		Store:            store,
		Names:            names,
		Files:            files,
		Extractor:        ocr.TextExtractor{Parser: receipt.LayoutParser{}},
		Log:              log.NewWithHandler(slog.NewTextHandler(io.Discard, nil), "test"),
		Clock:            func() time.Time { return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC) },
		BudgetYear:       2026,
		Policy:           rules.AmbiguityReject,
		Columns:          statement.DefaultColumns(),
		DriveFolderID:    testFolder,
		ReceiptBatchSize: 10,
	}

	ctx := context.Background()
	seedErr := store.AppendRows(ctx, names.Rules, []tabular.Row{
		tabular.NewRow(map[string]string{
			tables.ColPattern: "s-market", tables.ColGroup: "Food",
			tables.ColCategory: "Groceries", tables.ColMode: "auto",
		}),
		tabular.NewRow(map[string]string{
			tables.ColPattern: "maito", tables.ColGroup: "Food",
			tables.ColCategory: "Groceries", tables.ColMode: "auto",
		}),
		tabular.NewRow(map[string]string{
			tables.ColPattern: "alko", tables.ColMode: "skip",
		}),
	})
	if seedErr != nil {
		t.Fatalf("seed rules: %v", seedErr)
	}
	seedErr = store.AppendRows(ctx, names.Categories, []tabular.Row{
		tabular.NewRow(map[string]string{
			tables.ColGroup: "Food", tables.ColCategory: "Groceries", tables.ColActive: "TRUE",
		}),
	})
	if seedErr != nil {
		t.Fatalf("seed categories: %v", seedErr)
	}
	return svc, store, files
}

func rowCount(t *testing.T, store *tabmemory.Store, table string) int {
	t.Helper()
	rows, err := store.GetRows(context.Background(), table)
	if err != nil {
		t.Fatalf("get rows from %s: %v", table, err)
	}
	return len(rows)
}

const statementCSV = `Date of payment,Location of purchase,Transaction amount
02.01.2026,S-MARKET KAMPPI,-15.01
03.01.2026,MYSTERY SHOP,-9.99
04.01.2026,S-MARKET KAMPPI,20.00
02.01.2025,S-MARKET KAMPPI,-5.00
`

func TestImportCreditCard(t *testing.T) {
	svc, store, _ := newTestService(t)

	res := svc.ImportCreditCard(context.Background(), strings.NewReader(statementCSV))
	if !res.Success {
		t.Fatalf("workflow failed: %s (%s)", res.Error, res.Code)
	}
	if res.Workflow != WorkflowImportCreditCard || res.RunID == "" {
		t.Errorf("result identity = %q/%q", res.Workflow, res.RunID)
	}

	want := Details{Ready: 1, Staged: 2, Dropped: 1, Unknowns: 1}
	if res.Details != want {
		t.Errorf("details = %+v, want %+v", res.Details, want)
	}
	if n := rowCount(t, store, svc.Names.Ledger); n != 1 {
		t.Errorf("ledger rows = %d, want 1", n)
	}
	if n := rowCount(t, store, svc.Names.MerchantStaging); n != 2 {
		t.Errorf("staging rows = %d, want 2", n)
	}
	if n := rowCount(t, store, svc.Names.UnknownMerchants); n != 1 {
		t.Errorf("unknown merchants = %d, want 1", n)
	}
}

func TestImportCreditCardRerunWritesNothing(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	// Expenses only: refunds bypass dedup and would legitimately stage twice.
	csv := "Date of payment,Location of purchase,Transaction amount\n" +
		"02.01.2026,S-MARKET KAMPPI,-15.01\n" +
		"03.01.2026,MYSTERY SHOP,-9.99\n"

	first := svc.ImportCreditCard(ctx, strings.NewReader(csv))
	if !first.Success {
		t.Fatalf("first run failed: %s", first.Error)
	}
	second := svc.ImportCreditCard(ctx, strings.NewReader(csv))
	if !second.Success {
		t.Fatalf("second run failed: %s", second.Error)
	}
	if second.Details.Ready != 0 || second.Details.Staged != 0 {
		t.Errorf("second run wrote rows: %+v", second.Details)
	}
	if second.Details.Duplicates != 2 {
		t.Errorf("second run duplicates = %d, want 2", second.Details.Duplicates)
	}
	if n := rowCount(t, store, svc.Names.Ledger); n != 1 {
		t.Errorf("ledger rows after rerun = %d, want 1", n)
	}
	if n := rowCount(t, store, svc.Names.MerchantStaging); n != 1 {
		t.Errorf("staging rows after rerun = %d, want 1", n)
	}
}

func TestImportCreditCardMissingHeader(t *testing.T) {
	svc, store, _ := newTestService(t)

	csv := "Date of payment,Location of purchase\n02.01.2026,SHOP\n"
	res := svc.ImportCreditCard(context.Background(), strings.NewReader(csv))
	if res.Success {
		t.Fatal("import should fail on missing amount column")
	}
	if res.Code != CodeBadInput {
		t.Errorf("code = %q, want %q", res.Code, CodeBadInput)
	}
	if !strings.Contains(res.Error, "Transaction amount") {
		t.Errorf("error should name the missing column, got %q", res.Error)
	}
	if n := rowCount(t, store, svc.Names.Ledger); n != 0 {
		t.Errorf("ledger rows = %d, want 0", n)
	}
}

func TestImportCreditCardCallBudgetAbort(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.Store = tabular.NewGuard(svc.Store, 1)

	res := svc.ImportCreditCard(context.Background(), strings.NewReader(statementCSV))
	if res.Success {
		t.Fatal("import should abort once the call budget is spent")
	}
	if res.Code != CodeCallBudget {
		t.Errorf("code = %q, want %q", res.Code, CodeCallBudget)
	}
}

func putReceipt(files *fsmemory.Store, id, name, text string) {
	files.Put(testFolder, filestore.File{ID: id, Name: name}, []byte(text))
}

const receiptText = "S-MARKET KAMPPI\n" +
	"02.01.2026\n" +
	"MAITO 2,15\n" +
	"LEIPÄ 3,50\n" +
	"YHTEENSÄ 5,65\n"

func TestImportReceipts(t *testing.T) {
	svc, store, files := newTestService(t)
	ctx := context.Background()
	putReceipt(files, "f1", "receipt-1.txt", receiptText)
	putReceipt(files, "f2", "receipt-2.txt", strings.Replace(receiptText, "02.01.2026", "02.01.2025", 1))

	res := svc.ImportReceipts(ctx)
	if !res.Success {
		t.Fatalf("workflow failed: %s (%s)", res.Error, res.Code)
	}
	if res.Details.Files != 2 {
		t.Errorf("files = %d, want 2", res.Details.Files)
	}
	// MAITO matches an auto rule, LEIPÄ is unknown; the 2025 receipt is
	// out of year and contributes nothing.
	if res.Details.Ready != 1 || res.Details.Staged != 1 || res.Details.Unknowns != 1 {
		t.Errorf("details = %+v", res.Details)
	}

	fileRows, err := store.GetRows(ctx, svc.Names.ReceiptFiles)
	if err != nil {
		t.Fatalf("get receipt file records: %v", err)
	}
	if len(fileRows) != 2 {
		t.Fatalf("receipt file records = %d, want 2", len(fileRows))
	}
	statuses := map[string]string{}
	for _, row := range fileRows {
		statuses[row.Get(tables.ColFileID)] = row.Get(tables.ColStatus)
	}
	if statuses["f1"] != FileProcessed {
		t.Errorf("f1 status = %q, want %q", statuses["f1"], FileProcessed)
	}
	if statuses["f2"] != FileOutOfYear {
		t.Errorf("f2 status = %q, want %q", statuses["f2"], FileOutOfYear)
	}

	// A second run sees both files as processed and does nothing.
	again := svc.ImportReceipts(ctx)
	if !again.Success || again.Details.Files != 0 {
		t.Errorf("rerun = %+v", again.Details)
	}
}

func TestImportReceiptsBatchSize(t *testing.T) {
	svc, _, files := newTestService(t)
	svc.ReceiptBatchSize = 1
	ctx := context.Background()
	putReceipt(files, "f1", "a.txt", receiptText)
	putReceipt(files, "f2", "b.txt", receiptText)

	first := svc.ImportReceipts(ctx)
	if !first.Success || first.Details.Files != 1 {
		t.Fatalf("first run files = %d, want 1", first.Details.Files)
	}
	second := svc.ImportReceipts(ctx)
	if !second.Success || second.Details.Files != 1 {
		t.Fatalf("second run files = %d, want 1", second.Details.Files)
	}
}

func TestImportReceiptsTimeBudget(t *testing.T) {
	svc, _, files := newTestService(t)
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	svc.Clock = func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
	svc.ReceiptTimeBudget = 3 * time.Minute
	ctx := context.Background()
	putReceipt(files, "f1", "a.txt", receiptText)
	putReceipt(files, "f2", "b.txt", receiptText)

	res := svc.ImportReceipts(ctx)
	if !res.Success {
		t.Fatalf("workflow failed: %s", res.Error)
	}
	if res.Details.Files != 1 {
		t.Errorf("files = %d, want 1 (budget exhausted after first file)", res.Details.Files)
	}
}

func TestImportReceiptsExtractionFailureIsFileLocal(t *testing.T) {
	svc, store, files := newTestService(t)
	svc.Extractor = failingExtractor{}
	ctx := context.Background()
	putReceipt(files, "f1", "broken.pdf", "unreadable")

	res := svc.ImportReceipts(ctx)
	if !res.Success {
		t.Fatalf("extraction failure must not fail the run: %s", res.Error)
	}
	rows, err := store.GetRows(ctx, svc.Names.ReceiptFiles)
	if err != nil {
		t.Fatalf("get receipt file records: %v", err)
	}
	if len(rows) != 1 || rows[0].Get(tables.ColStatus) != FileError {
		t.Errorf("file record = %+v, want one %s row", rows, FileError)
	}
}

func TestApproveMerchantStaging(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	seedErr := store.AppendRows(ctx, svc.Names.MerchantStaging, []tabular.Row{
		tabular.NewRow(map[string]string{
			tables.ColTxID: "abc123", tables.ColDate: "2026-01-05",
			tables.ColEntity: "MYSTERY SHOP", tables.ColAmount: "9.99",
			tables.ColRuleMode: "unknown",
			tables.ColGroup:    "food", tables.ColCategory: "groceries",
			tables.ColStatus: "NEEDS_RULE",
		}),
	})
	if seedErr != nil {
		t.Fatalf("seed staging: %v", seedErr)
	}

	res := svc.ApproveMerchantStaging(ctx)
	if !res.Success {
		t.Fatalf("workflow failed: %s (%s)", res.Error, res.Code)
	}
	if res.Details.Approved != 1 || res.Details.Rejected != 0 {
		t.Errorf("details = %+v", res.Details)
	}
	if n := rowCount(t, store, svc.Names.Ledger); n != 1 {
		t.Errorf("ledger rows = %d, want 1", n)
	}
}

type failingExtractor struct{}

func (failingExtractor) Extract(context.Context, filestore.File, []byte) (core.ParsedReceipt, error) {
	return core.ParsedReceipt{}, ocr.ErrExtraction
}

type panicStore struct{}

func (panicStore) GetRows(context.Context, string) ([]tabular.Row, error) { panic("boom") }
func (panicStore) AppendRows(context.Context, string, []tabular.Row) error {
	panic("boom")
}
func (panicStore) UpdateRow(context.Context, string, tabular.RowRef, tabular.Row) error {
	panic("boom")
}
func (panicStore) GetColumnValues(context.Context, string, string) ([]string, error) {
	panic("boom")
}

func TestWorkflowPanicIsRecovered(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.Store = panicStore{}

	res := svc.ImportCreditCard(context.Background(), strings.NewReader(statementCSV))
	if res.Success {
		t.Fatal("panicking workflow must report failure")
	}
	if res.Code != CodePanic {
		t.Errorf("code = %q, want %q", res.Code, CodePanic)
	}
	if !strings.Contains(res.Error, "boom") {
		t.Errorf("error = %q, want the panic value", res.Error)
	}
}

type fakeNotifier struct {
	summaries []*amqp.RunSummary
	failures  []*amqp.FailureNotice
}

func (n *fakeNotifier) PublishRunSummary(_ context.Context, msg *amqp.RunSummary) error {
	n.summaries = append(n.summaries, msg)
	return nil
}

func (n *fakeNotifier) PublishFailure(_ context.Context, msg *amqp.FailureNotice) error {
	n.failures = append(n.failures, msg)
	return nil
}

func TestNotifierReceivesRunSummaries(t *testing.T) {
	svc, _, _ := newTestService(t)
	notifier := &fakeNotifier{}
	svc.Notifier = notifier

	svc.ImportCreditCard(context.Background(), strings.NewReader(statementCSV))
	if len(notifier.summaries) != 1 {
		t.Fatalf("summaries = %d, want 1", len(notifier.summaries))
	}
	sum := notifier.summaries[0]
	if !sum.Success || sum.Ready != 1 || sum.Staged != 2 {
		t.Errorf("summary = %+v", sum)
	}
	if len(notifier.failures) != 0 {
		t.Errorf("failures = %d, want 0", len(notifier.failures))
	}

	svc.Store = panicStore{}
	svc.ImportCreditCard(context.Background(), strings.NewReader(statementCSV))
	if len(notifier.summaries) != 2 || len(notifier.failures) != 1 {
		t.Fatalf("after failure: summaries = %d, failures = %d",
			len(notifier.summaries), len(notifier.failures))
	}
	if notifier.failures[0].Code != CodePanic {
		t.Errorf("failure code = %q, want %q", notifier.failures[0].Code, CodePanic)
	}
}
