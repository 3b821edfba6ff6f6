package services

import (
	"context"
	"fmt"

	gdrive "google.golang.org/api/drive/v3"
	gsheets "google.golang.org/api/sheets/v4"

	"talous/internal/config"
	"talous/internal/filestore"
	fsgoogle "talous/internal/filestore/google"
	fsmemory "talous/internal/filestore/memory"
	"talous/internal/googleauth"
	"talous/internal/log"
	"talous/internal/ocr"
	"talous/internal/receipt"
	"talous/internal/rules"
	"talous/internal/statement"
	"talous/internal/tables"
	"talous/internal/tabular"
	tabgoogle "talous/internal/tabular/google"
	tabmemory "talous/internal/tabular/memory"
	tabsqlite "talous/internal/tabular/sqlite"
)

// Build assembles a Service from validated configuration: the tabular
// store for the selected backend, the file store, the extractor, and the
// optional call-budget guard. The returned cleanup releases backend
// resources and is safe to call once.
func Build(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Service, func(), error) {
	names := tables.DefaultNames()
	cleanup := func() {}

	var store tabular.Store
	var files filestore.Store
	switch cfg.DataBackend {
	case "sheets":
		creds := googleauth.Credentials{
			ClientFile: cfg.GoogleOAuthClientFile,
			ClientJSON: cfg.GoogleOAuthClientJSON,
			TokenFile:  cfg.GoogleOAuthTokenFile,
			TokenJSON:  cfg.GoogleOAuthTokenJSON,
		}
		httpClient, err := googleauth.HTTPClient(ctx, creds,
			gsheets.SpreadsheetsScope, gdrive.DriveReadonlyScope)
		if err != nil {
			return nil, nil, fmt.Errorf("google credentials: %w", err)
		}
		sheetStore, err := tabgoogle.New(ctx, httpClient, cfg.GoogleSpreadsheetID)
		if err != nil {
			return nil, nil, fmt.Errorf("sheets backend: %w", err)
		}
		driveStore, err := fsgoogle.New(ctx, httpClient)
		if err != nil {
			return nil, nil, fmt.Errorf("drive file store: %w", err)
		}
		store, files = sheetStore, driveStore
	case "sqlite":
		dbStore, err := tabsqlite.Open(cfg.SQLiteDBPath, names.Headers())
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite backend: %w", err)
		}
		cleanup = func() { _ = dbStore.Close() }
		// Receipts still need a document source; without Google
		// credentials the offline backend serves an empty folder.
		store, files = dbStore, fsmemory.New()
	default:
		store, files = tabmemory.New(names.Headers()), fsmemory.New()
	}
	if cfg.RulesFile != "" {
		if err := seedRules(ctx, store, names.Rules, cfg.RulesFile); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	if cfg.StoreCallBudget > 0 {
		store = tabular.NewGuard(store, cfg.StoreCallBudget)
	}
	logger.Info("backend initialized", log.FieldBackend, cfg.DataBackend)

	var parser receipt.Parser = receipt.LayoutParser{}
	if cfg.ReceiptParser == "simple" {
		parser = receipt.SimpleParser{}
	}
	var extractor ocr.Extractor = ocr.TextExtractor{Parser: parser}
	if cfg.OCRServiceURL != "" {
		extractor = ocr.NewClient(cfg.OCRServiceURL, parser)
	}

	svc := &Service{
		Store:     store,
		Names:     names,
		Files:     files,
		Extractor: extractor,
		Log:       logger,

		BudgetYear: cfg.BudgetYear,
		Policy:     rules.AmbiguityPolicy(cfg.AmbiguityPolicy),
		Columns: statement.Columns{
			Date:   cfg.CSVDateColumn,
			Entity: cfg.CSVEntityColumn,
			Amount: cfg.CSVAmountColumn,
		},
		DriveFolderID:     cfg.GoogleDriveFolderID,
		ReceiptBatchSize:  cfg.ReceiptBatchSize,
		ReceiptTimeBudget: cfg.ReceiptTimeBudget,
	}
	return svc, cleanup, nil
}

// seedRules loads a local YAML rule file into the rule table. The file
// only applies to an empty table so a seeded persistent backend is not
// re-seeded on every start.
func seedRules(ctx context.Context, store tabular.Store, table, path string) error {
	existing, err := store.GetRows(ctx, table)
	if err != nil {
		return fmt.Errorf("seed rules: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	loaded, err := rules.LoadFromFile(path)
	if err != nil {
		return fmt.Errorf("seed rules: %w", err)
	}
	rows := make([]tabular.Row, 0, len(loaded))
	for _, r := range loaded {
		rows = append(rows, tables.EncodeRule(r))
	}
	if len(rows) == 0 {
		return nil
	}
	if err := store.AppendRows(ctx, table, rows); err != nil {
		return fmt.Errorf("seed rules: %w", err)
	}
	return nil
}
