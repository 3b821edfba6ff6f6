package services

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"talous/internal/config"
	"talous/internal/log"
	"talous/internal/tables"
	"talous/internal/tabular"
	tabmemory "talous/internal/tabular/memory"
)

func testBuildConfig() *config.Config {
	return &config.Config{
		DataBackend:       "memory",
		BudgetYear:        2026,
		AmbiguityPolicy:   "reject",
		ReceiptParser:     "layout",
		CSVDateColumn:     "Date of payment",
		CSVEntityColumn:   "Location of purchase",
		CSVAmountColumn:   "Transaction amount",
		ReceiptBatchSize:  10,
		ReceiptTimeBudget: 4 * time.Minute,
		StoreCallBudget:   -1,
		ImportInterval:    time.Hour,
	}
}

func discardLogger() *log.Logger {
	return log.NewWithHandler(slog.NewTextHandler(io.Discard, nil), "test")
}

func TestBuildSeedsRulesFromFile(t *testing.T) {
	rulesFile := filepath.Join(t.TempDir(), "rules.yaml")
	yamlBody := `rules:
  - pattern: "  S-Market "
    group: Food
    category: Groceries
    mode: auto
  - pattern: Alko
    mode: skip
  - pattern: ""
    group: Dropped
`
	if err := os.WriteFile(rulesFile, []byte(yamlBody), 0644); err != nil {
		t.Fatalf("write rules file: %v", err)
	}

	cfg := testBuildConfig()
	cfg.RulesFile = rulesFile
	svc, cleanup, err := Build(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer cleanup()

	rows, err := svc.Store.GetRows(context.Background(), svc.Names.Rules)
	if err != nil {
		t.Fatalf("get rules: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("seeded rules = %d, want 2", len(rows))
	}
	if got := rows[0].Get(tables.ColPattern); got != "s-market" {
		t.Errorf("pattern = %q, want normalized %q", got, "s-market")
	}
	if got := rows[0].Get(tables.ColGroup); got != "Food" {
		t.Errorf("group = %q, want Food", got)
	}
	if got := rows[1].Get(tables.ColMode); got != "skip" {
		t.Errorf("mode = %q, want skip", got)
	}
}

func TestBuildRejectsBadRulesFile(t *testing.T) {
	cfg := testBuildConfig()
	cfg.RulesFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, _, err := Build(context.Background(), cfg, discardLogger())
	if err == nil {
		t.Fatal("Build should fail when the rules file cannot be read")
	}
}

func TestSeedRulesSkipsNonEmptyTable(t *testing.T) {
	rulesFile := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(rulesFile, []byte("rules:\n  - pattern: lidl\n"), 0644); err != nil {
		t.Fatalf("write rules file: %v", err)
	}

	names := tables.DefaultNames()
	store := tabmemory.New(names.Headers())
	ctx := context.Background()
	seeded := []tabular.Row{tabular.NewRow(map[string]string{
		tables.ColPattern: "prisma", tables.ColMode: "auto",
	})}
	if err := store.AppendRows(ctx, names.Rules, seeded); err != nil {
		t.Fatalf("seed rules: %v", err)
	}

	if err := seedRules(ctx, store, names.Rules, rulesFile); err != nil {
		t.Fatalf("seedRules: %v", err)
	}
	rows, err := store.GetRows(ctx, names.Rules)
	if err != nil {
		t.Fatalf("get rules: %v", err)
	}
	if len(rows) != 1 || rows[0].Get(tables.ColPattern) != "prisma" {
		t.Errorf("rule table changed by seeding: %d rows", len(rows))
	}
}
