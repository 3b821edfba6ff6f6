package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"talous/internal/amqp"
	"talous/internal/config"
	"talous/internal/log"
	"talous/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(slog.LevelInfo, log.ComponentApp)
	log.SetDefault(logger)

	spreadsheet, workflow, args, err := parseArgs(os.Args[1:])
	if err != nil {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	if spreadsheet != "" {
		cfg.GoogleSpreadsheetID = spreadsheet
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	ctx := context.Background()
	svc, cleanup, err := services.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("Backend initialization failed", log.FieldError, err.Error(), log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer cleanup()

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without notifications", log.FieldError, err.Error())
		} else {
			defer client.Close()
			svc.Notifier = client
		}
	}

	res, err := dispatch(ctx, svc, workflow, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		usage()
		os.Exit(2)
	}
	render(res)
	if !res.Success {
		os.Exit(1)
	}
}

// parseArgs splits the command line into the optional spreadsheet
// override, the workflow name, and the workflow's own arguments.
func parseArgs(argv []string) (spreadsheet, workflow string, args []string, err error) {
	flags := flag.NewFlagSet("talous", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)
	id := flags.String("spreadsheet", "",
		"write to this spreadsheet instead of GOOGLE_SPREADSHEET_ID")
	if err := flags.Parse(argv); err != nil {
		return "", "", nil, err
	}
	if flags.NArg() < 1 {
		return "", "", nil, fmt.Errorf("missing workflow")
	}
	return *id, flags.Arg(0), flags.Args()[1:], nil
}

func dispatch(ctx context.Context, svc *services.Service, workflow string, args []string) (services.Result, error) {
	switch workflow {
	case services.WorkflowImportCreditCard:
		if len(args) != 1 {
			return services.Result{}, fmt.Errorf("usage: talous %s <statement.csv>", services.WorkflowImportCreditCard)
		}
		f, err := os.Open(args[0])
		if err != nil {
			return services.Result{}, fmt.Errorf("open statement: %w", err)
		}
		defer f.Close()
		return svc.ImportCreditCard(ctx, f), nil
	case services.WorkflowImportReceipts:
		return svc.ImportReceipts(ctx), nil
	case services.WorkflowApproveMerchantStaging:
		return svc.ApproveMerchantStaging(ctx), nil
	case services.WorkflowApproveUnknownMerchants:
		return svc.ApproveUnknownMerchants(ctx), nil
	case services.WorkflowApproveItemStaging:
		return svc.ApproveItemStaging(ctx), nil
	case services.WorkflowApproveUnknownItems:
		return svc.ApproveUnknownItems(ctx), nil
	}
	return services.Result{}, fmt.Errorf("unknown workflow %q", workflow)
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: talous [-spreadsheet <id>] <workflow> [args]

flags:
  -spreadsheet <id>   write to this spreadsheet instead of GOOGLE_SPREADSHEET_ID

workflows:
  %s <statement.csv>
  %s
  %s
  %s
  %s
  %s
`,
		services.WorkflowImportCreditCard,
		services.WorkflowImportReceipts,
		services.WorkflowApproveMerchantStaging,
		services.WorkflowApproveUnknownMerchants,
		services.WorkflowApproveItemStaging,
		services.WorkflowApproveUnknownItems)
}

func render(res services.Result) {
	if res.Success {
		color.New(color.FgGreen, color.Bold).Printf("ok %s", res.Workflow)
	} else {
		color.New(color.FgRed, color.Bold).Printf("FAILED %s", res.Workflow)
	}
	fmt.Printf("  (run %s, took %s)\n", res.RunID, res.Duration.Round(time.Millisecond))

	d := res.Details
	switch res.Workflow {
	case services.WorkflowImportCreditCard:
		fmt.Printf("  ready %d  staged %d  skipped %d  dropped %d  duplicates %d  unknowns %d\n",
			d.Ready, d.Staged, d.Skipped, d.Dropped, d.Duplicates, d.Unknowns)
	case services.WorkflowImportReceipts:
		fmt.Printf("  files %d  ready %d  staged %d  skipped %d  dropped %d  duplicates %d  unknowns %d\n",
			d.Files, d.Ready, d.Staged, d.Skipped, d.Dropped, d.Duplicates, d.Unknowns)
	default:
		fmt.Printf("  approved %d  rejected %d  untouched %d\n",
			d.Approved, d.Rejected, d.Untouched)
	}
	if res.Error != "" {
		color.New(color.FgRed).Printf("  %s: %s\n", res.Code, res.Error)
	}
}
