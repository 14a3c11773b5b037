package main

import (
	"context"
	"fmt"
	"time"

	"bankbang/internal/app"
	"bankbang/internal/importer"

	"github.com/spf13/cobra"
)

var (
	importFile   string
	importSheet  string
	importDryRun bool
	importSource string
)

// importJobsCmd loads a recruitment spreadsheet into job listings
var importJobsCmd = &cobra.Command{
	Use:   "import-jobs",
	Short: "Import job listings from .xlsx or .csv",
	Long: `Import job listings from a spreadsheet.

The header row is located by column names (Chinese or English). Rows whose cells
are shifted relative to the header are realigned and reported. Listings are
upserted by source_id, so running the same file twice updates instead of duplicating.

With --dry-run every write is performed inside a transaction and rolled back.`,
	RunE: runImportJobs,
}

func init() {
	importJobsCmd.Flags().StringVarP(&importFile, "file", "f", "", "Spreadsheet path (.xlsx, .xlsm, .csv)")
	importJobsCmd.Flags().StringVar(&importSheet, "sheet", "", "Sheet name (default: first sheet)")
	importJobsCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Parse and report without saving")
	importJobsCmd.Flags().StringVar(&importSource, "source", "import", "Source label stored on listings")
	_ = importJobsCmd.MarkFlagRequired("file")
}

func runImportJobs(cmd *cobra.Command, args []string) error {
	rows, err := importer.ReadFile(importFile, importSheet)
	if err != nil {
		return fmt.Errorf("read %s: %w", importFile, err)
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		im := importer.New(a.Services.JobService, a.Services.CompanyService)
		res, err := im.Import(ctx, a.DB, rows, importer.Options{
			DryRun: importDryRun,
			Source: importSource,
			Now:    time.Now(),
		})
		if err != nil {
			return err
		}
		return printJSON(res)
	})
}
