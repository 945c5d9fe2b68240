package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/contentgraph/api/internal/app"
)

var (
	flagScanRepair     bool
	flagScanBatchSize  int
	flagScanAfterID    int64
	flagScanMaxBatches int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run an integrity scan over the relation table",
	Long: `Scans the relation table for rows violating graph invariants:
duplicates, orphaned endpoints, unregistered types, one-sided
bidirectional pairs, constraint violations, and malformed rows.

Without --repair the scan only reports. Use --after-id with the
printed watermark to resume a bounded scan.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		report, err := rt.integrity.Scan(rt.Ctx(), app.ScanOptions{
			Repair:     flagScanRepair,
			BatchSize:  flagScanBatchSize,
			AfterID:    flagScanAfterID,
			MaxBatches: flagScanMaxBatches,
			OnIssues: func(issue app.ScanIssue) {
				if flagVerbose {
					fmt.Printf("  %s: %d row(s)\n", issue.Category, issue.Count)
				}
			},
		})
		if err != nil {
			return err
		}

		switch flagOutput {
		case outputJSON:
			printJSON(report)
		case outputYAML:
			printYAML(report)
		default:
			mode := "dry-run"
			if flagScanRepair {
				mode = "repair"
			}
			fmt.Printf("Scan %s (%s)\n\n", report.ScanID, mode)

			t := newTable("CATEGORY", "COUNT")
			t.AddRow("duplicates", fmt.Sprintf("%d", report.Duplicates))
			t.AddRow("orphaned", fmt.Sprintf("%d", report.Orphaned))
			t.AddRow("unregistered", fmt.Sprintf("%d", report.Unregistered))
			t.AddRow("direction", fmt.Sprintf("%d", report.Direction))
			t.AddRow("constraint", fmt.Sprintf("%d", report.Constraint))
			t.AddRow("invalid", fmt.Sprintf("%d", report.Invalid))
			t.Flush()

			fmt.Printf("\nScanned %d row(s), cleaned %d, issues %d.\n",
				report.Scanned, report.Cleaned, report.Issues())
			if !report.Done {
				fmt.Printf("Scan incomplete; resume with --after-id %d\n", report.Watermark)
			}
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().BoolVar(&flagScanRepair, "repair", false, "Delete offending rows instead of only reporting")
	scanCmd.Flags().IntVar(&flagScanBatchSize, "batch-size", 1000, "Rows per chunk")
	scanCmd.Flags().Int64Var(&flagScanAfterID, "after-id", 0, "Resume the row scan past this id")
	scanCmd.Flags().IntVar(&flagScanMaxBatches, "max-batches", 0, "Stop after this many chunks (0 = scan to end)")
}
