package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [FILE]",
	Short: "Export the relation graph as JSON",
	Long:  `Exports every relation row. Writes to FILE, or stdout when omitted.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		out := os.Stdout
		if len(args) == 1 {
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		n, err := rt.transfer.Export(rt.Ctx(), out)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			fmt.Printf("Exported %d relation(s) to %s.\n", n, args[0])
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import a relation graph from JSON",
	Long: `Replays an exported graph through the full validation pipeline.
Entries rejected by validation are skipped and tallied, never fatal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		report, err := rt.transfer.Import(rt.Ctx(), f)
		if err != nil {
			return err
		}

		switch flagOutput {
		case outputJSON:
			printJSON(report)
		case outputYAML:
			printYAML(report)
		default:
			fmt.Printf("Imported %d of %d entries (%d skipped).\n",
				report.Created, report.Total, report.Skipped)
			if len(report.Reasons) > 0 {
				t := newTable("REASON", "COUNT")
				for reason, count := range report.Reasons {
					t.AddRow(reason, fmt.Sprintf("%d", count))
				}
				t.Flush()
			}
		}
		return nil
	},
}
