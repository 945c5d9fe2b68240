package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect and migrate the relations schema",
}

var schemaStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored vs. target schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		status, err := rt.schema.Status(rt.Ctx())
		if err != nil {
			return err
		}

		switch flagOutput {
		case outputJSON:
			printJSON(status)
		case outputYAML:
			printYAML(status)
		default:
			fmt.Printf("Stored version:  %d\n", status.Stored)
			fmt.Printf("Target version:  %d\n", status.Target)
			if status.Pending {
				fmt.Println("Migrations pending. Run \"relations-admin schema migrate\".")
			} else {
				fmt.Println("Schema is current.")
			}
		}
		return nil
	},
}

var schemaMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		before, err := rt.schema.Status(rt.Ctx())
		if err != nil {
			return err
		}
		if !before.Pending {
			fmt.Println("Schema already current.")
			return nil
		}

		if err := rt.schema.EnsureSchema(rt.Ctx()); err != nil {
			return err
		}
		fmt.Printf("Migrated schema from version %d to %d.\n", before.Stored, before.Target)
		return nil
	},
}

func init() {
	schemaCmd.AddCommand(schemaStatusCmd)
	schemaCmd.AddCommand(schemaMigrateCmd)
}
