package cmd

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/contentgraph/api/internal/app"
	"github.com/contentgraph/api/pkg/domain/content"
	"github.com/contentgraph/api/pkg/domain/relation"
)

var (
	flagType      string
	flagToType    string
	flagDirection string
)

var listCmd = &cobra.Command{
	Use:   "list OBJECT_ID",
	Short: "List outgoing relations of an object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fromID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid object id %q", args[0])
		}

		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		rows, err := rt.relations.GetAllRelations(rt.Ctx(), fromID)
		if err != nil {
			return err
		}

		switch flagOutput {
		case outputJSON:
			printJSON(rows)
		case outputYAML:
			printYAML(rows)
		default:
			t := newTable("ID", "TO", "TO_TYPE", "TYPE", "DIRECTION", "ORDER", "CREATED")
			for _, r := range rows {
				t.AddRow(
					strconv.FormatInt(r.ID, 10),
					strconv.FormatInt(r.ToID, 10),
					r.ToType.String(),
					r.Type,
					r.Direction.String(),
					strconv.Itoa(r.Order),
					shortTime(r.CreatedAt),
				)
			}
			t.Flush()
			fmt.Printf("\n%d relation(s)\n", len(rows))
		}
		return nil
	},
}

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List registered relation types",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		defs := rt.registry.Types()
		slugs := make([]string, 0, len(defs))
		for slug := range defs {
			slugs = append(slugs, slug)
		}
		sort.Strings(slugs)

		switch flagOutput {
		case outputJSON:
			printJSON(defs)
		case outputYAML:
			printYAML(defs)
		default:
			t := newTable("SLUG", "LABEL", "BIDIRECTIONAL", "TARGETS", "MAX")
			for _, slug := range slugs {
				def := defs[slug]
				targets := ""
				for i, k := range def.ToKinds {
					if i > 0 {
						targets += ","
					}
					targets += k.String()
				}
				max := "-"
				if def.MaxConnections > 0 {
					max = strconv.Itoa(def.MaxConnections)
				}
				t.AddRow(def.Slug, def.Label, boolToStr(def.Bidirectional), targets, max)
			}
			t.Flush()
		}
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add FROM_ID TO_ID",
	Short: "Create a relation between two objects",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fromID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid from id %q", args[0])
		}
		toID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid to id %q", args[1])
		}

		toType, err := content.ParseKind(flagToType)
		if err != nil {
			return err
		}
		var direction relation.Direction
		if flagDirection != "" {
			direction, err = relation.ParseDirection(flagDirection)
			if err != nil {
				return err
			}
		}

		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		id, err := rt.relations.AddRelation(rt.Ctx(), app.AddRelationInput{
			FromID:    fromID,
			ToID:      toID,
			Type:      flagType,
			Direction: direction,
			ToType:    toType,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error (%s): %v\n", relation.KindOf(err), err)
			os.Exit(1)
		}

		fmt.Printf("Relation %d created (%d -> %d, %s).\n", id, fromID, toID, flagType)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove FROM_ID TO_ID",
	Short: "Remove relations between two objects",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fromID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid from id %q", args[0])
		}
		toID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid to id %q", args[1])
		}

		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.relations.RemoveRelation(rt.Ctx(), fromID, toID, flagType); err != nil {
			return err
		}
		fmt.Printf("Relations removed (%d -> %d).\n", fromID, toID)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check FROM_ID TO_ID",
	Short: "Check whether two objects are related",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fromID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid from id %q", args[0])
		}
		toID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid to id %q", args[1])
		}

		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		related, err := rt.relations.IsRelated(rt.Ctx(), fromID, toID, flagType)
		if err != nil {
			return err
		}
		if related {
			fmt.Println("related")
		} else {
			fmt.Println("not related")
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&flagType, "type", "t", "", "Filter by relation type")

	addCmd.Flags().StringVarP(&flagType, "type", "t", "related_to", "Relation type")
	addCmd.Flags().StringVar(&flagToType, "to-type", "", "Target kind: post, user, term (default post)")
	addCmd.Flags().StringVar(&flagDirection, "direction", "", "Override direction: unidirectional, bidirectional")

	removeCmd.Flags().StringVarP(&flagType, "type", "t", "", "Restrict to one relation type (default all)")
	checkCmd.Flags().StringVarP(&flagType, "type", "t", "", "Restrict to one relation type (default any)")
}
