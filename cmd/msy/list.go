package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mimsy-cms/mimsy/core/schema"
)

func newListCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the collections and globals of the project",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := root.open(cmd, false)
			if err != nil {
				return err
			}
			defer root.close(app)

			if _, err := app.LoadDefinitions(true); err != nil {
				return fmt.Errorf("import collections: %w", err)
			}

			tw := newTable()
			tw.AppendHeader(table.Row{"NAME", "KIND", "FIELDS", "RELATIONS"})
			for _, c := range app.Registry.All() {
				tw.AppendRow(table.Row{c.Name, c.Kind(), c.Schema.Len(), relationSummary(c)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", tw.Render())
			return nil
		},
	}
}

// relationSummary renders "field -> target" pairs in declaration order.
func relationSummary(c *schema.Collection) string {
	var parts []string
	c.Schema.Each(func(name string, f schema.Field) {
		if !f.IsRelation() || f.RelatesTo() == nil {
			return
		}
		arrow := " -> "
		if f.Type() == schema.FieldTypeMultiRelation {
			arrow = " ->> "
		}
		parts = append(parts, name+arrow+f.RelatesTo().TargetName())
	})
	return strings.Join(parts, ", ")
}
