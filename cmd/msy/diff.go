package main

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mimsy-cms/mimsy/pkg/schemadoc"
)

// errSchemaChanged is returned by diff --exit-code when there are changes.
var errSchemaChanged = errors.New("schema has changes")

type diffOptions struct {
	against  string
	exitCode bool
}

func newDiffCmd(root *rootOptions) *cobra.Command {
	o := &diffOptions{}

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show changes between the collections file and the schema file",
		Long: `Compare the schema exported from the collections file with
mimsy.schema.json, or with the document given by --against (a schema file or
an applied snapshot).

Examples:
  msy diff
  msy diff --against .mimsy/schemas/250811-add-tags.jsonc
  msy diff --exit-code   # fail when the schema file is out of date`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, root, o)
		},
	}

	cmd.Flags().StringVar(&o.against, "against", "", "schema document to compare with (default: the project's schema file)")
	cmd.Flags().BoolVar(&o.exitCode, "exit-code", false, "exit with an error when there are changes")

	return cmd
}

func runDiff(cmd *cobra.Command, root *rootOptions, o *diffOptions) error {
	app, err := root.open(cmd, false)
	if err != nil {
		return err
	}
	defer root.close(app)

	if _, err := app.LoadDefinitions(true); err != nil {
		return fmt.Errorf("import collections: %w", err)
	}
	current := app.Export()

	against := o.against
	if against == "" {
		against = app.Config.SchemaFile()
	}
	old, err := schemadoc.ReadFile(against)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	changes := schemadoc.Diff(old, current)
	if len(changes) == 0 {
		fmt.Fprintln(out, "No changes.")
		return nil
	}

	tw := newTable()
	tw.AppendHeader(table.Row{"CHANGE", "TARGET", "OLD", "NEW"})
	for _, c := range changes {
		target := c.Collection
		if c.Field != "" {
			target += "." + c.Field
		}
		tw.AppendRow(table.Row{c.Kind, target, c.Old, c.New})
	}
	fmt.Fprintf(out, "%s\n", tw.Render())
	fmt.Fprintf(out, "%d change(s) against %s\n", len(changes), against)

	if o.exitCode {
		return errSchemaChanged
	}
	return nil
}

// newTable returns a borderless table writer.
func newTable() table.Writer {
	tw := table.NewWriter()
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.SeparateFooter = false
	tw.Style().Options.SeparateHeader = false
	tw.Style().Options.SeparateRows = false
	return tw
}
