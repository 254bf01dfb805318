package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mimsy-cms/mimsy/bootstrap"
)

func newUpdateCmd(root *rootOptions) *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the mimsy.schema.json file of the project",
		Long: `Load the project's collections file and write mimsy.schema.json.

The schema file is written to the project root (or the configured
schemaPath) with a header recording when and by which version it was
generated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := root.open(cmd, false)
			if err != nil {
				return err
			}
			defer root.close(app)

			return runUpdate(cmd, root, app, clear)
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", true, "clear the registry before importing collections")

	return cmd
}

func runUpdate(cmd *cobra.Command, root *rootOptions, app *bootstrap.App, clear bool) error {
	out := cmd.OutOrStdout()

	if err := loadCollections(cmd, app, clear); err != nil {
		return err
	}

	doc, path, err := root.writeSchema(app)
	if err != nil {
		return fmt.Errorf("update schema: %w", err)
	}

	fmt.Fprintln(out, "Schema updated successfully")
	fmt.Fprintf(out, "Updated: %s\n", path)
	fmt.Fprintf(out, "Collections exported: %d\n", len(doc.Collections))
	return nil
}

// loadCollections imports the project's collections file into the registry.
func loadCollections(cmd *cobra.Command, app *bootstrap.App, clear bool) error {
	path := app.Config.CollectionsFile()
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no collections file found at %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Importing collections from: %s\n", path)
	if _, err := app.LoadDefinitions(clear); err != nil {
		return fmt.Errorf("import collections: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Collections imported successfully")
	return nil
}
