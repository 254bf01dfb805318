package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mimsy-cms/mimsy/core/definition"
	"github.com/mimsy-cms/mimsy/pkg/schemadoc"
)

type exportSchemaOptions struct {
	output     string
	importPath string
	pretty     bool
	clear      bool
}

func newExportSchemaCmd(root *rootOptions) *cobra.Command {
	o := &exportSchemaOptions{}

	cmd := &cobra.Command{
		Use:   "export-schema",
		Short: "Export collection schemas to a JSON file",
		Long: `Export collection schemas to a JSON file.

Collections are imported from --import, which may be a definition file or a
directory of them. Without --import the project's collections file is used
when there is one.

Examples:
  msy export-schema -o schema.json --pretty
  msy export-schema -i defs/ -o build/schema.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExportSchema(cmd, root, o)
		},
	}

	cmd.Flags().StringVarP(&o.output, "output", "o", "schema.json", "output file path")
	cmd.Flags().StringVarP(&o.importPath, "import", "i", "", "import collections from a definition file or directory before exporting")
	cmd.Flags().BoolVar(&o.pretty, "pretty", false, "pretty print the JSON output")
	cmd.Flags().BoolVar(&o.clear, "clear", false, "clear the registry before importing")

	return cmd
}

func runExportSchema(cmd *cobra.Command, root *rootOptions, o *exportSchemaOptions) error {
	app, err := root.open(cmd, true)
	if err != nil {
		return err
	}
	defer root.close(app)

	out := cmd.OutOrStdout()

	if o.clear {
		app.Registry.Clear()
	}

	source := o.importPath
	if source == "" {
		if _, err := os.Stat(app.Config.CollectionsFile()); err == nil {
			source = app.Config.CollectionsFile()
		}
	}

	if source != "" {
		abs, err := filepath.Abs(source)
		if err != nil {
			return fmt.Errorf("absolute path: %w", err)
		}
		fmt.Fprintf(out, "Importing collections from: %s\n", abs)

		if err := importDefinitions(app.Registry, abs); err != nil {
			return fmt.Errorf("import collections: %w", err)
		}
		fmt.Fprintln(out, "Collections imported successfully")
	}

	doc := app.Export()
	data, err := schemadoc.Marshal(doc, o.pretty)
	if err != nil {
		return err
	}

	output, err := filepath.Abs(o.output)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	if err := writeFile(output, data); err != nil {
		return err
	}

	fmt.Fprintf(out, "Schema exported successfully to: %s\n", output)
	fmt.Fprintf(out, "Collections exported: %d\n", len(doc.Collections))
	fmt.Fprintf(out, "Generated at: %s\n", doc.GeneratedAt)
	return nil
}

// importDefinitions loads a definition file, or every definition file under
// a directory.
func importDefinitions(r definition.Registrar, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		_, err = definition.LoadDir(r, path)
	} else {
		_, err = definition.Load(r, path)
	}
	return err
}
