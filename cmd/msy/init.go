package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mimsy-cms/mimsy/config"
	"github.com/mimsy-cms/mimsy/core/definition"
	"github.com/mimsy-cms/mimsy/core/registry"
	"github.com/mimsy-cms/mimsy/core/serializer"
	"github.com/mimsy-cms/mimsy/pkg/schemadoc"
)

// exampleCollections is written by msy init.
const exampleCollections = `# Collections of this mimsy project.
# Run "msy update" after editing to regenerate mimsy.schema.json.
collections:
  - name: tags
    fields:
      name:
        type: string
        description: The name of the tag
        constraints: { minLength: 2, maxLength: 50 }
      color:
        type: string
        description: The color of the tag, in **hexadecimal** format
        constraints: { minLength: 6, maxLength: 6 }

  - name: posts
    fields:
      title:
        type: string
        description: The title of the post
        constraints: { minLength: 5, maxLength: 100 }
      author:
        type: relation
        relatesTo: User
        description: The author of the post
        constraints: { required: true }
      tags:
        type: multi_relation
        relatesTo: tags
        description: The tags associated with the post
        constraints: { required: true }
      coverImage:
        type: media
        description: The cover image of the post
        constraints: { required: true }
`

type initOptions struct {
	schemaPath      string
	collectionsPath string
	force           bool
}

// projectFile is the mimsy.config.json written by init.
type projectFile struct {
	BasePath        string `json:"basePath"`
	SchemaPath      string `json:"schemaPath"`
	CollectionsPath string `json:"collectionsPath"`
}

func newInitCmd(root *rootOptions) *cobra.Command {
	o := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new mimsy project with schema files",
		Long: `Initialize a mimsy project in the current directory (or --dir).

This will create:
  mimsy.config.json         project configuration
  src/lib/collections.yaml  example collection definitions
  mimsy.schema.json         schema generated from the definitions

Existing files are left alone unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, root, o)
		},
	}

	cmd.Flags().StringVar(&o.schemaPath, "schema", config.SchemaFileName, "schema file path, relative to the project")
	cmd.Flags().StringVar(&o.collectionsPath, "collections", "src/lib/collections.yaml", "collections file path, relative to the project")
	cmd.Flags().BoolVar(&o.force, "force", false, "overwrite existing files")

	return cmd
}

func runInit(cmd *cobra.Command, root *rootOptions, o *initOptions) error {
	out := cmd.OutOrStdout()

	base := root.dir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("working directory: %w", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}

	if filepath.Ext(o.schemaPath) != ".json" {
		return fmt.Errorf("schema file must have a .json extension: %s", o.schemaPath)
	}
	if !definition.IsDefinitionFile(o.collectionsPath) {
		return fmt.Errorf("collections file must be .yaml, .yml or .json: %s", o.collectionsPath)
	}

	configPath := filepath.Join(base, config.ConfigFileName)
	schemaPath := resolveIn(base, o.schemaPath)
	collectionsPath := resolveIn(base, o.collectionsPath)

	if !o.force {
		for _, p := range []string{configPath, schemaPath, collectionsPath} {
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", p)
			}
		}
	}

	fmt.Fprintln(out, "Initializing mimsy project...")
	fmt.Fprintf(out, "Base directory: %s\n", base)

	// Build the example schema before touching the disk.
	reg := registry.New(root.logger(cmd))
	if _, err := definition.LoadBytes(reg, []byte(exampleCollections)); err != nil {
		return fmt.Errorf("example collections: %w", err)
	}
	doc := serializer.Export(reg.All(), root.now())

	data, err := json.MarshalIndent(projectFile{
		BasePath:        base,
		SchemaPath:      o.schemaPath,
		CollectionsPath: o.collectionsPath,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := writeFile(configPath, append(data, '\n')); err != nil {
		return err
	}
	fmt.Fprintf(out, "Created: %s\n", configPath)

	if err := writeFile(collectionsPath, []byte(exampleCollections)); err != nil {
		return err
	}
	fmt.Fprintf(out, "Created: %s\n", collectionsPath)

	header := []string{
		"Updated at: " + stamp(root.now()),
		"Version: " + cliVersion(),
	}
	if err := schemadoc.WriteFile(schemaPath, doc, header); err != nil {
		return err
	}
	fmt.Fprintf(out, "Created: %s\n", schemaPath)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Mimsy project initialized successfully!")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintf(out, "1. Define your collections in %s\n", o.collectionsPath)
	fmt.Fprintln(out, "2. Use 'msy update' to update the mimsy json schema")
	return nil
}

func resolveIn(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
