package main

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mimsy-cms/mimsy/bootstrap"
	"github.com/mimsy-cms/mimsy/config"
	"github.com/mimsy-cms/mimsy/core/serializer"
	"github.com/mimsy-cms/mimsy/pkg/schemadoc"
)

// rootOptions holds the global flags.
type rootOptions struct {
	configFile  string
	dir         string
	logLevel    string
	metricsFile string

	// now is replaced in tests.
	now func() time.Time
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithOptions(&rootOptions{now: time.Now})
}

func newRootCmdWithOptions(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "msy",
		Short: "A CLI tool for mimsy, the simple SvelteKit CMS",
		Long: `msy manages the collection schema of a mimsy project.

Collections are declared in a definition file (src/lib/collections.yaml by
default) and exported to mimsy.schema.json, which the mimsy backend reads.

Quick start:
  msy init      # Create a project with example collections
  msy update    # Regenerate mimsy.schema.json
  msy apply     # Save a described snapshot of the schema
  msy diff      # Show what changed since the last update`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&o.configFile, "config", "c", "", "config file path (default: located from the working directory)")
	cmd.PersistentFlags().StringVarP(&o.dir, "dir", "C", "", "directory to start project lookup from")
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&o.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	cmd.AddCommand(
		newInitCmd(o),
		newExportSchemaCmd(o),
		newUpdateCmd(o),
		newApplyCmd(o),
		newDiffCmd(o),
		newListCmd(o),
		newWatchCmd(o),
		newGetCmd(o),
		newVersionCmd(),
	)

	return cmd
}

// open wires the application for one command. allowMissing accepts a
// directory that is not inside a project.
func (o *rootOptions) open(cmd *cobra.Command, allowMissing bool) (*bootstrap.App, error) {
	return bootstrap.New(bootstrap.Options{
		Dir:          o.dir,
		ConfigFile:   o.configFile,
		AllowMissing: allowMissing,
		LogLevel:     o.logLevel,
		LogOutput:    cmd.ErrOrStderr(),
	})
}

// logger is used by commands that run outside a project.
func (o *rootOptions) logger(cmd *cobra.Command) zerolog.Logger {
	return bootstrap.NewLogger(config.LoggingConfig{Level: o.logLevel, Format: "console"}, cmd.ErrOrStderr())
}

// close writes the metrics file, if requested, and releases the app.
func (o *rootOptions) close(app *bootstrap.App) {
	if o.metricsFile != "" {
		if err := app.WriteMetrics(o.metricsFile); err != nil {
			app.Logger.Error().Err(err).Str("path", o.metricsFile).Msg("metrics not written")
		}
	}
	app.Close()
}

// stamp formats t the way generatedAt is written.
func stamp(t time.Time) string {
	return t.UTC().Format(serializer.TimeFormat)
}

// writeSchema writes the registry export to the project's schema file.
func (o *rootOptions) writeSchema(app *bootstrap.App) (schemadoc.Document, string, error) {
	doc := app.Export()
	path := app.Config.SchemaFile()

	header := []string{
		"Updated at: " + stamp(o.now()),
		"Version: " + cliVersion(),
	}
	if err := schemadoc.WriteFile(path, doc, header); err != nil {
		return doc, path, err
	}
	return doc, path, nil
}

func cliVersion() string {
	return "msy@" + version
}
