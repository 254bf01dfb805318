package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mimsy-cms/mimsy/bootstrap"
	"github.com/mimsy-cms/mimsy/config"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Update mimsy.schema.json whenever the collections file changes",
		Long: `Run update once, then again every time the collections file is saved.
A file that fails to load is reported and the previous schema is kept.
Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := root.open(cmd, false)
			if err != nil {
				return err
			}
			defer root.close(app)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runWatch(ctx, cmd, root, app)
		},
	}
}

func runWatch(ctx context.Context, cmd *cobra.Command, root *rootOptions, app *bootstrap.App) error {
	out := cmd.OutOrStdout()
	path := app.Config.CollectionsFile()

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no collections file found at %s: %w", path, err)
	}

	var mu sync.Mutex
	update := func() {
		mu.Lock()
		defer mu.Unlock()

		if err := app.Reload(); err != nil {
			app.Logger.Error().Err(err).Str("path", path).Msg("collections not reloaded, keeping previous schema")
			return
		}
		doc, schemaPath, err := root.writeSchema(app)
		if err != nil {
			app.Logger.Error().Err(err).Msg("schema not written")
			return
		}
		fmt.Fprintf(out, "Updated %s (%d collections)\n", schemaPath, len(doc.Collections))
	}

	update()

	w, err := config.NewWatcher(app.Logger, func(string) { update() })
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := w.Add(path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Watching %s for changes (Ctrl-C to stop)\n", path)

	<-ctx.Done()

	// Wait for an update in progress.
	w.Stop()
	mu.Lock()
	defer mu.Unlock()
	return nil
}
