package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	apihttp "github.com/mimsy-cms/mimsy/adapters/http"
	"github.com/mimsy-cms/mimsy/bootstrap"
	"github.com/mimsy-cms/mimsy/core/record"
	"github.com/mimsy-cms/mimsy/core/schema"
)

type getOptions struct {
	resolve bool
	compact bool
}

func newGetCmd(root *rootOptions) *cobra.Command {
	o := &getOptions{}

	cmd := &cobra.Command{
		Use:   "get <collection> [id]",
		Short: "Fetch records from the content API",
		Long: `Fetch records of a collection or global from the content API and print
them as JSON. Relation fields are printed as {"_collection", "id"} stubs
unless --resolve is given, in which case their targets are fetched too.

"users" and "media" read the builtin types.

Examples:
  msy get posts            # every post
  msy get posts 12 --resolve
  msy get settings         # a global
  msy get users 1`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := root.open(cmd, false)
			if err != nil {
				return err
			}
			defer root.close(app)

			id := ""
			if len(args) == 2 {
				id = args[1]
			}
			v, err := runGet(cmd.Context(), app, args[0], id, o.resolve)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v, !o.compact)
		},
	}

	cmd.Flags().BoolVar(&o.resolve, "resolve", false, "fetch relation targets")
	cmd.Flags().BoolVar(&o.compact, "compact", false, "print compact JSON")

	return cmd
}

func runGet(ctx context.Context, app *bootstrap.App, name, id string, resolve bool) (any, error) {
	client, err := app.Client()
	if err != nil {
		return nil, err
	}

	switch name {
	case "users":
		if id == "" {
			return client.Users().All(ctx)
		}
		return client.FetchRelation(ctx, record.UnfetchedRelation{Target: schema.User, ID: id})
	case "media":
		if id == "" {
			return client.Media().All(ctx)
		}
		return client.FetchRelation(ctx, record.UnfetchedRelation{Target: schema.Media, ID: id})
	}

	if _, err := app.LoadDefinitions(true); err != nil {
		return nil, fmt.Errorf("import collections: %w", err)
	}
	c, ok := app.Registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", name)
	}

	if c.IsGlobal || id != "" {
		r, err := fetchOne(ctx, client, c, id)
		if err != nil {
			return nil, err
		}
		if resolve {
			return client.Resolve(ctx, c, r)
		}
		return r, nil
	}

	records, err := client.With(c).All(ctx)
	if err != nil {
		return nil, err
	}
	if !resolve {
		return records, nil
	}
	for i, r := range records {
		if records[i], err = client.Resolve(ctx, c, r); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func fetchOne(ctx context.Context, client *apihttp.Client, c *schema.Collection, id string) (record.Record, error) {
	if c.IsGlobal && id != "" {
		return client.Global(c).GetByID(ctx, id)
	}
	return client.Fetch(ctx, c, id)
}

func printJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
