package http

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mimsy-cms/mimsy/core/record"
	"github.com/mimsy-cms/mimsy/core/schema"
)

// maxConcurrentFetches bounds FetchRelations.
const maxConcurrentFetches = 8

// FetchRelation loads the target of rel.
//
// Builtins are dispatched by identity: schema.User gives a *record.User and
// schema.Media a *record.Media. Any other builtin fails with
// *UnknownBuiltinError. A collection target gives a record.Record processed
// with the target's schema; a global target is read from the globals
// endpoint. Errors are not retried.
func (c *Client) FetchRelation(ctx context.Context, rel record.UnfetchedRelation) (any, error) {
	kind := targetKind(rel.Target)
	v, err := c.fetchRelation(ctx, rel)
	if c.metrics != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		c.metrics.RelationFetches.WithLabelValues(kind, result).Inc()
	}
	return v, err
}

func (c *Client) fetchRelation(ctx context.Context, rel record.UnfetchedRelation) (any, error) {
	if rel.Target == nil {
		return nil, fmt.Errorf("fetch relation: no target")
	}
	if needsID(rel.Target) && !rel.HasID() {
		return nil, fmt.Errorf("fetch %s relation: %w", rel.Target.TargetName(), ErrMissingRelationID)
	}

	switch target := rel.Target.(type) {
	case *schema.Builtin:
		switch target {
		case schema.User:
			u, err := c.Users().Get(ctx, rel.ID)
			if err != nil {
				return nil, err
			}
			return u, nil
		case schema.Media:
			m, err := c.Media().Get(ctx, rel.ID)
			if err != nil {
				return nil, err
			}
			return m, nil
		default:
			return nil, &UnknownBuiltinError{Name: target.Name()}
		}
	case *schema.Collection:
		r, err := c.Fetch(ctx, target, rel.ID)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("fetch relation: unsupported target %T", rel.Target)
	}
}

// FetchRelations fetches every relation concurrently. Results keep the order
// of rels. The first error cancels the remaining fetches and is returned.
func (c *Client) FetchRelations(ctx context.Context, rels []record.UnfetchedRelation) ([]any, error) {
	results := make([]any, len(rels))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, rel := range rels {
		g.Go(func() error {
			v, err := c.FetchRelation(ctx, rel)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// Resolve replaces every relation of r with its fetched target. Relations
// without an id are left as they are, except relations to a global, which
// need none.
func (c *Client) Resolve(ctx context.Context, collection *schema.Collection, r record.Record) (record.Record, error) {
	if collection == nil {
		return nil, fmt.Errorf("resolve: nil collection")
	}

	var names []string
	var rels []record.UnfetchedRelation
	for _, name := range collection.Schema.Names() {
		rel, ok := r[name].(record.UnfetchedRelation)
		if !ok || rel.Target == nil || (needsID(rel.Target) && !rel.HasID()) {
			continue
		}
		names = append(names, name)
		rels = append(rels, rel)
	}

	values, err := c.FetchRelations(ctx, rels)
	if err != nil {
		return nil, err
	}

	out := make(record.Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	for i, name := range names {
		out[name] = values[i]
	}
	return out, nil
}

// needsID reports whether fetching t requires a record id. Globals are
// singletons read without one.
func needsID(t schema.Target) bool {
	c, ok := t.(*schema.Collection)
	return !ok || c == nil || !c.IsGlobal
}

func targetKind(t schema.Target) string {
	switch t := t.(type) {
	case *schema.Builtin:
		return "builtin"
	case *schema.Collection:
		if t != nil && t.IsGlobal {
			return "global"
		}
		return "collection"
	default:
		return "unknown"
	}
}
