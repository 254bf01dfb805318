package http

import (
	"context"
	"fmt"

	"github.com/mimsy-cms/mimsy/core/record"
	"github.com/mimsy-cms/mimsy/core/schema"
)

// UserClient reads the user builtin.
type UserClient struct {
	c *Client
}

// Users returns the user builtin client.
func (c *Client) Users() *UserClient {
	return &UserClient{c: c}
}

// All lists every user.
func (u *UserClient) All(ctx context.Context) ([]record.User, error) {
	var out []record.User
	if err := u.c.get(ctx, &out, "v1", "users"); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one user.
func (u *UserClient) Get(ctx context.Context, id string) (*record.User, error) {
	var out record.User
	if err := u.c.get(ctx, &out, "v1", "users", id); err != nil {
		return nil, err
	}
	return &out, nil
}

// MediaClient reads the media builtin.
type MediaClient struct {
	c *Client
}

// Media returns the media builtin client.
func (c *Client) Media() *MediaClient {
	return &MediaClient{c: c}
}

// All lists every media item.
func (m *MediaClient) All(ctx context.Context) ([]record.Media, error) {
	var out []record.Media
	if err := m.c.get(ctx, &out, "v1", "media"); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one media item.
func (m *MediaClient) Get(ctx context.Context, id string) (*record.Media, error) {
	var out record.Media
	if err := m.c.get(ctx, &out, "v1", "media", id); err != nil {
		return nil, err
	}
	return &out, nil
}

// CollectionClient reads the records of a collection and post-processes them
// with its schema.
type CollectionClient struct {
	c          *Client
	collection *schema.Collection
}

// With returns a client for the records of collection.
func (c *Client) With(collection *schema.Collection) *CollectionClient {
	return &CollectionClient{c: c, collection: collection}
}

// All lists every record of the collection.
func (cc *CollectionClient) All(ctx context.Context) ([]record.Record, error) {
	var raw []map[string]any
	if err := cc.c.get(ctx, &raw, "v1", "collections", cc.collection.Name); err != nil {
		return nil, err
	}

	out := make([]record.Record, 0, len(raw))
	for _, item := range raw {
		out = append(out, record.PostProcess(cc.collection, item))
	}
	return out, nil
}

// Get fetches one record of the collection.
func (cc *CollectionClient) Get(ctx context.Context, id string) (record.Record, error) {
	var raw map[string]any
	if err := cc.c.get(ctx, &raw, "v1", "collections", cc.collection.Name, id); err != nil {
		return nil, err
	}
	return record.PostProcess(cc.collection, raw), nil
}

// GlobalClient reads a global.
type GlobalClient struct {
	c      *Client
	global *schema.Collection
}

// Global returns a client for a global.
func (c *Client) Global(global *schema.Collection) *GlobalClient {
	return &GlobalClient{c: c, global: global}
}

// Get fetches the global.
func (g *GlobalClient) Get(ctx context.Context) (record.Record, error) {
	var raw map[string]any
	if err := g.c.get(ctx, &raw, "v1", "globals", g.global.Name); err != nil {
		return nil, err
	}
	return record.PostProcess(g.global, raw), nil
}

// GetByID fetches a specific version of the global.
func (g *GlobalClient) GetByID(ctx context.Context, id string) (record.Record, error) {
	var raw map[string]any
	if err := g.c.get(ctx, &raw, "v1", "globals", g.global.Name, id); err != nil {
		return nil, err
	}
	return record.PostProcess(g.global, raw), nil
}

// Fetch gets a record of c by id, using the globals endpoint when c is a
// global.
func (c *Client) Fetch(ctx context.Context, collection *schema.Collection, id string) (record.Record, error) {
	if collection == nil {
		return nil, fmt.Errorf("fetch: nil collection")
	}
	if collection.IsGlobal {
		return c.Global(collection).Get(ctx)
	}
	return c.With(collection).Get(ctx, id)
}
