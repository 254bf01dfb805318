package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apihttp "github.com/mimsy-cms/mimsy/adapters/http"
	"github.com/mimsy-cms/mimsy/adapters/metrics"
	"github.com/mimsy-cms/mimsy/core/record"
	"github.com/mimsy-cms/mimsy/core/schema"
)

// fakeAPI is an in-memory content API.
type fakeAPI struct {
	requests  atomic.Int32
	lastToken atomic.Value
	lastReqID atomic.Value
}

func (f *fakeAPI) router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.requests.Add(1)
			f.lastToken.Store(req.Header.Get("Authorization"))
			f.lastReqID.Store(req.Header.Get("X-Request-ID"))
			next.ServeHTTP(w, req)
		})
	})

	r.Get("/v1/users", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []map[string]any{
			{"id": 1, "email": "a@example.com", "is_admin": true, "created_at": "2025-01-01T00:00:00Z", "updated_at": "2025-01-01T00:00:00Z"},
			{"id": 2, "email": "b@example.com", "is_admin": false, "created_at": "2025-01-01T00:00:00Z", "updated_at": "2025-01-01T00:00:00Z"},
		})
	})
	r.Get("/v1/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{"id": chi.URLParam(req, "id"), "email": "a@example.com", "is_admin": true,
			"created_at": "2025-01-01T00:00:00Z", "updated_at": "2025-01-01T00:00:00Z"})
	})
	r.Get("/v1/media", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []map[string]any{{"id": 9, "name": "cat.png", "size": 10}})
	})
	r.Get("/v1/media/{id}", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{"id": chi.URLParam(req, "id"), "uuid": "u-1", "name": "cat.png",
			"content_type": "image/png", "created_at": "2025-01-01T00:00:00Z", "size": 2048,
			"uploaded_by_id": 1, "url": "/uploads/cat.png"})
	})
	r.Get("/v1/collections/posts", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []map[string]any{
			{"id": 1, "title": "First", "author_id": 1, "tags": []int{1, 2}},
			{"id": 2, "title": "Second"},
		})
	})
	r.Get("/v1/collections/posts/{id}", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "id") == "404" {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"id": chi.URLParam(req, "id"), "title": "Hello", "author_id": 7, "cover_id": 9})
	})
	r.Get("/v1/collections/tags/{id}", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{"id": chi.URLParam(req, "id"), "name": "go"})
	})
	r.Get("/v1/collections/broken/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title": `))
	})
	r.Get("/v1/globals/settings", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"siteTitle": "Mimsy"})
	})
	r.Get("/v1/globals/settings/{id}", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{"siteTitle": "Version " + chi.URLParam(req, "id")})
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type fixture struct {
	api      *fakeAPI
	client   *apihttp.Client
	reg      *prometheus.Registry
	metrics  *metrics.Collector
	posts    *schema.Collection
	tags     *schema.Collection
	settings *schema.Collection
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	api := &fakeAPI{}
	server := httptest.NewServer(api.router())
	t.Cleanup(server.Close)

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	client, err := apihttp.NewClient(apihttp.Config{BaseURL: server.URL, Token: "secret"}, apihttp.WithMetrics(m))
	require.NoError(t, err)
	t.Cleanup(client.Close)

	tags := &schema.Collection{Name: "tags", Schema: schema.NewSchema(schema.F("name", schema.ShortString()))}
	posts := &schema.Collection{Name: "posts", Schema: schema.NewSchema(
		schema.F("title", schema.ShortString()),
		schema.F("author", schema.Relation(schema.RelationOptions{RelatesTo: schema.User})),
		schema.F("cover", schema.MediaField()),
		schema.F("tags", schema.MultiRelation(schema.RelationOptions{RelatesTo: tags})),
	)}
	settings := &schema.Collection{Name: "settings", IsGlobal: true, Schema: schema.NewSchema(
		schema.F("siteTitle", schema.ShortString()),
	)}

	return &fixture{api: api, client: client, reg: reg, metrics: m, posts: posts, tags: tags, settings: settings}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     apihttp.Config
		wantErr bool
	}{
		{"valid config", apihttp.Config{BaseURL: "https://api.example.com", Timeout: 5 * time.Second, MaxIdleConns: 10}, false},
		{"minimal config with defaults", apihttp.Config{BaseURL: "http://localhost:3000"}, false},
		{"empty URL", apihttp.Config{}, true},
		{"invalid URL", apihttp.Config{BaseURL: "://invalid-url"}, true},
		{"unsupported scheme", apihttp.Config{BaseURL: "ftp://example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := apihttp.NewClient(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cfg.BaseURL, client.BaseURL())
			client.Close()
		})
	}
}

func TestRequestHeaders(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.Users().All(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", f.api.lastToken.Load())
	assert.Len(t, f.api.lastReqID.Load().(string), 36, "X-Request-ID should be a UUID")
}

func TestUsersAndMedia(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	users, err := f.client.Users().All(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, record.ID("1"), users[0].ID)
	assert.True(t, users[0].IsAdmin)

	user, err := f.client.Users().Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, record.ID("42"), user.ID)

	media, err := f.client.Media().All(ctx)
	require.NoError(t, err)
	require.Len(t, media, 1)

	item, err := f.client.Media().Get(ctx, "9")
	require.NoError(t, err)
	assert.Equal(t, "image/png", item.ContentType)
	assert.Equal(t, record.ID("1"), item.UploadedByID)
	assert.EqualValues(t, 2048, item.Size)
}

func TestCollectionClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	all, err := f.client.With(f.posts).All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	assert.Equal(t, "First", all[0]["title"])
	assert.Equal(t, record.UnfetchedRelation{Target: schema.User, ID: "1"}, all[0]["author"])
	assert.Equal(t, record.UnsupportedValue, all[0]["tags"])
	assert.Equal(t, record.MissingID, all[1]["author"].(record.UnfetchedRelation).ID)

	one, err := f.client.With(f.posts).Get(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, record.UnfetchedRelation{Target: schema.Media, ID: "9"}, one["cover"])
	_, hasID := one["id"]
	assert.False(t, hasID, "undeclared keys are dropped")
}

func TestGlobalClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, err := f.client.Global(f.settings).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Mimsy", g["siteTitle"])

	v, err := f.client.Global(f.settings).GetByID(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "Version 3", v["siteTitle"])
}

func TestStatusError(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.With(f.posts).Get(context.Background(), "404")
	require.Error(t, err)

	var se *apihttp.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, http.MethodGet, se.Method)
	assert.Contains(t, se.Body, "not found")
	assert.True(t, apihttp.IsNotFound(err))
	assert.Contains(t, err.Error(), "404 Not Found")

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RequestErrors.WithLabelValues("status")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RequestsTotal.WithLabelValues("/v1/collections/posts/:id", "4xx")))
}

func TestDecodeError(t *testing.T) {
	f := newFixture(t)
	broken := &schema.Collection{Name: "broken", Schema: schema.NewSchema()}

	_, err := f.client.With(broken).Get(context.Background(), "1")
	require.Error(t, err)

	var se *apihttp.StatusError
	assert.False(t, errors.As(err, &se))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RequestErrors.WithLabelValues("decode")))
}

func TestContextCancelled(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.client.Users().All(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
