package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mimsy-cms/mimsy/adapters/metrics"
)

func TestNewWithRegistry(t *testing.T) {
	// Use a new registry to avoid conflicts with other tests
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	if m == nil {
		t.Fatal("NewWithRegistry returned nil")
	}
	if m.RequestsTotal == nil {
		t.Error("RequestsTotal is nil")
	}
	if m.RelationFetches == nil {
		t.Error("RelationFetches is nil")
	}
	if m.DefinitionReloads == nil {
		t.Error("DefinitionReloads is nil")
	}
}

func TestRequestsTotal(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.RequestsTotal.WithLabelValues("/v1/users/:id", "2xx").Inc()
	m.RequestsTotal.WithLabelValues("/v1/collections/posts/:id", "4xx").Add(3)

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/v1/collections/posts/:id", "4xx")); got != 3 {
		t.Errorf("requests = %v, want 3", got)
	}
	if n := testutil.CollectAndCount(m.RequestsTotal); n != 2 {
		t.Errorf("series = %d, want 2", n)
	}
}

func TestSchemaMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.SchemaExports.Inc()
	m.SchemaCollections.Set(4)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}

	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	for _, name := range []string{"mimsy_schema_exports_total", "mimsy_schema_collections"} {
		if !found[name] {
			t.Errorf("metric %s not gathered", name)
		}
	}
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewWithRegistry(reg)

	defer func() {
		if recover() == nil {
			t.Error("registering twice on one registry should panic")
		}
	}()
	metrics.NewWithRegistry(reg)
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{
		200: "2xx",
		204: "2xx",
		404: "4xx",
		503: "5xx",
		0:   "unknown",
		700: "unknown",
	}
	for code, want := range tests {
		if got := metrics.StatusClass(code); got != want {
			t.Errorf("StatusClass(%d) = %q, want %q", code, got, want)
		}
	}
}

func TestResource(t *testing.T) {
	tests := map[string]string{
		"/v1/users":                 "/v1/users",
		"/v1/users/42":              "/v1/users/:id",
		"/v1/media/abc":             "/v1/media/:id",
		"/v1/collections/posts":     "/v1/collections/posts",
		"/v1/collections/posts/123": "/v1/collections/posts/:id",
		"/v1/globals/settings":      "/v1/globals/settings",
		"/v1/globals/settings/1":    "/v1/globals/settings/:id",
		"/other/path":               "/other/path",
	}
	for path, want := range tests {
		if got := metrics.Resource(path); got != want {
			t.Errorf("Resource(%q) = %q, want %q", path, got, want)
		}
	}
}
