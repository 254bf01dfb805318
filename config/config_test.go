package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mimsy-cms/mimsy/config"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
basePath: app
collectionsPath: defs/collections.yaml
snapshotsDir: snapshots
api:
  url: "http://localhost:3000"
  token: "abc"
  timeout: 15s
logging:
  level: debug
  format: json
`

	dir := t.TempDir()
	cfg := writeAndLoad(t, dir, "mimsy.config.yaml", content)

	if cfg.BasePath != filepath.Join(dir, "app") {
		t.Errorf("BasePath = %s, want %s", cfg.BasePath, filepath.Join(dir, "app"))
	}
	if cfg.API.URL != "http://localhost:3000" {
		t.Errorf("API.URL = %s, want http://localhost:3000", cfg.API.URL)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Errorf("API.Timeout = %v, want 15s", cfg.API.Timeout)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
	if got, want := cfg.CollectionsFile(), filepath.Join(dir, "app", "defs", "collections.yaml"); got != want {
		t.Errorf("CollectionsFile() = %s, want %s", got, want)
	}
	if got, want := cfg.SnapshotsPath(), filepath.Join(dir, "app", "snapshots"); got != want {
		t.Errorf("SnapshotsPath() = %s, want %s", got, want)
	}
	if cfg.File != filepath.Join(dir, "mimsy.config.yaml") {
		t.Errorf("File = %s", cfg.File)
	}
}

func TestLoad_JSON(t *testing.T) {
	dir := t.TempDir()
	cfg := writeAndLoad(t, dir, config.ConfigFileName, `{"basePath": "/srv/site", "manifestPath": "schema/mimsy.schema.json"}`)

	if cfg.BasePath != "/srv/site" {
		t.Errorf("BasePath = %s, want /srv/site", cfg.BasePath)
	}
	if cfg.SchemaPath != "schema/mimsy.schema.json" {
		t.Errorf("SchemaPath = %s, want manifestPath value", cfg.SchemaPath)
	}
	if got := cfg.SchemaFile(); got != "/srv/site/schema/mimsy.schema.json" {
		t.Errorf("SchemaFile() = %s", got)
	}
}

func TestLoad_SchemaPathWinsOverManifestPath(t *testing.T) {
	cfg := writeAndLoad(t, t.TempDir(), config.ConfigFileName, `{"schemaPath": "a.json", "manifestPath": "b.json"}`)
	if cfg.SchemaPath != "a.json" {
		t.Errorf("SchemaPath = %s, want a.json", cfg.SchemaPath)
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg := writeAndLoad(t, dir, config.ConfigFileName, `{}`)

	if cfg.BasePath != dir {
		t.Errorf("default BasePath = %s, want %s", cfg.BasePath, dir)
	}
	if cfg.SchemaPath != "mimsy.schema.json" {
		t.Errorf("default SchemaPath = %s", cfg.SchemaPath)
	}
	if cfg.CollectionsPath != "src/lib/collections.yaml" {
		t.Errorf("default CollectionsPath = %s", cfg.CollectionsPath)
	}
	if cfg.SnapshotsDir != filepath.Join(".mimsy", "schemas") {
		t.Errorf("default SnapshotsDir = %s", cfg.SnapshotsDir)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("default API.Timeout = %v, want 30s", cfg.API.Timeout)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Errorf("default Logging = %+v", cfg.Logging)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_MIMSY_TOKEN", "from-env")

	cfg := writeAndLoad(t, t.TempDir(), config.ConfigFileName, `{"api": {"token": "${TEST_MIMSY_TOKEN}"}}`)
	if cfg.API.Token != "from-env" {
		t.Errorf("API.Token = %s, want from-env", cfg.API.Token)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(config.EnvAPIURL, "https://cms.example.com")
	t.Setenv(config.EnvAPITimeout, "5s")
	t.Setenv(config.EnvLogLevel, "warn")
	t.Setenv(config.EnvCollectionsPath, "collections.yml")

	cfg := writeAndLoad(t, t.TempDir(), config.ConfigFileName, `{"api": {"url": "http://localhost:3000"}}`)

	if cfg.API.URL != "https://cms.example.com" {
		t.Errorf("API.URL = %s, want env value", cfg.API.URL)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("API.Timeout = %v, want 5s", cfg.API.Timeout)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %s, want warn", cfg.Logging.Level)
	}
	if cfg.CollectionsPath != "collections.yml" {
		t.Errorf("CollectionsPath = %s, want collections.yml", cfg.CollectionsPath)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad log level", `{"logging": {"level": "loud"}}`, "logging.level must be one of"},
		{"bad log format", `{"logging": {"format": "xml"}}`, "logging.format must be one of"},
		{"bad api url", `{"api": {"url": "not a url"}}`, "api.url must be an absolute URL"},
		{"negative timeout", "api:\n  timeout: -1s\n", "api.timeout must not be negative"},
		{"not a mapping", `[1, 2]`, "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), config.ConfigFileName, tt.content)
			_, err := config.Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want os.ErrNotExist", err)
	}
}

func TestDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Default(dir)
	if err != nil {
		t.Fatalf("Default error: %v", err)
	}
	if cfg.BasePath != dir {
		t.Errorf("BasePath = %s, want %s", cfg.BasePath, dir)
	}
	if cfg.File != "" {
		t.Errorf("File = %s, want empty", cfg.File)
	}
	if got := cfg.SchemaFile(); got != filepath.Join(dir, "mimsy.schema.json") {
		t.Errorf("SchemaFile() = %s", got)
	}
}

func TestResolve(t *testing.T) {
	cfg := &config.Config{BasePath: "/project"}

	if got := cfg.Resolve("a/b.yaml"); got != "/project/a/b.yaml" {
		t.Errorf("Resolve(relative) = %s", got)
	}
	if got := cfg.Resolve("/etc/x.yaml"); got != "/etc/x.yaml" {
		t.Errorf("Resolve(absolute) = %s", got)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func writeAndLoad(t *testing.T, dir, name, content string) *config.Config {
	t.Helper()
	cfg, err := config.Load(writeFile(t, dir, name, content))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}
