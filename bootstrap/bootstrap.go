// Package bootstrap wires the msy CLI dependencies: project configuration,
// logger, collection registry, metrics and the content API client.
package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	apihttp "github.com/mimsy-cms/mimsy/adapters/http"
	"github.com/mimsy-cms/mimsy/adapters/metrics"
	"github.com/mimsy-cms/mimsy/config"
	"github.com/mimsy-cms/mimsy/core/definition"
	"github.com/mimsy-cms/mimsy/core/registry"
	"github.com/mimsy-cms/mimsy/core/schema"
	"github.com/mimsy-cms/mimsy/pkg/schemadoc"
)

// Options configures New.
type Options struct {
	// Dir is where project lookup starts. Defaults to the working directory.
	Dir string

	// ConfigFile skips project lookup and loads this file.
	ConfigFile string

	// AllowMissing falls back to a default configuration rooted at Dir when
	// no project is found.
	AllowMissing bool

	// LogLevel overrides the configured level when set.
	LogLevel string

	// LogOutput receives log lines. Defaults to os.Stderr.
	LogOutput io.Writer
}

// App holds the wired dependencies of one CLI invocation.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Registry *registry.Registry
	Metrics  *metrics.Collector

	// Gatherer is the private Prometheus registry Metrics is registered with.
	Gatherer *prometheus.Registry

	client *apihttp.Client
}

// New loads the project configuration and wires the application.
func New(opts Options) (*App, error) {
	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("working directory: %w", err)
		}
		dir = wd
	}

	cfg, err := loadConfig(dir, opts)
	if err != nil {
		return nil, err
	}

	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger := NewLogger(cfg.Logging, out)

	logger.Debug().
		Str("base_path", cfg.BasePath).
		Str("config_file", cfg.File).
		Msg("project located")

	reg := prometheus.NewRegistry()

	return &App{
		Config:   cfg,
		Logger:   logger,
		Registry: registry.New(logger),
		Metrics:  metrics.NewWithRegistry(reg),
		Gatherer: reg,
	}, nil
}

func loadConfig(dir string, opts Options) (*config.Config, error) {
	if opts.ConfigFile != "" {
		cfg, err := config.Load(opts.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := config.Locate(dir)
	if errors.Is(err, config.ErrProjectNotFound) && opts.AllowMissing {
		return config.Default(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("locate project: %w", err)
	}
	return cfg, nil
}

// NewLogger builds a JSON or console logger. An unknown level falls back to
// info.
func NewLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).Level(level).With().Timestamp().Logger()
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// LoadDefinitions reads the project's collections file into the registry,
// clearing it first when clear is set. On failure the registry is left as it
// was.
func (a *App) LoadDefinitions(clear bool) ([]*schema.Collection, error) {
	path := a.Config.CollectionsFile()

	// Stage into a quiet registry so overwrite warnings are logged once,
	// by the real one.
	staged := registry.New(zerolog.Nop())
	if !clear {
		for _, c := range a.Registry.All() {
			if err := staged.Register(c); err != nil {
				return nil, err
			}
		}
	}

	collections, err := definition.Load(staged, path)
	if err != nil {
		return nil, err
	}

	if clear {
		a.Registry.Clear()
	}
	for _, c := range collections {
		// Names were checked against the staging registry.
		if err := a.Registry.Register(c); err != nil {
			return nil, err
		}
	}

	a.Logger.Debug().
		Str("path", path).
		Int("collections", len(collections)).
		Msg("collections loaded")

	return collections, nil
}

// Reload clears the registry and loads the collections file again, recording
// the outcome in the reload metrics.
func (a *App) Reload() error {
	_, err := a.LoadDefinitions(true)
	a.Metrics.DefinitionReloads.Inc()
	if err != nil {
		a.Metrics.DefinitionReloadErrors.Inc()
		return err
	}
	a.Metrics.DefinitionLastReload.SetToCurrentTime()
	return nil
}

// Export serializes the registry.
func (a *App) Export() schemadoc.Document {
	doc := a.Registry.ExportSchema()
	a.Metrics.SchemaExports.Inc()
	a.Metrics.SchemaCollections.Set(float64(len(doc.Collections)))
	return doc
}

// Client returns the content API client, creating it on first use.
func (a *App) Client() (*apihttp.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	if a.Config.API.URL == "" {
		return nil, fmt.Errorf("no content API configured: set api.url in %s or %s", config.ConfigFileName, config.EnvAPIURL)
	}

	client, err := apihttp.NewClient(apihttp.Config{
		BaseURL: a.Config.API.URL,
		Token:   a.Config.API.Token,
		Timeout: a.Config.API.Timeout,
	}, apihttp.WithLogger(a.Logger), apihttp.WithMetrics(a.Metrics))
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	a.client = client
	return client, nil
}

// WriteMetrics writes the collected metrics to path in the Prometheus text
// format.
func (a *App) WriteMetrics(path string) error {
	if err := prometheus.WriteToTextfile(path, a.Gatherer); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// Close releases the client, if one was created.
func (a *App) Close() {
	if a.client != nil {
		a.client.Close()
		a.client = nil
	}
}
