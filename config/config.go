// Package config provides project configuration loading, validation and
// project discovery for the msy CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// File names looked up in a project directory.
const (
	SchemaFileName = "mimsy.schema.json"
	ConfigFileName = "mimsy.config.json"
)

// ConfigFileNames lists the accepted config files in lookup order.
var ConfigFileNames = []string{ConfigFileName, "mimsy.config.yaml", "mimsy.config.yml"}

// Environment variables overriding file based configuration.
const (
	EnvBasePath        = "MIMSY_BASE_PATH"
	EnvSchemaPath      = "MIMSY_SCHEMA_PATH"
	EnvCollectionsPath = "MIMSY_COLLECTIONS_PATH"
	EnvSnapshotsDir    = "MIMSY_SNAPSHOTS_DIR"
	EnvAPIURL          = "MIMSY_API_URL"
	EnvAPIToken        = "MIMSY_API_TOKEN"
	EnvAPITimeout      = "MIMSY_API_TIMEOUT"
	EnvLogLevel        = "MIMSY_LOG_LEVEL"
	EnvLogFormat       = "MIMSY_LOG_FORMAT"
)

// Config is the project configuration. Relative paths are resolved against
// BasePath.
type Config struct {
	BasePath        string        `yaml:"basePath"`
	SchemaPath      string        `yaml:"schemaPath" validate:"required"`
	ManifestPath    string        `yaml:"manifestPath"`
	CollectionsPath string        `yaml:"collectionsPath" validate:"required"`
	SnapshotsDir    string        `yaml:"snapshotsDir" validate:"required"`
	API             APIConfig     `yaml:"api"`
	Logging         LoggingConfig `yaml:"logging"`

	// File is the config file this configuration was read from, if any.
	File string `yaml:"-"`

	explicitBase bool
}

// APIConfig configures the content API client.
type APIConfig struct {
	URL     string        `yaml:"url" validate:"omitempty,url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout" validate:"min=0"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Load reads configuration from a JSON or YAML file. A relative basePath is
// resolved against the file's directory; an empty one defaults to it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	cfg.File = abs

	applyEnvOverrides(&cfg)

	dir := filepath.Dir(abs)
	cfg.explicitBase = cfg.BasePath != ""
	if cfg.BasePath == "" {
		cfg.BasePath = dir
	} else if !filepath.IsAbs(cfg.BasePath) {
		cfg.BasePath = filepath.Join(dir, cfg.BasePath)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration of a project rooted at base that has no
// config file. Environment overrides still apply.
func Default(base string) (*Config, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	cfg := Config{}
	applyEnvOverrides(&cfg)
	if cfg.BasePath == "" {
		cfg.BasePath = abs
	}
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Resolve returns p joined to BasePath unless it is already absolute.
func (c *Config) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BasePath, p)
}

// SchemaFile is the absolute path of the generated schema document.
func (c *Config) SchemaFile() string { return c.Resolve(c.SchemaPath) }

// CollectionsFile is the absolute path of the collection definitions.
func (c *Config) CollectionsFile() string { return c.Resolve(c.CollectionsPath) }

// SnapshotsPath is the absolute path of the applied snapshot directory.
func (c *Config) SnapshotsPath() string { return c.Resolve(c.SnapshotsDir) }

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvBasePath); v != "" {
		cfg.BasePath = v
	}
	if v := os.Getenv(EnvSchemaPath); v != "" {
		cfg.SchemaPath = v
	}
	if v := os.Getenv(EnvCollectionsPath); v != "" {
		cfg.CollectionsPath = v
	}
	if v := os.Getenv(EnvSnapshotsDir); v != "" {
		cfg.SnapshotsDir = v
	}

	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.API.URL = v
	}
	if v := os.Getenv(EnvAPIToken); v != "" {
		cfg.API.Token = v
	}
	if v := os.Getenv(EnvAPITimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.API.Timeout = d
		}
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Logging.Format = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.SchemaPath == "" {
		cfg.SchemaPath = cfg.ManifestPath
	}
	if cfg.SchemaPath == "" {
		cfg.SchemaPath = SchemaFileName
	}
	if cfg.CollectionsPath == "" {
		cfg.CollectionsPath = "src/lib/collections.yaml"
	}
	if cfg.SnapshotsDir == "" {
		cfg.SnapshotsDir = filepath.Join(".mimsy", "schemas")
	}

	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 30 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

var structValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

func validate(cfg *Config) error {
	err := structValidator.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describe(fe))
	}
	return errors.New(strings.Join(problems, "; "))
}

func describe(fe validator.FieldError) string {
	// Namespace is "Config.api.url"; drop the struct name.
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be an absolute URL, got %q", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("%s must not be negative", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
