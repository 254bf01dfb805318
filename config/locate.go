package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrProjectNotFound is returned by Locate when no project encloses the
// starting directory.
var ErrProjectNotFound = errors.New("no mimsy project found")

// Locate finds the project enclosing dir and returns its configuration.
//
// Starting at dir and moving up one directory at a time:
//  1. a config file that sets basePath wins, and basePath is the project root;
//  2. otherwise a mimsy.schema.json marks the directory as the project root,
//     using that directory's config file if it has one;
//  3. a .git entry or the filesystem root ends the search with
//     ErrProjectNotFound.
//
// A config file that cannot be loaded is returned as an error.
func Locate(dir string) (*Config, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	for {
		cfg, hasBase, err := loadDirConfig(current)
		if err != nil {
			return nil, err
		}
		if hasBase {
			return cfg, nil
		}

		if exists(filepath.Join(current, SchemaFileName)) {
			if cfg != nil {
				return cfg, nil
			}
			return Default(current)
		}

		if exists(filepath.Join(current, ".git")) {
			return nil, fmt.Errorf("%w (reached git repository root at %s)", ErrProjectNotFound, current)
		}

		parent := filepath.Dir(current)
		if parent == current {
			return nil, fmt.Errorf("%w (reached filesystem root)", ErrProjectNotFound)
		}
		current = parent
	}
}

// FindConfigFile returns the first config file present in dir, or "".
func FindConfigFile(dir string) string {
	for _, name := range ConfigFileNames {
		p := filepath.Join(dir, name)
		if exists(p) {
			return p
		}
	}
	return ""
}

// loadDirConfig loads the config file of dir, if any, and reports whether it
// sets basePath explicitly.
func loadDirConfig(dir string) (*Config, bool, error) {
	path := FindConfigFile(dir)
	if path == "" {
		return nil, false, nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, cfg.explicitBase, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
