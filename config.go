package datacat

import (
	"fmt"
	"log/slog"
)

// Config represents configuration options for a Storage instance
type Config struct {
	// CatalogPath is the SQLite database file holding the catalog.
	CatalogPath string `json:"catalogPath" yaml:"catalog_path"`

	// DataDir is the root directory for sharded blob storage.
	DataDir string `json:"dataDir" yaml:"data_dir"`

	// Fields declares the metadata schema, in canonical order. The set is
	// fixed for the lifetime of the storage instance; every save and filter
	// is validated against it.
	Fields []string `json:"fields" yaml:"fields"`

	// Logger receives debug-level operation logs. Defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

// validate checks the config before any resource is opened.
func (c *Config) validate() error {
	if c.CatalogPath == "" {
		return fmt.Errorf("%w: catalog path cannot be empty", ErrInvalidConfig)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data directory cannot be empty", ErrInvalidConfig)
	}
	if len(c.Fields) == 0 {
		return fmt.Errorf("%w: at least one schema field is required", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Fields))
	for _, f := range c.Fields {
		if f == "" {
			return fmt.Errorf("%w: blank schema field name", ErrInvalidConfig)
		}
		if _, dup := seen[f]; dup {
			return fmt.Errorf("%w: duplicate schema field %q", ErrInvalidConfig, f)
		}
		seen[f] = struct{}{}
	}
	return nil
}
