package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/datacat-io/datacat"
)

// fileConfig is the yaml shape of the CLI config file.
type fileConfig struct {
	CatalogPath string   `yaml:"catalog_path"`
	DataDir     string   `yaml:"data_dir"`
	Fields      []string `yaml:"fields"`
}

// loadConfig reads the yaml config file into a datacat.Config.
func loadConfig(path string) (datacat.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return datacat.Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return datacat.Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return datacat.Config{
		CatalogPath: fc.CatalogPath,
		DataDir:     fc.DataDir,
		Fields:      fc.Fields,
	}, nil
}
