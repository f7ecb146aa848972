// Package catalog lists the models known to work with each provider.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var builtin []byte

// Catalog maps a provider name to its known model names.
type Catalog struct {
	Providers map[string][]string `yaml:"providers" json:"providers"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("catalog: builtin models.yaml: %v", err))
	}
	return c
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c.Providers == nil {
		c.Providers = map[string][]string{}
	}
	return &c, nil
}

// Load reads a catalog file. An empty path yields the built-in catalog;
// providers listed in the file replace the built-in entries.
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read models file: %w", err)
	}
	override, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse models file %s: %w", path, err)
	}
	for name, models := range override.Providers {
		c.Providers[name] = models
	}
	return c, nil
}

// Known reports whether model is listed for provider.
func (c *Catalog) Known(provider, model string) bool {
	return slices.Contains(c.Providers[provider], model)
}
