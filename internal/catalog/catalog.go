// Package catalog holds the allowed answers for the start-of-day wizard.
package catalog

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the read-only set of objectives, properties and fields.
type Catalog struct {
	Objectives []string `yaml:"objectives"`
	Properties []string `yaml:"properties"`
	Fields     []string `yaml:"fields"`
}

// Default returns the built-in allowed values.
func Default() Catalog {
	return Catalog{
		Objectives: []string{
			"Monitoramento de pragas",
			"Colheita",
			"Plantio",
			"Pulverização",
			"Adubação",
			"Irrigação",
		},
		Properties: []string{
			"Fazenda Sul",
			"Fazenda Norte",
			"Fazenda Santa Rita",
			"Sítio Boa Vista",
		},
		Fields: []string{"01", "02", "03", "04", "05", "06", "07", "08", "09", "10"},
	}
}

// Load reads a YAML catalog file. An empty path returns Default.
func Load(path string) (Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("open catalog %q: %w", path, err)
	}
	defer f.Close()

	c, err := Decode(f)
	if err != nil {
		return Catalog{}, fmt.Errorf("parse catalog %q: %w", path, err)
	}
	return c, nil
}

// Decode parses catalog YAML. Lists left empty fall back to the defaults.
func Decode(r io.Reader) (Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return Catalog{}, fmt.Errorf("decode catalog yaml: %w", err)
	}

	def := Default()
	c.Objectives = orDefault(c.Objectives, def.Objectives)
	c.Properties = orDefault(c.Properties, def.Properties)
	c.Fields = orDefault(c.Fields, def.Fields)
	return c, nil
}

func orDefault(values []string, fallback []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// Examples returns at most n values joined for a spoken prompt.
func Examples(values []string, n int) string {
	if n <= 0 || n > len(values) {
		n = len(values)
	}
	switch n {
	case 0:
		return ""
	case 1:
		return values[0]
	default:
		return strings.Join(values[:n-1], ", ") + " ou " + values[n-1]
	}
}
