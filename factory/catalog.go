package factory

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/chrono/chrono-engine/generic"
	"github.com/chrono/chrono-engine/pricing"
)

// =============================================================================
// CATALOG YAML SCHEMA
// =============================================================================

type CatalogYAML struct {
	Base     FeatureYAML   `yaml:"base"`
	Features []FeatureYAML `yaml:"features"`
}

type FeatureYAML struct {
	Key             string  `yaml:"key"`
	Name            string  `yaml:"name"`
	Description     string  `yaml:"description"`
	Price           float64 `yaml:"price"`
	PriceType       string  `yaml:"price_type"`
	Required        bool    `yaml:"required"`
	AlwaysAvailable bool    `yaml:"always_available"`
}

// =============================================================================
// CATALOG PARSING
// =============================================================================

// LoadCatalog reads a catalog YAML file. An empty path yields the default
// catalog.
func LoadCatalog(path string) (pricing.Catalog, error) {
	if path == "" {
		return pricing.DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return pricing.Catalog{}, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a catalog document. The base feature is
// always treated as required, always available and per-employee.
func ParseCatalog(data []byte) (pricing.Catalog, error) {
	var doc CatalogYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return pricing.Catalog{}, fmt.Errorf("%w: invalid catalog YAML: %v", generic.ErrInvalidInput, err)
	}

	base, err := toFeature(doc.Base, "base")
	if err != nil {
		return pricing.Catalog{}, err
	}
	if base.PriceType != pricing.PerEmployee {
		return pricing.Catalog{}, &generic.FieldError{Field: "base.price_type", Message: "base feature must be priced per employee"}
	}
	base.Required = true
	base.AlwaysAvailable = true

	catalog := pricing.Catalog{Base: base}
	seen := map[string]bool{base.Key: true}
	for i, fy := range doc.Features {
		f, err := toFeature(fy, fmt.Sprintf("features[%d]", i))
		if err != nil {
			return pricing.Catalog{}, err
		}
		if seen[f.Key] {
			return pricing.Catalog{}, &generic.FieldError{Field: fmt.Sprintf("features[%d].key", i), Message: fmt.Sprintf("duplicate key %q", f.Key)}
		}
		if f.Required {
			return pricing.Catalog{}, &generic.FieldError{Field: fmt.Sprintf("features[%d].required", i), Message: "only the base feature can be required"}
		}
		seen[f.Key] = true
		catalog.Features = append(catalog.Features, f)
	}
	return catalog, nil
}

func toFeature(fy FeatureYAML, field string) (pricing.FeatureDescriptor, error) {
	if fy.Key == "" {
		return pricing.FeatureDescriptor{}, &generic.FieldError{Field: field + ".key", Message: "required"}
	}
	if fy.Price < 0 {
		return pricing.FeatureDescriptor{}, &generic.FieldError{Field: field + ".price", Message: "must not be negative"}
	}
	pt := pricing.PriceType(fy.PriceType)
	if pt == "" {
		pt = pricing.PerEmployee
	}
	if pt != pricing.PerEmployee && pt != pricing.Flat {
		return pricing.FeatureDescriptor{}, &generic.FieldError{Field: field + ".price_type", Message: fmt.Sprintf("unknown price type %q", fy.PriceType)}
	}
	name := fy.Name
	if name == "" {
		name = fy.Key
	}
	return pricing.FeatureDescriptor{
		Key:             fy.Key,
		Name:            name,
		Description:     fy.Description,
		Price:           decimal.NewFromFloat(fy.Price),
		PriceType:       pt,
		Required:        fy.Required,
		AlwaysAvailable: fy.AlwaysAvailable,
	}, nil
}
