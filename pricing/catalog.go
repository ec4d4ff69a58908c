/*
catalog.go - Feature catalog and visibility rules

PURPOSE:
  The registration funnel offers the base time-tracking module plus a set
  of togglable add-ons. The catalog is static data; companies may be
  granted extra add-ons through an external "enabled features" list.

VISIBILITY:
  A feature is selectable when it is AlwaysAvailable or its key appears in
  the company's enabled list. Keys in that list that the catalog does not
  know are dropped before the list is trusted.

SEE ALSO:
  - engine.go: Price computation over a selection
  - factory/catalog.go: Loading a catalog from YAML
*/
package pricing

import (
	"github.com/shopspring/decimal"
)

// PriceType says whether a price is multiplied by the employee count.
type PriceType string

const (
	PerEmployee PriceType = "perEmployee"
	Flat        PriceType = "flat"
)

// FeatureDescriptor is one catalog entry. Prices are monthly, in EUR.
type FeatureDescriptor struct {
	Key             string
	Name            string
	Description     string
	Price           decimal.Decimal
	PriceType       PriceType
	Required        bool
	AlwaysAvailable bool
}

// Catalog is the distinguished base feature plus the ordered add-ons.
type Catalog struct {
	Base     FeatureDescriptor
	Features []FeatureDescriptor
}

// Lookup finds an add-on by key. The base feature is not an add-on.
func (c Catalog) Lookup(key string) (FeatureDescriptor, bool) {
	for _, f := range c.Features {
		if f.Key == key {
			return f, true
		}
	}
	return FeatureDescriptor{}, false
}

// FilterKnown drops keys the catalog does not contain, keeping order and
// removing duplicates.
func (c Catalog) FilterKnown(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	var out []string
	for _, k := range keys {
		if seen[k] {
			continue
		}
		if _, ok := c.Lookup(k); ok {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// Selectable returns the add-ons a company may toggle, in catalog order.
func (c Catalog) Selectable(enabledKeys []string) []FeatureDescriptor {
	enabled := make(map[string]bool)
	for _, k := range c.FilterKnown(enabledKeys) {
		enabled[k] = true
	}
	var out []FeatureDescriptor
	for _, f := range c.Features {
		if f.AlwaysAvailable || enabled[f.Key] {
			out = append(out, f)
		}
	}
	return out
}

// =============================================================================
// DEFAULT CATALOG
// =============================================================================

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// DefaultCatalog is the catalog shipped with the registration funnel.
func DefaultCatalog() Catalog {
	return Catalog{
		Base: FeatureDescriptor{
			Key:             "timeTracking",
			Name:            "Time tracking",
			Description:     "Punch clock, dashboards and work-time balance",
			Price:           price("5"),
			PriceType:       PerEmployee,
			Required:        true,
			AlwaysAvailable: true,
		},
		Features: []FeatureDescriptor{
			{Key: "vacation", Name: "Vacation management", Description: "Vacation requests and approvals",
				Price: price("1"), PriceType: PerEmployee, AlwaysAvailable: true},
			{Key: "corrections", Name: "Time corrections", Description: "Correction requests for missed punches",
				Price: price("0.5"), PriceType: PerEmployee, AlwaysAvailable: true},
			{Key: "pdfReports", Name: "PDF reports", Description: "Monthly PDF exports per employee",
				Price: price("9.9"), PriceType: Flat, AlwaysAvailable: true},
			{Key: "nfc", Name: "NFC terminal", Description: "Punch with NFC cards at a terminal",
				Price: price("1.5"), PriceType: PerEmployee},
			{Key: "projects", Name: "Projects", Description: "Book working time on projects",
				Price: price("1"), PriceType: PerEmployee},
			{Key: "customers", Name: "Customers", Description: "Customer administration for projects",
				Price: price("14.9"), PriceType: Flat},
			{Key: "payroll", Name: "Payroll export", Description: "Export hours for payroll",
				Price: price("2"), PriceType: PerEmployee},
		},
	}
}
