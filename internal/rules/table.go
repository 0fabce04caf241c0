// Package rules holds the static, versioned vendor rules table the policy
// evaluator decides against. The table ships embedded in the binary; there
// is no persistent store and no runtime mutation. A new rules version
// means a new build.
package rules

import (
	_ "embed"
	"encoding/json"
	"sort"
	"strings"

	"github.com/decidefyi/decide/internal/common/errors"
)

//go:embed rules.json
var embeddedRules []byte

// RefundPolicy describes a vendor's refund window in days since purchase.
// A zero window means purchases are not refundable. Plan and region
// overrides take precedence over the default window; region wins over
// plan when both match.
type RefundPolicy struct {
	WindowDays int            `json:"window_days"`
	Plans      map[string]int `json:"plans,omitempty"`
	Regions    map[string]int `json:"regions,omitempty"`
}

// CancellationPolicy describes whether cancelling incurs a penalty.
type CancellationPolicy struct {
	Penalty bool   `json:"penalty"`
	Note    string `json:"note,omitempty"`
}

// TrialPolicy describes free trial availability. Days may be zero for
// trials without a fixed length.
type TrialPolicy struct {
	Available bool `json:"available"`
	Days      int  `json:"days,omitempty"`
}

// Vendor is one vendor's complete rule set.
type Vendor struct {
	Key          string             `json:"key"`
	Name         string             `json:"name"`
	Aliases      []string           `json:"aliases,omitempty"`
	PolicyURL    string             `json:"policy_url,omitempty"`
	Refund       RefundPolicy       `json:"refund"`
	Cancellation CancellationPolicy `json:"cancellation"`
	Trial        TrialPolicy        `json:"trial"`
}

// RefundWindow resolves the refund window in days for a region and plan.
func (v *Vendor) RefundWindow(region, plan string) int {
	if days, ok := v.Refund.Regions[strings.ToUpper(region)]; ok {
		return days
	}
	if days, ok := v.Refund.Plans[Normalize(plan)]; ok {
		return days
	}
	return v.Refund.WindowDays
}

// Table is an immutable, versioned vendor lookup table.
type Table struct {
	version string
	updated string
	vendors map[string]*Vendor
	ordered []*Vendor
}

type tableDocument struct {
	Version string    `json:"version"`
	Updated string    `json:"updated"`
	Vendors []*Vendor `json:"vendors"`
}

// Load parses the embedded rules table.
func Load() (*Table, error) {
	return Parse(embeddedRules)
}

// Parse builds a table from raw JSON. Vendor keys and aliases are indexed
// in normalized form; a duplicate key or alias is a build-time data error.
func Parse(data []byte) (*Table, error) {
	var doc tableDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.ConfigError("malformed rules table").WithContext("cause", err.Error())
	}
	if doc.Version == "" {
		return nil, errors.ConfigError("rules table has no version")
	}

	vendors := make(map[string]*Vendor, len(doc.Vendors))
	for _, vendor := range doc.Vendors {
		key := Normalize(vendor.Key)
		if key == "" {
			return nil, errors.ConfigError("rules table contains a vendor without a key")
		}
		if _, exists := vendors[key]; exists {
			return nil, errors.ConfigError("duplicate vendor key in rules table").WithContext("key", key)
		}
		vendors[key] = vendor

		for _, alias := range vendor.Aliases {
			aliasKey := Normalize(alias)
			if existing, exists := vendors[aliasKey]; exists && existing != vendor {
				return nil, errors.ConfigError("conflicting vendor alias in rules table").WithContext("alias", aliasKey)
			}
			vendors[aliasKey] = vendor
		}
	}

	ordered := make([]*Vendor, len(doc.Vendors))
	copy(ordered, doc.Vendors)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Key < ordered[j].Key })

	return &Table{
		version: doc.Version,
		updated: doc.Updated,
		vendors: vendors,
		ordered: ordered,
	}, nil
}

// Lookup finds a vendor by key or alias. An unknown vendor is a normal
// miss, not an error.
func (t *Table) Lookup(vendor string) (*Vendor, bool) {
	v, ok := t.vendors[Normalize(vendor)]
	return v, ok
}

// All returns every vendor, ordered by key.
func (t *Table) All() []*Vendor {
	return t.ordered
}

// Version returns the rules table version string.
func (t *Table) Version() string {
	return t.version
}

// Updated returns the date the rules table was last revised.
func (t *Table) Updated() string {
	return t.updated
}

// Normalize maps a vendor key, alias, or plan name to its lookup form.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
