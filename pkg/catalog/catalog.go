// Package catalog loads the periodic plan export. The export is immutable
// input: one row per purchased service, with the plan's profile columns
// repeated on every row.
package catalog

import (
	"slices"
	"time"

	"github.com/agentstation/renewals/pkg/plans"
)

// Catalog is a loaded export: the deduplicated profiles and every line item.
type Catalog struct {
	// Profiles holds the first row per normalized plan id, in source order.
	Profiles []plans.Profile
	// Items holds every row, in source order.
	Items []plans.LineItem
	// Source is the path the catalog was read from.
	Source string
	// LoadedAt is when the file was read.
	LoadedAt time.Time

	index map[plans.PlanID]int
}

// Row is one data row of the export after column renaming, before parsing.
type Row struct {
	PlanID   string
	Pet      string
	Owner    string
	Service  string
	Quantity string
	Level    string
	Expires  string
}

// Profile returns the profile for id, which must already be normalized.
func (c *Catalog) Profile(id plans.PlanID) (plans.Profile, bool) {
	i, ok := c.index[id]
	if !ok {
		return plans.Profile{}, false
	}
	return c.Profiles[i], true
}

// ItemsFor returns the line items of plan id in source order.
func (c *Catalog) ItemsFor(id plans.PlanID) []plans.LineItem {
	var out []plans.LineItem
	for _, it := range c.Items {
		if it.PlanID == id {
			out = append(out, it)
		}
	}
	return out
}

// Services returns the distinct service descriptions, sorted.
func (c *Catalog) Services() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, it := range c.Items {
		if _, ok := seen[it.Service]; ok || it.Service == "" {
			continue
		}
		seen[it.Service] = struct{}{}
		out = append(out, it.Service)
	}
	slices.Sort(out)
	return out
}

// PlansWithServices returns the ids of plans having at least one line item
// whose description exactly matches one of services.
func (c *Catalog) PlansWithServices(services []string) map[plans.PlanID]struct{} {
	return PlansWithServices(c.Items, services)
}

// PlansWithServices returns the ids of items matching any of services exactly.
func PlansWithServices(items []plans.LineItem, services []string) map[plans.PlanID]struct{} {
	want := make(map[string]struct{}, len(services))
	for _, s := range services {
		want[s] = struct{}{}
	}
	ids := make(map[plans.PlanID]struct{})
	for _, it := range items {
		if _, ok := want[it.Service]; ok {
			ids[it.PlanID] = struct{}{}
		}
	}
	return ids
}

// New builds a Catalog from already-parsed profiles-with-items. Profiles are
// deduplicated keeping the first occurrence per id.
func New(source string, profiles []plans.Profile, items []plans.LineItem) *Catalog {
	c := &Catalog{
		Source:   source,
		LoadedAt: time.Now(),
		Items:    items,
		index:    make(map[plans.PlanID]int),
	}
	for _, p := range profiles {
		if _, dup := c.index[p.PlanID]; dup {
			continue
		}
		c.index[p.PlanID] = len(c.Profiles)
		c.Profiles = append(c.Profiles, p)
	}
	return c
}
