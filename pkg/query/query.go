// Package query narrows the reconciled master view by expiration date, by
// purchased service and by plan identifier.
package query

import (
	"slices"

	"github.com/agentstation/renewals/pkg/constants"
	"github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/plans"
)

// DateRange is an inclusive range of expiration dates.
type DateRange struct {
	From plans.Date `json:"from" yaml:"from"`
	To   plans.Date `json:"to" yaml:"to"`
}

// NewDateRange returns [from, to], or a ValidationError when from is after to.
func NewDateRange(from, to plans.Date) (*DateRange, error) {
	r := &DateRange{From: from, To: to}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// DefaultRange is the window shown when no range is chosen: today through
// the next 30 days.
func DefaultRange(today plans.Date) *DateRange {
	return &DateRange{From: today, To: today.AddDays(int(constants.DefaultQueryWindow.Hours() / 24))}
}

// Validate reports a range whose bounds are reversed or unset.
func (r *DateRange) Validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return errors.NewValidationError("range", r, "both bounds are required")
	}
	if r.From.After(r.To) {
		return errors.NewValidationError("range", r, "from "+r.From.String()+" is after to "+r.To.String())
	}
	return nil
}

// Contains reports whether d lies in the range. Undated records are never
// contained.
func (r *DateRange) Contains(d plans.Date) bool {
	if d.IsZero() {
		return false
	}
	return !d.Before(r.From) && !d.After(r.To)
}

// Filter selects master records. The zero Filter selects everything.
type Filter struct {
	// Range limits expiration dates; nil means any date.
	Range *DateRange `json:"range,omitempty" yaml:"range,omitempty"`
	// Services keeps plans with at least one matching line item. Empty
	// means no service filter.
	Services []string `json:"services,omitempty" yaml:"services,omitempty"`
	// ID keeps the single plan with this identifier, normalized before use.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`
	// Normalizer applied to ID; the default rule set when unset.
	Normalizer *plans.Normalizer `json:"-" yaml:"-"`
}

// IsZero reports whether the filter applies no condition.
func (f Filter) IsZero() bool {
	return f.Range == nil && len(f.Services) == 0 && f.ID == ""
}

// Validate checks the range, if any.
func (f Filter) Validate() error {
	if f.Range != nil {
		return f.Range.Validate()
	}
	return nil
}

// Apply returns the records of master that pass every condition, in their
// original order. items are the catalog line items used for service matching.
func (f Filter) Apply(master []plans.MasterRecord, items []plans.LineItem) []plans.MasterRecord {
	var withService map[plans.PlanID]struct{}
	if len(f.Services) > 0 {
		withService = plansWithServices(items, f.Services)
	}

	var id plans.PlanID
	if f.ID != "" {
		n := plans.DefaultNormalizer
		if f.Normalizer != nil {
			n = *f.Normalizer
		}
		id = n.Normalize(f.ID)
	}

	out := make([]plans.MasterRecord, 0, len(master))
	for _, rec := range master {
		if f.Range != nil && !f.Range.Contains(rec.Expires) {
			continue
		}
		if withService != nil {
			if _, ok := withService[rec.PlanID]; !ok {
				continue
			}
		}
		if id != "" && rec.PlanID != id {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Apply is shorthand for Filter{Range: r, Services: services}.Apply.
func Apply(master []plans.MasterRecord, items []plans.LineItem, r *DateRange, services []string) []plans.MasterRecord {
	return Filter{Range: r, Services: services}.Apply(master, items)
}

func plansWithServices(items []plans.LineItem, services []string) map[plans.PlanID]struct{} {
	ids := make(map[plans.PlanID]struct{})
	for _, it := range items {
		if slices.Contains(services, it.Service) {
			ids[it.PlanID] = struct{}{}
		}
	}
	return ids
}
