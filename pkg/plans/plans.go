// Package plans defines the records shared by every stage of the renewals
// pipeline: catalog line items and profiles, overlay follow-ups, and the
// reconciled master records built from both.
package plans

import (
	"github.com/shopspring/decimal"
)

// PlanID is the business key linking catalog rows and overlay records for one
// customer plan. Values produced by a Normalizer are canonical and safe to
// compare with ==.
type PlanID string

// String implements fmt.Stringer.
func (id PlanID) String() string { return string(id) }

// LineItem is one purchased service occurrence from the catalog export.
// Many line items share a PlanID.
type LineItem struct {
	PlanID   PlanID          `json:"plan_id" yaml:"plan_id"`
	Service  string          `json:"service" yaml:"service"`
	Quantity decimal.Decimal `json:"quantity" yaml:"quantity"`
}

// Profile is the one-row-per-plan view of the catalog.
type Profile struct {
	PlanID  PlanID `json:"plan_id" yaml:"plan_id"`
	Pet     string `json:"pet" yaml:"pet"`
	Owner   string `json:"owner" yaml:"owner"`
	Expires Date   `json:"expires" yaml:"expires"`
	Level   string `json:"level" yaml:"level"`
}

// FollowUp is the human follow-up state kept in the overlay. Absence of a
// record means nobody has followed up yet.
type FollowUp struct {
	PlanID    PlanID `json:"plan_id" yaml:"plan_id" db:"plan_id"`
	Contacted bool   `json:"contacted" yaml:"contacted" db:"contacted"`
	Scheduled bool   `json:"scheduled" yaml:"scheduled" db:"scheduled"`
	Notes     string `json:"notes" yaml:"notes" db:"notes"`
}

// MasterRecord is a Profile joined with its FollowUp. Plans without an
// overlay record carry zero follow-up fields and HasFollowUp=false.
type MasterRecord struct {
	Profile
	Contacted   bool   `json:"contacted" yaml:"contacted"`
	Scheduled   bool   `json:"scheduled" yaml:"scheduled"`
	Notes       string `json:"notes" yaml:"notes"`
	HasFollowUp bool   `json:"has_follow_up" yaml:"has_follow_up"`
}

// FollowUp returns the full follow-up record for m, suitable for an upsert.
func (m MasterRecord) FollowUp() FollowUp {
	return FollowUp{
		PlanID:    m.PlanID,
		Contacted: m.Contacted,
		Scheduled: m.Scheduled,
		Notes:     m.Notes,
	}
}

// Apply overwrites the follow-up fields of m with f.
func (m MasterRecord) Apply(f FollowUp) MasterRecord {
	m.Contacted = f.Contacted
	m.Scheduled = f.Scheduled
	m.Notes = f.Notes
	m.HasFollowUp = true
	return m
}

// IDs returns the plan identifiers of records, in order.
func IDs(records []FollowUp) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = string(r.PlanID)
	}
	return ids
}
