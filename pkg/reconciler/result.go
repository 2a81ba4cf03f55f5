package reconciler

import (
	"fmt"
	"time"

	"github.com/agentstation/renewals/pkg/plans"
)

// Result represents the outcome of a reconciliation.
type Result struct {
	// Records holds one master record per profile, in profile order.
	Records []plans.MasterRecord

	// Orphans holds follow-ups whose plan is not in the catalog.
	Orphans []plans.FollowUp

	// Metadata
	Metadata ResultMetadata
}

// ResultMetadata contains metadata about the reconciliation process.
type ResultMetadata struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Stats     ResultStatistics
}

// ResultStatistics contains counts gathered during the join.
type ResultStatistics struct {
	Profiles   int `json:"profiles"`
	FollowUps  int `json:"follow_ups"`
	Matched    int `json:"matched"`
	Orphans    int `json:"orphans"`
	Duplicates int `json:"duplicates"`
}

// Record returns the master record for id, which must be normalized.
func (r *Result) Record(id plans.PlanID) (plans.MasterRecord, bool) {
	for _, rec := range r.Records {
		if rec.PlanID == id {
			return rec, true
		}
	}
	return plans.MasterRecord{}, false
}

// Summary returns a one-line description of the join.
func (r *Result) Summary() string {
	s := r.Metadata.Stats
	return fmt.Sprintf("Reconciled %d plans with %d follow-ups: %d matched, %d orphaned, %d duplicates",
		s.Profiles, s.FollowUps, s.Matched, s.Orphans, s.Duplicates)
}
