// Package reconciler joins catalog profiles with overlay follow-ups into
// master records.
//
// The join is a left join on normalized plan identifier: every profile
// yields exactly one record, plans nobody followed up on get zero follow-up
// fields, and follow-ups without a profile are reported as orphans but never
// dropped from the overlay.
package reconciler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/renewals/pkg/plans"
)

// Reconciler merges profiles with follow-ups.
type Reconciler interface {
	// Reconcile returns one master record per profile, in profile order.
	Reconcile(profiles []plans.Profile, followUps []plans.FollowUp) *Result
}

// reconciler is the default implementation of Reconciler.
type reconciler struct {
	normalizer plans.Normalizer
	logger     *zerolog.Logger
}

// New creates a new Reconciler with options.
func New(opts ...Option) (Reconciler, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &reconciler{
		normalizer: options.normalizer,
		logger:     options.logger,
	}, nil
}

// Reconcile joins with the default normalizer.
func Reconcile(profiles []plans.Profile, followUps []plans.FollowUp) *Result {
	r := &reconciler{normalizer: plans.DefaultNormalizer, logger: defaultOptions().logger}
	return r.Reconcile(profiles, followUps)
}

// Reconcile implements Reconciler.
func (r *reconciler) Reconcile(profiles []plans.Profile, followUps []plans.FollowUp) *Result {
	start := time.Now()
	result := &Result{Metadata: ResultMetadata{StartTime: start}}

	// Index follow-ups; a later duplicate replaces an earlier one.
	index := make(map[plans.PlanID]plans.FollowUp, len(followUps))
	var seenOrder []plans.PlanID
	for _, f := range followUps {
		f.PlanID = r.normalizer.Normalize(string(f.PlanID))
		if _, dup := index[f.PlanID]; dup {
			result.Metadata.Stats.Duplicates++
		} else {
			seenOrder = append(seenOrder, f.PlanID)
		}
		index[f.PlanID] = f
	}

	matched := make(map[plans.PlanID]struct{}, len(index))
	result.Records = make([]plans.MasterRecord, 0, len(profiles))
	for _, p := range profiles {
		p.PlanID = r.normalizer.Normalize(string(p.PlanID))
		rec := plans.MasterRecord{Profile: p}
		if f, ok := index[p.PlanID]; ok {
			rec = rec.Apply(f)
			matched[p.PlanID] = struct{}{}
		}
		result.Records = append(result.Records, rec)
	}

	for _, id := range seenOrder {
		if _, ok := matched[id]; !ok {
			result.Orphans = append(result.Orphans, index[id])
		}
	}

	result.Metadata.EndTime = time.Now()
	result.Metadata.Duration = result.Metadata.EndTime.Sub(start)
	result.Metadata.Stats.Profiles = len(profiles)
	result.Metadata.Stats.FollowUps = len(followUps)
	result.Metadata.Stats.Matched = len(matched)
	result.Metadata.Stats.Orphans = len(result.Orphans)

	if len(result.Orphans) > 0 {
		r.logger.Debug().Int("orphans", len(result.Orphans)).Msg("Follow-ups without a catalog plan")
	}
	return result
}
