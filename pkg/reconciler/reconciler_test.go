package reconciler

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/renewals/pkg/logging"
	"github.com/agentstation/renewals/pkg/plans"
)

func profile(id string, expires plans.Date) plans.Profile {
	return plans.Profile{PlanID: plans.PlanID(id), Pet: "pet-" + id, Owner: "owner-" + id, Expires: expires}
}

func TestReconcileLeftJoin(t *testing.T) {
	d := plans.NewDate(2026, time.January, 10)
	profiles := []plans.Profile{profile("A1", d), profile("B2", d), profile("C3", d)}
	followUps := []plans.FollowUp{
		{PlanID: "b2", Contacted: true, Notes: "llamado"},
		{PlanID: "ZZ9", Scheduled: true},
	}

	res := Reconcile(profiles, followUps)

	require.Len(t, res.Records, len(profiles), "one record per profile")
	for i, p := range profiles {
		assert.Equal(t, p.PlanID, res.Records[i].PlanID, "profile order kept")
	}

	a := res.Records[0]
	assert.False(t, a.Contacted)
	assert.False(t, a.Scheduled)
	assert.Empty(t, a.Notes)
	assert.False(t, a.HasFollowUp)

	b := res.Records[1]
	assert.True(t, b.Contacted)
	assert.Equal(t, "llamado", b.Notes)
	assert.True(t, b.HasFollowUp)

	require.Len(t, res.Orphans, 1)
	assert.Equal(t, plans.PlanID("ZZ9"), res.Orphans[0].PlanID)

	s := res.Metadata.Stats
	assert.Equal(t, 3, s.Profiles)
	assert.Equal(t, 1, s.Matched)
	assert.Equal(t, 1, s.Orphans)
	assert.Contains(t, res.Summary(), "1 orphaned")
}

func TestReconcileKeepsProfileFields(t *testing.T) {
	profiles := []plans.Profile{
		{PlanID: "A1", Pet: "Firulais", Owner: "Ana", Expires: plans.NewDate(2026, time.March, 5), Level: "Oro"},
		{PlanID: "B2", Pet: "Michi", Owner: "Beto", Level: "Plata"},
	}
	res := Reconcile(profiles, []plans.FollowUp{{PlanID: "A1", Notes: "x"}})

	want := []plans.MasterRecord{
		{Profile: profiles[0], Notes: "x", HasFollowUp: true},
		{Profile: profiles[1]},
	}
	if diff := cmp.Diff(want, res.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileDuplicateLastWins(t *testing.T) {
	d := plans.NewDate(2026, time.January, 10)
	res := Reconcile(
		[]plans.Profile{profile("A1", d)},
		[]plans.FollowUp{
			{PlanID: "A1", Notes: "first"},
			{PlanID: " a1", Notes: "second", Scheduled: true},
		},
	)

	require.Len(t, res.Records, 1)
	assert.Equal(t, "second", res.Records[0].Notes)
	assert.True(t, res.Records[0].Scheduled)
	assert.Equal(t, 1, res.Metadata.Stats.Duplicates)
	assert.Empty(t, res.Orphans)
}

func TestReconcileEmptyOverlay(t *testing.T) {
	d := plans.NewDate(2026, time.January, 10)
	res := Reconcile([]plans.Profile{profile("A1", d)}, nil)

	require.Len(t, res.Records, 1)
	assert.False(t, res.Records[0].HasFollowUp)
	assert.Empty(t, res.Orphans)
}

func TestReconcilerWithNormalizer(t *testing.T) {
	r, err := New(
		WithNormalizer(plans.NewNormalizer(plans.NormalizeRules{SpaceAsDash: true})),
		WithLogger(logging.NewNopLogger()),
	)
	require.NoError(t, err)

	d := plans.NewDate(2026, time.January, 10)
	res := r.Reconcile(
		[]plans.Profile{profile("5501-V", d)},
		[]plans.FollowUp{{PlanID: "5501 v", Contacted: true}},
	)
	assert.True(t, res.Records[0].Contacted)

	rec, ok := res.Record("5501-V")
	require.True(t, ok)
	assert.True(t, rec.HasFollowUp)
	_, ok = res.Record("nope")
	assert.False(t, ok)
}

func TestWithLoggerRejectsNil(t *testing.T) {
	_, err := New(WithLogger(nil))
	assert.Error(t, err)
}
