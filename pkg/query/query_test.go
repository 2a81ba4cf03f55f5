package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/plans"
	"github.com/agentstation/renewals/pkg/reconciler"
)

func date(m time.Month, d int) plans.Date { return plans.NewDate(2026, m, d) }

func fixture() ([]plans.MasterRecord, []plans.LineItem) {
	profiles := []plans.Profile{
		{PlanID: "A1", Pet: "Firulais", Expires: date(time.January, 10)},
		{PlanID: "A2", Pet: "Michi", Expires: date(time.February, 15)},
		{PlanID: "A3", Pet: "Rex", Expires: date(time.January, 31)},
		{PlanID: "A4", Pet: "Luna"},
	}
	items := []plans.LineItem{
		{PlanID: "A1", Service: "Vacuna"},
		{PlanID: "A1", Service: "Baño"},
		{PlanID: "A2", Service: "Baño"},
		{PlanID: "A3", Service: "Desparasitación"},
	}
	res := reconciler.Reconcile(profiles, []plans.FollowUp{{PlanID: "a1", Contacted: true}})
	return res.Records, items
}

func ids(records []plans.MasterRecord) []plans.PlanID {
	out := make([]plans.PlanID, len(records))
	for i, r := range records {
		out[i] = r.PlanID
	}
	return out
}

func TestScenario(t *testing.T) {
	master, items := fixture()

	rec := map[plans.PlanID]plans.MasterRecord{}
	for _, r := range master {
		rec[r.PlanID] = r
	}
	assert.True(t, rec["A1"].Contacted)
	assert.False(t, rec["A2"].Contacted)

	r, err := NewDateRange(date(time.January, 1), date(time.January, 31))
	require.NoError(t, err)

	got := Apply(master, items, r, nil)
	assert.Equal(t, []plans.PlanID{"A1", "A3"}, ids(got), "inclusive upper bound")
}

func TestDateRange(t *testing.T) {
	t.Run("reversed", func(t *testing.T) {
		_, err := NewDateRange(date(time.March, 1), date(time.January, 1))
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("single day", func(t *testing.T) {
		r, err := NewDateRange(date(time.January, 10), date(time.January, 10))
		require.NoError(t, err)
		assert.True(t, r.Contains(date(time.January, 10)))
		assert.False(t, r.Contains(date(time.January, 11)))
		assert.False(t, r.Contains(plans.Date{}), "undated never contained")
	})

	t.Run("unset bound", func(t *testing.T) {
		_, err := NewDateRange(plans.Date{}, date(time.January, 10))
		assert.Error(t, err)
	})

	t.Run("default window", func(t *testing.T) {
		r := DefaultRange(date(time.January, 1))
		assert.Equal(t, date(time.January, 31), r.To)
		assert.NoError(t, r.Validate())
	})
}

func TestServices(t *testing.T) {
	master, items := fixture()

	t.Run("any match", func(t *testing.T) {
		got := Apply(master, items, nil, []string{"Baño", "Desparasitación"})
		assert.Equal(t, []plans.PlanID{"A1", "A2", "A3"}, ids(got))
	})

	t.Run("exact match only", func(t *testing.T) {
		assert.Empty(t, Apply(master, items, nil, []string{"baño"}))
	})

	t.Run("empty selection is no filter", func(t *testing.T) {
		r := &DateRange{From: date(time.January, 1), To: date(time.December, 31)}
		assert.Equal(t, Apply(master, items, r, nil), Apply(master, items, r, []string{}))
		assert.Len(t, Apply(master, items, nil, []string{}), len(master))
	})

	t.Run("combined with range", func(t *testing.T) {
		r := &DateRange{From: date(time.February, 1), To: date(time.February, 28)}
		got := Apply(master, items, r, []string{"Baño"})
		assert.Equal(t, []plans.PlanID{"A2"}, ids(got))
	})
}

func TestFilterID(t *testing.T) {
	master, items := fixture()

	got := Filter{ID: " a2 "}.Apply(master, items)
	assert.Equal(t, []plans.PlanID{"A2"}, ids(got))

	assert.Empty(t, Filter{ID: "A2", Services: []string{"Vacuna"}}.Apply(master, items))

	n := plans.NewNormalizer(plans.NormalizeRules{SpaceAsDash: true})
	dashed := []plans.MasterRecord{{Profile: plans.Profile{PlanID: "5501-V"}}}
	assert.Len(t, Filter{ID: "5501 v", Normalizer: &n}.Apply(dashed, nil), 1)
}

func TestMonotonicity(t *testing.T) {
	master, items := fixture()
	filters := []Filter{
		{},
		{Range: &DateRange{From: date(time.January, 1), To: date(time.January, 15)}},
		{Services: []string{"Vacuna"}},
		{Services: []string{"nothing"}},
		{ID: "A3"},
		{ID: "missing"},
	}

	inMaster := map[plans.PlanID]bool{}
	for _, r := range master {
		inMaster[r.PlanID] = true
	}
	for _, f := range filters {
		got := f.Apply(master, items)
		assert.LessOrEqual(t, len(got), len(master))
		for _, r := range got {
			assert.True(t, inMaster[r.PlanID])
		}
	}
	assert.True(t, Filter{}.IsZero())
	assert.Len(t, Filter{}.Apply(master, items), len(master))
}
