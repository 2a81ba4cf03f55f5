package renewals

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/renewals/pkg/catalog"
	pkgerrors "github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/logging"
	"github.com/agentstation/renewals/pkg/overlay"
	"github.com/agentstation/renewals/pkg/plans"
	"github.com/agentstation/renewals/pkg/query"
)

const exportCSV = `No de PB,Mascota,Propietario,Descripción,Cantidad,Nivel,Fecha Fin
A1,Firulais,Ana,Vacuna,1,Oro,2026-01-10
A1,Firulais,Ana,Baño,1,Oro,2026-01-10
A2,Michi,Beto,Baño,2,Plata,2026-02-15
`

func writeExport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(exportCSV), 0o644))
	return path
}

// flakyStore fails reads or writes on demand.
type flakyStore struct {
	*overlay.MemoryStore
	failRead  atomic.Bool
	failWrite atomic.Bool
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: overlay.NewMemoryStore(overlay.WithLogger(logging.NewNopLogger()))}
}

func (f *flakyStore) ReadAll(ctx context.Context) ([]plans.FollowUp, error) {
	if f.failRead.Load() {
		return nil, errors.New("connection refused")
	}
	return f.MemoryStore.ReadAll(ctx)
}

func (f *flakyStore) UpsertBatch(ctx context.Context, records []plans.FollowUp) error {
	if f.failWrite.Load() {
		return errors.New("quota exceeded")
	}
	return f.MemoryStore.UpsertBatch(ctx, records)
}

// countingSource counts catalog reads.
type countingSource struct {
	catalog.Source
	loads atomic.Int32
}

func (c *countingSource) Load(ctx context.Context, path string) (*catalog.Catalog, error) {
	c.loads.Add(1)
	return c.Source.Load(ctx, path)
}

func newSession(t *testing.T, store overlay.Store, opts ...Option) (*session, *countingSource) {
	t.Helper()
	src := &countingSource{Source: catalog.NewLoader(catalog.WithLogger(logging.NewNopLogger()))}
	base := []Option{
		WithCatalogPath(writeExport(t)),
		WithOverlay(store),
		WithCatalogSource(src),
		WithCacheTTL(time.Minute),
		WithLogger(logging.NewNopLogger()),
	}
	s, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return s.(*session), src
}

func TestNewRequiresPathAndStore(t *testing.T) {
	_, err := New(WithOverlay(overlay.NewMemoryStore()))
	var ce *pkgerrors.ConfigError
	require.True(t, errors.As(err, &ce))

	_, err = New(WithCatalogPath("export.csv"))
	require.True(t, errors.As(err, &ce))

	_, err = New(WithCatalogPath("x.csv"), WithOverlay(nil))
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestScenario(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	require.NoError(t, store.UpsertBatch(ctx, []plans.FollowUp{{PlanID: "a1", Contacted: true}}))

	s, _ := newSession(t, store)

	view, err := s.Master(ctx)
	require.NoError(t, err)
	require.Len(t, view.Records, 2)
	assert.True(t, view.Records[0].Contacted)
	assert.False(t, view.Records[1].Contacted)
	assert.NoError(t, view.OverlayErr)

	r, err := query.NewDateRange(plans.NewDate(2026, time.January, 1), plans.NewDate(2026, time.January, 31))
	require.NoError(t, err)
	got, err := s.Query(ctx, query.Filter{Range: r})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, plans.PlanID("A1"), got[0].PlanID)

	got, err = s.Query(ctx, query.Filter{Services: []string{"Baño"}, ID: " a2"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = s.Query(ctx, query.Filter{Range: &query.DateRange{From: r.To, To: r.From}})
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t, newFlakyStore())

	plan, err := s.Lookup(ctx, "  a1 ")
	require.NoError(t, err)
	assert.Equal(t, "Firulais", plan.Record.Pet)
	assert.Len(t, plan.Items, 2)

	_, err = s.Lookup(ctx, "ZZ")
	assert.True(t, pkgerrors.IsLookupMiss(err))

	_, err = s.Lookup(ctx, "   ")
	assert.True(t, pkgerrors.IsLookupMiss(err))
}

func TestServices(t *testing.T) {
	s, _ := newSession(t, newFlakyStore())
	services, err := s.Services(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Baño", "Vacuna"}, services)
}

func TestOverlayUnavailableDegrades(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	require.NoError(t, store.UpsertBatch(ctx, []plans.FollowUp{{PlanID: "A1", Contacted: true}}))
	store.failRead.Store(true)

	s, _ := newSession(t, store)
	var notified error
	s.OnOverlayUnavailable(func(err error) { notified = err })

	view, err := s.Master(ctx)
	require.NoError(t, err)
	require.Len(t, view.Records, 2)
	assert.False(t, view.Records[0].Contacted)
	assert.True(t, pkgerrors.IsOverlayUnavailable(view.OverlayErr))
	assert.Equal(t, view.OverlayErr, notified)
}

func TestCatalogUnavailableIsFatal(t *testing.T) {
	s, err := New(
		WithCatalogPath(filepath.Join(t.TempDir(), "missing.xlsx")),
		WithOverlay(overlay.NewMemoryStore()),
		WithLogger(logging.NewNopLogger()),
	)
	require.NoError(t, err)

	var loadErr error
	s.OnCatalogLoaded(func(_ string, err error) { loadErr = err })

	_, err = s.Master(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsSourceUnavailable(err))
	assert.True(t, pkgerrors.IsSourceUnavailable(loadErr))
}

func TestSaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	s, src := newSession(t, store)

	_, err := s.Master(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, src.loads.Load())

	var saved []plans.FollowUp
	s.OnSaved(func(records []plans.FollowUp) { saved = records })

	require.NoError(t, s.Edit(plans.FollowUp{PlanID: "a2", Scheduled: true, Notes: "viernes"}))
	assert.Equal(t, StateEditing, s.State())
	require.NoError(t, s.Edit(plans.FollowUp{PlanID: "A2", Scheduled: true, Contacted: true, Notes: "viernes 10am"}))
	require.Len(t, s.Pending(), 1, "later edit replaces earlier")

	require.NoError(t, s.Save(ctx))
	assert.Equal(t, StateViewing, s.State())
	assert.Empty(t, s.Pending())
	require.Len(t, saved, 1)

	view, err := s.Master(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.loads.Load(), "successful save drops the catalog cache")
	rec := view.Records[1]
	assert.Equal(t, plans.PlanID("A2"), rec.PlanID)
	assert.True(t, rec.Contacted)
	assert.True(t, rec.Scheduled)
	assert.Equal(t, "viernes 10am", rec.Notes)
}

func TestSaveFailedKeepsEdits(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	s, src := newSession(t, store)

	_, err := s.Master(ctx)
	require.NoError(t, err)

	var failed error
	s.OnSaveFailed(func(_ []plans.FollowUp, err error) { failed = err })

	require.NoError(t, s.Edit(plans.FollowUp{PlanID: "A1", Contacted: true}))
	store.failWrite.Store(true)

	err = s.Save(ctx)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsPersistError(err))
	assert.Equal(t, err, failed)
	assert.Equal(t, StateSaveFailed, s.State())
	assert.Len(t, s.Pending(), 1, "edits retained")

	_, err = s.Master(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, src.loads.Load(), "failed save leaves the cache alone")

	store.failWrite.Store(false)
	require.NoError(t, s.Save(ctx))
	assert.Equal(t, StateViewing, s.State())

	view, err := s.Master(ctx)
	require.NoError(t, err)
	assert.True(t, view.Records[0].Contacted)
}

func TestEditValidation(t *testing.T) {
	s, _ := newSession(t, newFlakyStore())
	assert.True(t, pkgerrors.IsValidationError(s.Edit(plans.FollowUp{PlanID: "  "})))
	assert.Equal(t, StateViewing, s.State())

	require.NoError(t, s.Edit(plans.FollowUp{PlanID: "A1"}))
	s.Discard()
	assert.Empty(t, s.Pending())
	assert.Equal(t, StateViewing, s.State())

	require.NoError(t, s.Save(context.Background()), "empty save is a no-op")
}

func TestOrphansPreserved(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	require.NoError(t, store.UpsertBatch(ctx, []plans.FollowUp{{PlanID: "GONE", Notes: "old plan"}}))

	s, _ := newSession(t, store)
	require.NoError(t, s.SaveRecords(ctx, []plans.FollowUp{{PlanID: "A1", Contacted: true}}))

	view, err := s.Master(ctx)
	require.NoError(t, err)
	require.Len(t, view.Orphans, 1)
	assert.Equal(t, plans.PlanID("GONE"), view.Orphans[0].PlanID)
	assert.Equal(t, 2, store.Len())
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	s, src := newSession(t, newFlakyStore())

	refreshed := false
	s.OnRefreshed(func() { refreshed = true })

	_, _ = s.Services(ctx)
	_, _ = s.Services(ctx)
	assert.EqualValues(t, 1, src.loads.Load())

	s.Refresh()
	assert.True(t, refreshed)
	_, _ = s.Services(ctx)
	assert.EqualValues(t, 2, src.loads.Load())
}

func TestMasterItemsMatchRecords(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t, newFlakyStore())

	planSet := func(v *View) (records, items []plans.PlanID) {
		for _, r := range v.Records {
			records = append(records, r.PlanID)
		}
		for _, it := range v.Items {
			if !slices.Contains(items, it.PlanID) {
				items = append(items, it.PlanID)
			}
		}
		return records, items
	}

	view, err := s.Master(ctx)
	require.NoError(t, err)
	records, items := planSet(view)
	assert.Equal(t, []plans.PlanID{"A1", "A2"}, records)
	assert.Equal(t, records, items)
	assert.Len(t, view.Items, 3)

	next := "No de PB,Mascota,Propietario,Descripción,Cantidad,Nivel,Fecha Fin\nB7,Toby,Eva,Consulta,1,Oro,2026-01-20\n"
	require.NoError(t, os.WriteFile(s.path, []byte(next), 0o644))
	s.Refresh()

	view, err = s.Master(ctx)
	require.NoError(t, err)
	records, items = planSet(view)
	assert.Equal(t, []plans.PlanID{"B7"}, records)
	assert.Equal(t, records, items)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "viewing", StateViewing.String())
	assert.Equal(t, "save_failed", StateSaveFailed.String())
	assert.Equal(t, "state(9)", State(9).String())
}
