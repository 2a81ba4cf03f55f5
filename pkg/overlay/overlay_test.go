package overlay

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/logging"
	"github.com/agentstation/renewals/pkg/plans"
)

func quiet() Option { return WithLogger(logging.NewNopLogger()) }

// backends returns a fresh instance of every embeddable backend.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	sqlite, err := OpenSQLite(context.Background(), filepath.Join(dir, "overlay.db"), quiet())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		DriverMemory: NewMemoryStore(quiet()),
		DriverSQLite: sqlite,
		DriverFile:   NewFileStore(filepath.Join(dir, "follow_ups.yaml"), quiet()),
	}
}

func byID(records []plans.FollowUp) map[plans.PlanID]plans.FollowUp {
	out := make(map[plans.PlanID]plans.FollowUp, len(records))
	for _, r := range records {
		out[r.PlanID] = r
	}
	return out
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, name, store.Backend())

			got, err := store.ReadAll(ctx)
			require.NoError(t, err)
			assert.Empty(t, got, "fresh store reads empty")

			require.NoError(t, store.UpsertBatch(ctx, []plans.FollowUp{
				{PlanID: "a1", Contacted: true, Notes: "called"},
				{PlanID: "ORPHAN", Scheduled: true},
			}))

			require.NoError(t, store.UpsertBatch(ctx, []plans.FollowUp{
				{PlanID: " A1 ", Contacted: true, Scheduled: true, Notes: "booked"},
				{PlanID: "B2", Notes: "first"},
				{PlanID: "b2", Notes: "second"},
			}))

			got, err = store.ReadAll(ctx)
			require.NoError(t, err)
			require.Len(t, got, 3)

			m := byID(got)
			assert.Equal(t, plans.FollowUp{PlanID: "A1", Contacted: true, Scheduled: true, Notes: "booked"}, m["A1"])
			assert.Equal(t, "second", m["B2"].Notes, "last occurrence in a batch wins")
			assert.True(t, m["ORPHAN"].Scheduled, "records outside the batch untouched")
		})
	}
}

func TestSQLiteOtherSpellings(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, time.January, 5, 12, 0, 0, 0, time.UTC)
	store, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "overlay.db"), quiet(),
		WithClock(func() time.Time { return clock }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	insertRaw := func(id string, contacted bool, notes string, at time.Time) {
		t.Helper()
		_, err := store.db.ExecContext(ctx,
			`INSERT INTO follow_ups (plan_id, contacted, scheduled, notes, updated_at) VALUES (?, ?, ?, ?, ?)`,
			id, contacted, false, notes, at)
		require.NoError(t, err)
	}
	readOne := func() plans.FollowUp {
		t.Helper()
		got, err := store.ReadAll(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		return got[0]
	}

	require.NoError(t, store.UpsertBatch(ctx, []plans.FollowUp{{PlanID: "A1", Notes: "first"}}))

	// A row written by another tool later than the app's own.
	insertRaw("a1", true, "old", clock.Add(time.Hour))
	assert.Equal(t, plans.FollowUp{PlanID: "A1", Contacted: true, Notes: "old"}, readOne(),
		"newest row wins on read")

	clock = clock.Add(time.Minute)
	require.NoError(t, store.UpsertBatch(ctx, []plans.FollowUp{{PlanID: "a1", Notes: "new"}}))
	assert.Equal(t, plans.FollowUp{PlanID: "A1", Notes: "new"}, readOne(), "save reads back as written")

	var stored []string
	require.NoError(t, store.db.SelectContext(ctx, &stored, `SELECT plan_id FROM follow_ups ORDER BY plan_id`))
	assert.Equal(t, []string{"A1", "a1"}, stored, "no stored row is deleted")
}

func TestStoreRejectsEmptyID(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := store.UpsertBatch(ctx, []plans.FollowUp{
				{PlanID: "A1", Contacted: true},
				{PlanID: "   "},
			})
			require.Error(t, err)
			assert.True(t, pkgerrors.IsPersistError(err))
			assert.True(t, pkgerrors.IsValidationError(err))

			got, err := store.ReadAll(ctx)
			require.NoError(t, err)
			assert.Empty(t, got, "nothing from a rejected batch is stored")
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, Config{Driver: "memory"}, quiet())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Config{Driver: "file", DSN: filepath.Join(dir, "f.yaml")}, quiet())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(ctx, Config{Driver: "SQLite", DSN: filepath.Join(dir, "o.db")}, quiet())
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, s.Backend())
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{Driver: "mongo"})
	var ce *pkgerrors.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Error(), "mongo")

	_, err = Open(ctx, Config{Driver: "postgres"})
	require.Error(t, err)

	_, err = Open(ctx, Config{Driver: "file"})
	require.Error(t, err)
}

type brokenStore struct{ MemoryStore }

func (b *brokenStore) ReadAll(context.Context) ([]plans.FollowUp, error) {
	return nil, errors.New("connection refused")
}

func (b *brokenStore) Backend() string { return "broken" }

func TestRead(t *testing.T) {
	ctx := context.Background()

	t.Run("empty is not unavailable", func(t *testing.T) {
		res := Read(ctx, NewMemoryStore())
		assert.True(t, res.Available())
		assert.NoError(t, res.Err)
		assert.Empty(t, res.Records)
	})

	t.Run("failure wraps and falls back", func(t *testing.T) {
		res := Read(ctx, &brokenStore{})
		require.False(t, res.Available())
		assert.True(t, pkgerrors.IsOverlayUnavailable(res.Err))
		assert.Contains(t, res.Err.Error(), "broken")

		log := logging.NewTestLogger(t)
		assert.Empty(t, res.OrEmpty(log.Logger))
		log.AssertContains(t, "Overlay unavailable")
	})

	t.Run("already wrapped is kept", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("follow_ups: [unclosed"), 0o644))
		res := Read(ctx, NewFileStore(path))
		require.Error(t, res.Err)
		var ore *pkgerrors.OverlayReadError
		require.True(t, errors.As(res.Err, &ore))
		assert.Equal(t, DriverFile, ore.Backend)
		assert.False(t, errors.As(ore.Err, new(*pkgerrors.OverlayReadError)), "not double wrapped")
	})
}

func TestFileStoreDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "follow_ups.yaml")
	store := NewFileStore(path, quiet())

	require.NoError(t, store.UpsertBatch(ctx, []plans.FollowUp{{PlanID: "A1", Notes: "hola"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "follow_ups:")
	assert.Contains(t, string(data), "plan_id: A1")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file removed")
}
