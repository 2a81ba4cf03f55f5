package overlay

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/plans"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	fixed := time.Date(2026, time.January, 5, 12, 0, 0, 0, time.UTC)
	store := NewSQLStore(sqlx.NewDb(db, "postgres"), DriverPostgres, quiet(), WithClock(func() time.Time { return fixed }))
	return store, mock
}

var (
	upsertPattern = regexp.QuoteMeta("INSERT INTO follow_ups (plan_id, contacted, scheduled, notes, updated_at)\nVALUES ($1, $2, $3, $4, $5)")
	idsPattern    = regexp.QuoteMeta(selectIDs)
	aliasPattern  = regexp.QuoteMeta("UPDATE follow_ups SET contacted = $1, scheduled = $2, notes = $3, updated_at = $4 WHERE plan_id = $5")
)

func storedIDs(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"plan_id"})
	for _, id := range ids {
		rows.AddRow(id)
	}
	return rows
}

func TestPostgresUpsertCommits(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(idsPattern).WillReturnRows(storedIDs("A1"))
	mock.ExpectExec(upsertPattern).
		WithArgs("A1", true, false, "called", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsertPattern).
		WithArgs("B2", false, true, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.UpsertBatch(context.Background(), []plans.FollowUp{
		{PlanID: "a1", Contacted: true, Notes: "called"},
		{PlanID: "B2", Scheduled: true},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertRewritesOtherSpellings(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(idsPattern).WillReturnRows(storedIDs("A1", "a1", " a1 ", "B2"))
	mock.ExpectExec(upsertPattern).
		WithArgs("A1", false, false, "new", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(aliasPattern).
		WithArgs(false, false, "new", sqlmock.AnyArg(), "a1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(aliasPattern).
		WithArgs(false, false, "new", sqlmock.AnyArg(), " a1 ").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.UpsertBatch(context.Background(), []plans.FollowUp{{PlanID: "A1", Notes: "new"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(idsPattern).WillReturnRows(storedIDs())
	mock.ExpectExec(upsertPattern).
		WithArgs("A1", true, false, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsertPattern).
		WithArgs("B2", false, false, "", sqlmock.AnyArg()).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := store.UpsertBatch(context.Background(), []plans.FollowUp{
		{PlanID: "A1", Contacted: true},
		{PlanID: "B2"},
	})
	require.Error(t, err)

	var pe *pkgerrors.PersistError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, DriverPostgres, pe.Backend)
	assert.Equal(t, []string{"A1", "B2"}, pe.IDs)
	assert.Contains(t, err.Error(), "deadlock")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBeginFails(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	err := store.UpsertBatch(context.Background(), []plans.FollowUp{{PlanID: "A1"}})
	assert.True(t, pkgerrors.IsPersistError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEmptyBatchIsNoop(t *testing.T) {
	store, mock := newMockStore(t)
	require.NoError(t, store.UpsertBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReadAll(t *testing.T) {
	t.Run("rows", func(t *testing.T) {
		store, mock := newMockStore(t)
		rows := sqlmock.NewRows([]string{"plan_id", "contacted", "scheduled", "notes", "updated_at"}).
			AddRow("A1", true, false, "called", "2026-01-05T12:00:00Z").
			AddRow("OLD", false, true, "", "2026-01-05T12:00:00Z")
		mock.ExpectQuery(regexp.QuoteMeta(selectAll)).WillReturnRows(rows)

		got, err := store.ReadAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []plans.FollowUp{
			{PlanID: "A1", Contacted: true, Notes: "called"},
			{PlanID: "OLD", Scheduled: true},
		}, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other spellings collapse to the newest row", func(t *testing.T) {
		store, mock := newMockStore(t)
		rows := sqlmock.NewRows([]string{"plan_id", "contacted", "scheduled", "notes", "updated_at"}).
			AddRow("a1", true, false, "old", "2026-01-04T09:00:00Z").
			AddRow("A1", false, false, "new", "2026-01-05T12:00:00Z").
			AddRow("B2", false, true, "", "2026-01-05T12:00:00Z").
			AddRow("b2 ", true, false, "same time", "2026-01-05T12:00:00Z")
		mock.ExpectQuery(regexp.QuoteMeta(selectAll)).WillReturnRows(rows)

		got, err := store.ReadAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []plans.FollowUp{
			{PlanID: "A1", Notes: "new"},
			{PlanID: "B2", Scheduled: true},
		}, got)
	})

	t.Run("unreachable", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectAll)).WillReturnError(errors.New("connection refused"))

		res := Read(context.Background(), store)
		assert.True(t, pkgerrors.IsOverlayUnavailable(res.Err))
		assert.Empty(t, res.Records)
	})
}

func TestMigrate(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS follow_ups")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
