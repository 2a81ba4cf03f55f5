package overlay

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/plans"
)

const schema = `CREATE TABLE IF NOT EXISTS follow_ups (
	plan_id    TEXT PRIMARY KEY,
	contacted  BOOLEAN NOT NULL DEFAULT FALSE,
	scheduled  BOOLEAN NOT NULL DEFAULT FALSE,
	notes      TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMP NOT NULL
)`

const selectAll = `SELECT plan_id, contacted, scheduled, notes, updated_at FROM follow_ups ORDER BY updated_at, plan_id`

const selectIDs = `SELECT plan_id FROM follow_ups`

const updateAlias = `UPDATE follow_ups SET contacted = ?, scheduled = ?, notes = ?, updated_at = ? WHERE plan_id = ?`

const upsert = `INSERT INTO follow_ups (plan_id, contacted, scheduled, notes, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (plan_id) DO UPDATE SET
	contacted = excluded.contacted,
	scheduled = excluded.scheduled,
	notes = excluded.notes,
	updated_at = excluded.updated_at`

// SQLStore keeps follow-ups in a follow_ups table. The same statements serve
// SQLite and PostgreSQL; placeholders are rebound per driver.
type SQLStore struct {
	db      *sqlx.DB
	backend string
	opts    *options
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps an open database. The schema is not created; call
// Migrate for that.
func NewSQLStore(db *sqlx.DB, backend string, opts ...Option) *SQLStore {
	return &SQLStore{db: db, backend: backend, opts: newOptions(opts)}
}

// OpenSQLite opens (creating if needed) a SQLite overlay at dsn.
func OpenSQLite(ctx context.Context, dsn string, opts ...Option) (*SQLStore, error) {
	if !strings.Contains(dsn, "_pragma") && dsn != ":memory:" {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.NewConfigError("overlay", "open sqlite", err)
	}
	// One writer at a time; also keeps a :memory: database on one connection.
	db.SetMaxOpenConns(1)
	return openSQL(ctx, db, DriverSQLite, opts)
}

// OpenPostgres connects to a PostgreSQL overlay at dsn.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*SQLStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, errors.NewConfigError("overlay", "open postgres", err)
	}
	return openSQL(ctx, db, DriverPostgres, opts)
}

func openSQL(ctx context.Context, db *sqlx.DB, backend string, opts []Option) (*SQLStore, error) {
	s := NewSQLStore(db, backend, opts...)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the follow_ups table if it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.NewConfigError("overlay", "create follow_ups table", err)
	}
	return nil
}

// Backend implements Store.
func (s *SQLStore) Backend() string { return s.backend }

// sqlRow is a follow_ups row as stored. Rows written by other tools may
// carry a raw identifier spelling.
type sqlRow struct {
	plans.FollowUp
	UpdatedAt string `db:"updated_at"`
}

// ReadAll implements Store. Identifiers come back normalized; when several
// rows share one, the most recently updated wins and a tie goes to the row
// stored under the canonical spelling.
func (s *SQLStore) ReadAll(ctx context.Context) ([]plans.FollowUp, error) {
	var rows []sqlRow
	if err := s.db.SelectContext(ctx, &rows, selectAll); err != nil {
		return nil, errors.NewOverlayReadError(s.backend, err)
	}

	out := make([]plans.FollowUp, 0, len(rows))
	pos := make(map[plans.PlanID]int, len(rows))
	seen := make([]sqlRow, 0, len(rows))
	for _, r := range rows {
		id := s.opts.normalizer.Normalize(string(r.PlanID))
		canonical := id == r.PlanID
		f := r.FollowUp
		f.PlanID = id

		j, ok := pos[id]
		if !ok {
			pos[id] = len(out)
			out = append(out, f)
			seen = append(seen, r)
			continue
		}
		prev := seen[j]
		if prev.UpdatedAt == r.UpdatedAt && prev.PlanID == id && !canonical {
			continue
		}
		out[j] = f
		seen[j] = r
	}
	return out, nil
}

// aliases maps each identifier in batch to the stored rows that spell it
// differently, for example "a1 " for "A1".
func (s *SQLStore) aliases(ctx context.Context, tx *sqlx.Tx, batch []plans.FollowUp) (map[plans.PlanID][]string, error) {
	var stored []string
	if err := tx.SelectContext(ctx, &stored, selectIDs); err != nil {
		return nil, err
	}
	want := make(map[plans.PlanID]struct{}, len(batch))
	for _, r := range batch {
		want[r.PlanID] = struct{}{}
	}
	out := make(map[plans.PlanID][]string)
	for _, raw := range stored {
		id := s.opts.normalizer.Normalize(raw)
		if _, ok := want[id]; ok && string(id) != raw {
			out[id] = append(out[id], raw)
		}
	}
	return out, nil
}

// UpsertBatch implements Store. The batch runs in one transaction. Rows
// stored under another spelling of a batch identifier are rewritten with the
// same values so no stale copy survives the save.
func (s *SQLStore) UpsertBatch(ctx context.Context, records []plans.FollowUp) (err error) {
	ids := plans.IDs(records)
	batch, err := prepareBatch(s.opts.normalizer, records)
	if err != nil {
		return errors.NewPersistError(s.backend, ids, err)
	}
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.NewPersistError(s.backend, ids, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.opts.logger.Error().Err(rbErr).Str("backend", s.backend).Msg("Rollback failed")
			}
		}
	}()

	alias, err := s.aliases(ctx, tx, batch)
	if err != nil {
		return errors.NewPersistError(s.backend, ids, err)
	}

	stmt := tx.Rebind(upsert)
	aliasStmt := tx.Rebind(updateAlias)
	now := s.opts.now().UTC()
	for _, r := range batch {
		if _, err = tx.ExecContext(ctx, stmt, string(r.PlanID), r.Contacted, r.Scheduled, r.Notes, now); err != nil {
			return errors.NewPersistError(s.backend, ids, err)
		}
		for _, raw := range alias[r.PlanID] {
			if _, err = tx.ExecContext(ctx, aliasStmt, r.Contacted, r.Scheduled, r.Notes, now, raw); err != nil {
				return errors.NewPersistError(s.backend, ids, err)
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.NewPersistError(s.backend, ids, err)
	}

	s.opts.logger.Debug().Str("backend", s.backend).Int("records", len(batch)).Msg("Follow-ups upserted")
	return nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
