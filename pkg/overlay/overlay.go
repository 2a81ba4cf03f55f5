// Package overlay stores the follow-up state recorded against catalog plans.
//
// The overlay is the only mutable data in the system. Writes are full-record
// upserts keyed by plan identifier; records are never deleted, so follow-ups
// for plans that left the catalog survive until the plan reappears.
package overlay

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/logging"
	"github.com/agentstation/renewals/pkg/plans"
)

// Store is a follow-up overlay backend.
type Store interface {
	// ReadAll returns every stored follow-up.
	ReadAll(ctx context.Context) ([]plans.FollowUp, error)
	// UpsertBatch writes records atomically. Either every record is stored
	// or none is, and the error is a PersistError.
	UpsertBatch(ctx context.Context, records []plans.FollowUp) error
	// Backend names the backend for logs and errors.
	Backend() string
	// Close releases the backend's resources.
	Close() error
}

// Backend names.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverFile     = "file"
)

// Config selects and addresses a backend.
type Config struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// DefaultConfig stores follow-ups in a local SQLite database.
func DefaultConfig() Config {
	return Config{Driver: DriverSQLite, DSN: "renewals.db"}
}

type options struct {
	normalizer plans.Normalizer
	logger     *zerolog.Logger
	now        func() time.Time
}

// Option configures a Store.
type Option func(*options)

// WithNormalizer sets the normalizer applied to identifiers before writing.
func WithNormalizer(n plans.Normalizer) Option {
	return func(o *options) { o.normalizer = n }
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock sets the time source used for updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) *options {
	o := &options{
		normalizer: plans.DefaultNormalizer,
		logger:     logging.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open creates the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config, opts ...Option) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverMemory:
		return NewMemoryStore(opts...), nil
	case DriverSQLite, "":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = DefaultConfig().DSN
		}
		return OpenSQLite(ctx, dsn, opts...)
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, errors.NewConfigError("overlay", "postgres driver requires a dsn", nil)
		}
		return OpenPostgres(ctx, cfg.DSN, opts...)
	case DriverFile:
		if cfg.DSN == "" {
			return nil, errors.NewConfigError("overlay", "file driver requires a path", nil)
		}
		return NewFileStore(cfg.DSN, opts...), nil
	default:
		return nil, errors.NewConfigError("overlay", "unknown driver \""+cfg.Driver+"\"", nil)
	}
}

// ReadResult is the outcome of reading the overlay. A failed read leaves
// Records empty and Err set, so callers can tell "nothing recorded yet"
// apart from "overlay unreachable".
type ReadResult struct {
	Records []plans.FollowUp
	Err     error
}

// Read reads every follow-up from s, wrapping failures as OverlayReadError.
func Read(ctx context.Context, s Store) ReadResult {
	records, err := s.ReadAll(ctx)
	if err != nil {
		if !errors.IsOverlayUnavailable(err) {
			err = errors.NewOverlayReadError(s.Backend(), err)
		}
		return ReadResult{Err: err}
	}
	return ReadResult{Records: records}
}

// Available reports whether the read succeeded.
func (r ReadResult) Available() bool { return r.Err == nil }

// OrEmpty returns the records, or an empty set after logging a warning if
// the read failed.
func (r ReadResult) OrEmpty(logger *zerolog.Logger) []plans.FollowUp {
	if r.Err != nil {
		if logger == nil {
			logger = logging.Default()
		}
		logger.Warn().Err(r.Err).Msg("Overlay unavailable, continuing without follow-ups")
		return nil
	}
	return r.Records
}

// prepareBatch normalizes identifiers and collapses duplicates so the last
// occurrence of an identifier wins. Records with an empty identifier reject
// the whole batch.
func prepareBatch(n plans.Normalizer, records []plans.FollowUp) ([]plans.FollowUp, error) {
	out := make([]plans.FollowUp, 0, len(records))
	pos := make(map[plans.PlanID]int, len(records))
	for i, r := range records {
		r.PlanID = n.Normalize(string(r.PlanID))
		if r.PlanID == "" {
			return nil, errors.NewValidationError("plan_id", i, "empty plan identifier in batch")
		}
		if j, ok := pos[r.PlanID]; ok {
			out[j] = r
			continue
		}
		pos[r.PlanID] = len(out)
		out = append(out, r)
	}
	return out, nil
}
