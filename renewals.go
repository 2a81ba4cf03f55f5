// Package renewals tracks expiring veterinary service plans.
//
// A Session joins the periodic catalog export with the follow-up overlay,
// answers queries over the joined view and writes follow-up edits back as
// whole records. The catalog is read through a short-lived cache; the
// overlay is read fresh on every view and a failed read degrades to an empty
// follow-up set.
package renewals

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/renewals/pkg/catalog"
	"github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/overlay"
	"github.com/agentstation/renewals/pkg/plans"
	"github.com/agentstation/renewals/pkg/query"
	"github.com/agentstation/renewals/pkg/reconciler"
)

// Session is the reconciliation and write-back surface shared by the CLI
// and the HTTP server. It is safe for concurrent use.
type Session interface {
	// Master returns the reconciled view of every catalog plan.
	Master(ctx context.Context) (*View, error)

	// Lookup returns one plan by raw identifier. A miss is a NotFoundError.
	Lookup(ctx context.Context, raw string) (*Plan, error)

	// Query returns the master records passing f.
	Query(ctx context.Context, f query.Filter) ([]plans.MasterRecord, error)

	// Services returns the distinct service descriptions in the catalog.
	Services(ctx context.Context) ([]string, error)

	// Catalog returns the (cached) catalog.
	Catalog(ctx context.Context) (*catalog.Catalog, error)

	// Edit buffers a full follow-up record without storing it.
	Edit(f plans.FollowUp) error

	// Pending returns the buffered edits in edit order.
	Pending() []plans.FollowUp

	// Discard drops the buffered edits.
	Discard()

	// Save stores the buffered edits as one batch. On failure the edits
	// stay buffered and the session enters StateSaveFailed.
	Save(ctx context.Context) error

	// SaveRecords stores records as one batch without touching the buffer.
	SaveRecords(ctx context.Context, records []plans.FollowUp) error

	// Refresh drops the cached catalog.
	Refresh()

	// State returns the edit state.
	State() State

	// Normalizer returns the identifier normalizer in use.
	Normalizer() plans.Normalizer

	// Close releases the overlay store.
	Close() error

	OnSaved(SavedHook)
	OnSaveFailed(SaveFailedHook)
	OnRefreshed(RefreshedHook)
	OnCatalogLoaded(CatalogLoadedHook)
	OnOverlayUnavailable(OverlayUnavailableHook)
}

// State is the edit state of a Session.
type State int

// Edit states.
const (
	StateViewing State = iota
	StateEditing
	StateSaving
	StateSaveFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateViewing:
		return "viewing"
	case StateEditing:
		return "editing"
	case StateSaving:
		return "saving"
	case StateSaveFailed:
		return "save_failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// View is the reconciled master view. Items are the line items of the same
// catalog load as Records, for service filtering. Orphans are follow-ups
// whose plan is not in the current catalog. OverlayErr is set when the
// overlay could not be read and Records carry no follow-up data.
type View struct {
	Records    []plans.MasterRecord        `json:"records"`
	Items      []plans.LineItem            `json:"-"`
	Orphans    []plans.FollowUp            `json:"orphans"`
	OverlayErr error                       `json:"-"`
	Stats      reconciler.ResultStatistics `json:"stats"`
	LoadedAt   time.Time                   `json:"loaded_at"`
}

// Plan is one plan with its purchased services.
type Plan struct {
	Record plans.MasterRecord `json:"record"`
	Items  []plans.LineItem   `json:"items"`
}

// session is the internal implementation of the Session interface
type session struct {
	mu      sync.Mutex
	state   State
	pending []plans.FollowUp

	path       string
	catalog    *catalog.CachedLoader
	store      overlay.Store
	reconciler reconciler.Reconciler
	normalizer plans.Normalizer
	logger     *zerolog.Logger

	*hooks
}

var _ Session = (*session)(nil)

// New creates a Session. A catalog path and an overlay store are required.
func New(opts ...Option) (Session, error) {
	cfg := defaultConfig()
	if err := cfg.apply(opts...); err != nil {
		return nil, fmt.Errorf("applying options: %w", err)
	}

	src := cfg.source
	if src == nil {
		src = catalog.NewLoader(
			catalog.WithSheet(cfg.sheet),
			catalog.WithNormalizer(cfg.normalizer),
			catalog.WithLogger(cfg.logger),
		)
	}

	rec, err := reconciler.New(
		reconciler.WithNormalizer(cfg.normalizer),
		reconciler.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reconciler: %w", err)
	}

	s := &session{
		path:       cfg.catalogPath,
		catalog:    catalog.NewCachedLoader(src, cfg.cacheTTL),
		store:      cfg.store,
		reconciler: rec,
		normalizer: cfg.normalizer,
		logger:     cfg.logger,
		hooks:      newHooks(),
	}
	s.catalog.OnLoad(s.triggerCatalogLoaded)
	return s, nil
}

// Catalog implements Session.
func (s *session) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	return s.catalog.Load(ctx, s.path)
}

// Master implements Session.
func (s *session) Master(ctx context.Context) (*View, error) {
	view, _, err := s.master(ctx)
	return view, err
}

func (s *session) master(ctx context.Context) (*View, *catalog.Catalog, error) {
	cat, err := s.Catalog(ctx)
	if err != nil {
		return nil, nil, err
	}

	read := overlay.Read(ctx, s.store)
	if read.Err != nil {
		s.triggerOverlayUnavailable(read.Err)
	}
	result := s.reconciler.Reconcile(cat.Profiles, read.OrEmpty(s.logger))

	return &View{
		Records:    result.Records,
		Items:      cat.Items,
		Orphans:    result.Orphans,
		OverlayErr: read.Err,
		Stats:      result.Metadata.Stats,
		LoadedAt:   cat.LoadedAt,
	}, cat, nil
}

// Lookup implements Session.
func (s *session) Lookup(ctx context.Context, raw string) (*Plan, error) {
	id := s.normalizer.Normalize(raw)
	if id == "" {
		return nil, errors.NewNotFoundError("plan", raw)
	}

	view, cat, err := s.master(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range view.Records {
		if rec.PlanID == id {
			return &Plan{Record: rec, Items: cat.ItemsFor(id)}, nil
		}
	}
	return nil, errors.NewNotFoundError("plan", string(id))
}

// Query implements Session.
func (s *session) Query(ctx context.Context, f query.Filter) ([]plans.MasterRecord, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	view, cat, err := s.master(ctx)
	if err != nil {
		return nil, err
	}
	if f.Normalizer == nil {
		n := s.normalizer
		f.Normalizer = &n
	}
	return f.Apply(view.Records, cat.Items), nil
}

// Services implements Session.
func (s *session) Services(ctx context.Context) ([]string, error) {
	cat, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return cat.Services(), nil
}

// Edit implements Session. A later edit of the same plan replaces the
// earlier one.
func (s *session) Edit(f plans.FollowUp) error {
	f.PlanID = s.normalizer.Normalize(string(f.PlanID))
	if f.PlanID == "" {
		return errors.NewValidationError("plan_id", f.PlanID, "plan identifier is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSaving {
		return errors.NewValidationError("state", s.state.String(), "save in progress")
	}
	for i, p := range s.pending {
		if p.PlanID == f.PlanID {
			s.pending[i] = f
			s.state = StateEditing
			return nil
		}
	}
	s.pending = append(s.pending, f)
	s.state = StateEditing
	return nil
}

// Pending implements Session.
func (s *session) Pending() []plans.FollowUp {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]plans.FollowUp, len(s.pending))
	copy(out, s.pending)
	return out
}

// Discard implements Session.
func (s *session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSaving {
		return
	}
	s.pending = nil
	s.state = StateViewing
}

// Save implements Session.
func (s *session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateSaving {
		s.mu.Unlock()
		return errors.NewValidationError("state", s.state.String(), "save in progress")
	}
	if len(s.pending) == 0 {
		s.state = StateViewing
		s.mu.Unlock()
		return nil
	}
	batch := make([]plans.FollowUp, len(s.pending))
	copy(batch, s.pending)
	s.state = StateSaving
	s.mu.Unlock()

	err := s.SaveRecords(ctx, batch)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateSaveFailed
		return err
	}
	s.pending = s.pending[len(batch):]
	s.state = StateViewing
	if len(s.pending) > 0 {
		s.state = StateEditing
	}
	return nil
}

// SaveRecords implements Session. A successful write drops the cached
// catalog so the next view is rebuilt; a failed one leaves every cache as it
// was.
func (s *session) SaveRecords(ctx context.Context, records []plans.FollowUp) error {
	if len(records) == 0 {
		return nil
	}
	logger := s.logger.With().Str("backend", s.store.Backend()).Int("records", len(records)).Logger()

	if err := s.store.UpsertBatch(ctx, records); err != nil {
		err = errors.WrapPersist(s.store.Backend(), plans.IDs(records), err)
		logger.Error().Err(err).Msg("Saving follow-ups failed")
		s.triggerSaveFailed(records, err)
		return err
	}

	logger.Info().Msg("Follow-ups saved")
	s.catalog.Invalidate()
	s.triggerSaved(records)
	return nil
}

// Refresh implements Session.
func (s *session) Refresh() {
	s.catalog.Invalidate()
	s.logger.Debug().Str("path", s.path).Msg("Catalog cache cleared")
	s.triggerRefreshed()
}

// State implements Session.
func (s *session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Normalizer implements Session.
func (s *session) Normalizer() plans.Normalizer { return s.normalizer }

// Close implements Session.
func (s *session) Close() error {
	return s.store.Close()
}
