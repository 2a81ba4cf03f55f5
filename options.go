package renewals

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/renewals/pkg/catalog"
	"github.com/agentstation/renewals/pkg/constants"
	"github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/logging"
	"github.com/agentstation/renewals/pkg/overlay"
	"github.com/agentstation/renewals/pkg/plans"
)

// config holds the settings of a Session.
type config struct {
	catalogPath string
	sheet       string
	cacheTTL    time.Duration
	source      catalog.Source
	store       overlay.Store
	normalizer  plans.Normalizer
	logger      *zerolog.Logger
}

func defaultConfig() *config {
	return &config{
		cacheTTL:   constants.CatalogCacheTTL,
		normalizer: plans.DefaultNormalizer,
		logger:     logging.Default(),
	}
}

// Option is a function that configures a Session.
type Option func(*config) error

func (c *config) apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	if c.catalogPath == "" {
		return errors.NewConfigError("catalog", "catalog path is required", nil)
	}
	if c.store == nil {
		return errors.NewConfigError("overlay", "overlay store is required", nil)
	}
	return nil
}

// WithCatalogPath sets the export file read by the session.
func WithCatalogPath(path string) Option {
	return func(c *config) error {
		c.catalogPath = path
		return nil
	}
}

// WithSheet sets the workbook sheet holding the service rows.
func WithSheet(sheet string) Option {
	return func(c *config) error {
		c.sheet = sheet
		return nil
	}
}

// WithCacheTTL sets how long a loaded catalog is reused. Zero or negative
// keeps it until Refresh.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *config) error {
		c.cacheTTL = ttl
		return nil
	}
}

// WithCatalogSource replaces the file loader. The source is still cached.
func WithCatalogSource(src catalog.Source) Option {
	return func(c *config) error {
		if src == nil {
			return &errors.ValidationError{Field: "source", Message: "cannot be nil"}
		}
		c.source = src
		return nil
	}
}

// WithOverlay sets the follow-up store.
func WithOverlay(store overlay.Store) Option {
	return func(c *config) error {
		if store == nil {
			return &errors.ValidationError{Field: "overlay", Message: "cannot be nil"}
		}
		c.store = store
		return nil
	}
}

// WithNormalizer sets the identifier normalizer shared by every stage.
func WithNormalizer(n plans.Normalizer) Option {
	return func(c *config) error {
		c.normalizer = n
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return &errors.ValidationError{Field: "logger", Message: "cannot be nil"}
		}
		c.logger = logger
		return nil
	}
}
