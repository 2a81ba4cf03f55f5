// Package app wires configuration, logging and the shared renewals session
// into the CLI commands.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/renewals"
	"github.com/agentstation/renewals/internal/appcontext"
	"github.com/agentstation/renewals/internal/server"
	"github.com/agentstation/renewals/pkg/catalog"
	"github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/overlay"
	"github.com/agentstation/renewals/pkg/plans"
)

// App holds the CLI's configuration, logger and lazily opened session.
type App struct {
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger
	today  func() plans.Date

	mu      sync.RWMutex
	session renewals.Session
}

var _ appcontext.Interface = (*App)(nil)

// New creates an App with configuration loaded from the default sources.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		today:   plans.Today,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Version returns the version information.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string { return a.builtBy }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string { return a.config.Format }

// Today returns the current local date.
func (a *App) Today() plans.Date { return a.today() }

// CatalogPath returns the configured export path.
func (a *App) CatalogPath() string { return a.config.Catalog.Path }

// WatchCatalog reports whether serve watches the export file.
func (a *App) WatchCatalog() bool { return a.config.Catalog.Watch }

// ServerConfig returns the HTTP server settings.
func (a *App) ServerConfig() server.Config { return a.config.Server }

// Session returns the shared session, creating it on first use. The
// overlay store is opened here, so configuration errors surface on the
// first command that needs data.
func (a *App) Session() (renewals.Session, error) {
	a.mu.RLock()
	if a.session != nil {
		s := a.session
		a.mu.RUnlock()
		return s, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session != nil {
		return a.session, nil
	}

	if a.config.Catalog.Path == "" {
		return nil, errors.NewConfigError("catalog", "catalog.path is not set (use CATALOG_PATH or the config file)", nil)
	}

	normalizer := plans.NewNormalizer(a.config.Normalize)
	store, err := overlay.Open(context.Background(), a.config.Overlay,
		overlay.WithNormalizer(normalizer),
		overlay.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}

	opts := []renewals.Option{
		renewals.WithCatalogPath(a.config.Catalog.Path),
		renewals.WithSheet(a.config.Catalog.Sheet),
		renewals.WithCacheTTL(a.config.Catalog.TTL),
		renewals.WithOverlay(store),
		renewals.WithNormalizer(normalizer),
		renewals.WithLogger(a.logger),
	}
	if catalog.IsS3Path(a.config.Catalog.Path) {
		files := catalog.NewLoader(
			catalog.WithSheet(a.config.Catalog.Sheet),
			catalog.WithNormalizer(normalizer),
			catalog.WithLogger(a.logger),
		)
		src, err := catalog.NewS3Source(context.Background(), a.config.Catalog.S3, files, a.logger)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		opts = append(opts, renewals.WithCatalogSource(src))
	}

	session, err := renewals.New(opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a.session = session
	return session, nil
}

// Shutdown closes the session and its overlay store.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	s := a.session
	a.session = nil
	a.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.Close()
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithSession sets the session (useful for testing).
func WithSession(s renewals.Session) Option {
	return func(a *App) error {
		a.session = s
		return nil
	}
}

// WithToday fixes the current date (useful for testing).
func WithToday(today plans.Date) Option {
	return func(a *App) error {
		a.today = func() plans.Date { return today }
		return nil
	}
}
