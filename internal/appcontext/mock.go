package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/renewals"
	"github.com/agentstation/renewals/internal/server"
	"github.com/agentstation/renewals/pkg/plans"
)

// Mock implements Interface for tests. Nil function fields return zero
// values, a no-op logger or build-info placeholders.
type Mock struct {
	SessionFunc      func() (renewals.Session, error)
	LoggerFunc       func() *zerolog.Logger
	Format           string
	TodayValue       plans.Date
	Path             string
	Watch            bool
	ServerConfigFunc func() server.Config
}

var _ Interface = (*Mock)(nil)

// Session returns the session from SessionFunc, or nil.
func (m *Mock) Session() (renewals.Session, error) {
	if m.SessionFunc != nil {
		return m.SessionFunc()
	}
	return nil, nil
}

// Logger returns the logger from LoggerFunc, or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns Format.
func (m *Mock) OutputFormat() string { return m.Format }

// Today returns TodayValue, or the current date when unset.
func (m *Mock) Today() plans.Date {
	if m.TodayValue.IsZero() {
		return plans.Today()
	}
	return m.TodayValue
}

// CatalogPath returns Path.
func (m *Mock) CatalogPath() string { return m.Path }

// WatchCatalog returns Watch.
func (m *Mock) WatchCatalog() bool { return m.Watch }

// ServerConfig returns the config from ServerConfigFunc, or the default.
func (m *Mock) ServerConfig() server.Config {
	if m.ServerConfigFunc != nil {
		return m.ServerConfigFunc()
	}
	return server.DefaultConfig()
}

// Version returns "dev".
func (m *Mock) Version() string { return "dev" }

// Commit returns "unknown".
func (m *Mock) Commit() string { return "unknown" }

// Date returns "unknown".
func (m *Mock) Date() string { return "unknown" }

// BuiltBy returns "unknown".
func (m *Mock) BuiltBy() string { return "unknown" }
