// Package appcontext defines what CLI commands need from the application,
// so commands can be tested against a Mock instead of the full App.
package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/renewals"
	"github.com/agentstation/renewals/internal/server"
	"github.com/agentstation/renewals/pkg/plans"
)

// Interface is implemented by cmd/renewals/app.App.
type Interface interface {
	// Session returns the shared session, opening the overlay on first use.
	Session() (renewals.Session, error)

	// Logger returns the configured logger.
	Logger() *zerolog.Logger

	// OutputFormat returns the --format value; empty means detect.
	OutputFormat() string

	// Today returns the date used for default query windows.
	Today() plans.Date

	// CatalogPath returns the configured export path.
	CatalogPath() string

	// WatchCatalog reports whether serve should watch the export for changes.
	WatchCatalog() bool

	// ServerConfig returns the HTTP server settings.
	ServerConfig() server.Config

	Version() string
	Commit() string
	Date() string
	BuiltBy() string
}
