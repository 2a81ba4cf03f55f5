// Package constants provides shared constants used throughout the renewals codebase.
package constants

import "time"

// Timeouts and intervals
const (
	// CatalogCacheTTL is how long a loaded catalog export is reused before the
	// file is read again.
	CatalogCacheTTL = 10 * time.Second

	// DefaultQueryWindow is the length of the default expiration range
	// starting today.
	DefaultQueryWindow = 30 * 24 * time.Hour

	// ShutdownTimeout bounds graceful shutdown of the HTTP server.
	ShutdownTimeout = 5 * time.Second

	// WatchDebounce coalesces bursts of file events from spreadsheet saves.
	WatchDebounce = 500 * time.Millisecond
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Export column widths, in characters.
const (
	PetNameWidth   = 15
	OwnerNameWidth = 25
)

// Catalog defaults
const (
	// DefaultSheet is the worksheet holding service rows in the periodic export.
	DefaultSheet = "Servicios Loop"

	// DefaultExportTitle is the title printed on the follow-up PDF.
	DefaultExportTitle = "Lista de Gestion Loop - Banfield"
)
