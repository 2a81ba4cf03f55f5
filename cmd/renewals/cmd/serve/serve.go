// Package serve provides the command that runs the HTTP API.
package serve

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/renewals/internal/appcontext"
	"github.com/agentstation/renewals/internal/server"
	"github.com/agentstation/renewals/internal/server/events"
	"github.com/agentstation/renewals/internal/watch"
	"github.com/agentstation/renewals/pkg/catalog"
)

// NewCommand creates the serve command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		GroupID: "server",
		Short:   "Serve the REST API with WebSocket and SSE updates",
		Long: `Serve starts the HTTP API over the shared session.

Features:
  - Plan queries, follow-up saves and the PDF sheet under the path prefix
  - WebSocket (/updates/ws) and SSE (/updates/stream) save notifications
  - Optional API key for writes, per-IP rate limiting and CORS
  - Prometheus metrics at /metrics
  - With --watch, the export file is watched and the catalog cache is
    dropped as soon as the file changes

Settings come from the server.* config keys; flags override them.`,
		Example: `  renewals serve
  renewals serve --port 3000 --watch
  SERVER_API_KEY=secret renewals serve --auth
  renewals serve --cors-origins https://clinic.example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app)
		},
	}

	defaults := server.DefaultConfig()
	cmd.Flags().IntP("port", "p", defaults.Port, "server port")
	cmd.Flags().String("host", defaults.Host, "bind address")
	cmd.Flags().String("prefix", defaults.PathPrefix, "API path prefix")
	cmd.Flags().Bool("cors", false, "enable CORS for all origins")
	cmd.Flags().StringSlice("cors-origins", nil, "allowed CORS origins (comma-separated)")
	cmd.Flags().Bool("auth", false, "require the API key (server.api_key) for writes")
	cmd.Flags().String("auth-header", defaults.AuthHeader, "API key header name")
	cmd.Flags().Int("rate-limit", defaults.RateLimit, "requests per minute per IP (0 to disable)")
	cmd.Flags().Bool("metrics", defaults.MetricsEnabled, "enable the /metrics endpoint")
	cmd.Flags().Bool("watch", false, "watch the export file and refresh on change")
	return cmd
}

// ResolveConfig overlays explicitly set flags on the configured settings.
func ResolveConfig(cmd *cobra.Command, cfg server.Config) server.Config {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("prefix") {
		cfg.PathPrefix, _ = flags.GetString("prefix")
	}
	if flags.Changed("cors") {
		cfg.CORSEnabled, _ = flags.GetBool("cors")
	}
	if flags.Changed("cors-origins") {
		cfg.CORSOrigins, _ = flags.GetStringSlice("cors-origins")
		cfg.CORSEnabled = true
	}
	if flags.Changed("auth") {
		cfg.AuthEnabled, _ = flags.GetBool("auth")
	}
	if flags.Changed("auth-header") {
		cfg.AuthHeader, _ = flags.GetString("auth-header")
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit, _ = flags.GetInt("rate-limit")
	}
	if flags.Changed("metrics") {
		cfg.MetricsEnabled, _ = flags.GetBool("metrics")
	}
	return cfg
}

func run(cmd *cobra.Command, app appcontext.Interface) error {
	logger := app.Logger()
	cfg := ResolveConfig(cmd, app.ServerConfig())

	session, err := app.Session()
	if err != nil {
		return err
	}

	srv, err := server.New(session, cfg, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	watchCatalog := app.WatchCatalog()
	if cmd.Flags().Changed("watch") {
		watchCatalog, _ = cmd.Flags().GetBool("watch")
	}
	if watchCatalog && catalog.IsS3Path(app.CatalogPath()) {
		logger.Warn().Str("path", app.CatalogPath()).Msg("Catalog is in S3, file watching disabled")
		watchCatalog = false
	}
	if watchCatalog {
		w := watch.New(app.CatalogPath(), session,
			watch.WithLogger(logger),
			watch.WithOnChange(func(path string) {
				srv.Broker().Publish(events.CatalogChanged, map[string]any{"path": path})
			}),
		)
		if err := w.Start(ctx); err != nil {
			return err
		}
	}

	logger.Info().
		Str("addr", cfg.Addr()).
		Str("prefix", cfg.PathPrefix).
		Bool("auth", cfg.AuthEnabled).
		Bool("watch", watchCatalog).
		Msg("Starting renewals API server")

	return srv.ListenAndServe(ctx)
}
