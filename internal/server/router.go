package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/agentstation/renewals/internal/server/handlers"
	"github.com/agentstation/renewals/internal/server/middleware"
	"github.com/agentstation/renewals/internal/server/response"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	h := handlers.New(handlers.Deps{
		Session:        s.session,
		Broker:         s.broker,
		WSHub:          s.wsHub,
		SSEBroadcaster: s.sseBroadcaster,
		Upgrader:       s.upgrader,
		Metrics:        s.metrics,
		Logger:         s.logger,
		ExportTitle:    s.config.ExportTitle,
		StartTime:      s.startTime,
		Today:          s.today,
	})

	r := chi.NewRouter()
	s.applyMiddleware(r)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Not found", r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.MethodNotAllowed(w, r.Method)
	})

	r.Get("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/health", h.HandleHealth)
	if s.config.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route(s.config.PathPrefix, func(r chi.Router) {
		r.Get("/health", h.HandleHealth)
		r.Get("/ready", h.HandleReady)

		r.Get("/plans", h.HandleListPlans)
		r.Get("/plans/{id}", h.HandleGetPlan)
		r.Get("/services", h.HandleListServices)
		r.Get("/export.pdf", h.HandleExportPDF)
		r.Put("/follow-ups", h.HandleSaveFollowUps)

		r.Post("/refresh", h.HandleRefresh)
		r.Get("/stats", h.HandleStats)

		r.Get("/updates/ws", h.HandleWebSocket)
		r.Get("/updates/stream", h.HandleSSE)
	})

	return r
}

// applyMiddleware installs the middleware stack, outermost first.
func (s *Server) applyMiddleware(r chi.Router) {
	cfg := s.config

	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.Logger(s.logger))
	if cfg.MetricsEnabled {
		r.Use(s.metrics.Middleware)
	}

	if cfg.CORSEnabled {
		opts := cors.Options{
			AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", cfg.AuthHeader, middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         300,
		}
		if len(cfg.CORSOrigins) > 0 {
			opts.AllowedOrigins = cfg.CORSOrigins
		} else {
			opts.AllowedOrigins = []string{"*"}
		}
		r.Use(cors.Handler(opts))
	}

	if cfg.AuthEnabled {
		authConfig := middleware.DefaultAuthConfig()
		authConfig.Enabled = true
		authConfig.APIKey = cfg.APIKey
		if cfg.AuthHeader != "" {
			authConfig.HeaderName = cfg.AuthHeader
		}
		authConfig.PublicPaths = append(authConfig.PublicPaths, cfg.PathPrefix+"/health", cfg.PathPrefix+"/ready")
		r.Use(middleware.Auth(authConfig, s.logger))
	}

	if s.rateLimiter != nil {
		r.Use(middleware.RateLimit(s.rateLimiter))
	}
}
