// Package server provides the HTTP query surface over a renewals session:
// JSON plan queries, follow-up saves, PDF export and realtime save
// notifications.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/renewals"
	"github.com/agentstation/renewals/internal/server/events"
	"github.com/agentstation/renewals/internal/server/events/adapters"
	"github.com/agentstation/renewals/internal/server/metrics"
	"github.com/agentstation/renewals/internal/server/middleware"
	"github.com/agentstation/renewals/internal/server/sse"
	ws "github.com/agentstation/renewals/internal/server/websocket"
	"github.com/agentstation/renewals/pkg/constants"
	pkgerrors "github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/plans"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	session        renewals.Session
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	rateLimiter    *middleware.RateLimiter
	metrics        *metrics.Metrics
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	config         Config
	ctx            context.Context
	cancel         context.CancelFunc
	startTime      time.Time
	today          func() plans.Date
}

// New creates a new server instance with the given configuration.
func New(session renewals.Session, cfg Config, logger *zerolog.Logger) (*Server, error) {
	if session == nil {
		return nil, pkgerrors.NewConfigError("server", "session is required", nil)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if cfg.AuthEnabled && cfg.APIKey == "" {
		return nil, pkgerrors.NewConfigError("server", "auth is enabled but no API key is set", nil)
	}
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = DefaultConfig().PathPrefix
	}

	broker := events.NewBroker(logger)
	wsHub := ws.NewHub(logger)
	sseBroadcaster := sse.NewBroadcaster(logger)

	broker.Subscribe("websocket", adapters.WebSocket(wsHub))
	broker.Subscribe("sse", adapters.SSE(sseBroadcaster))
	logger.Debug().Strs("subscribers", broker.Subscribers()).Msg("Realtime transports subscribed")

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		session:        session,
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		metrics:        metrics.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:    logger,
		config:    cfg,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
		today:     plans.Today,
	}
	if cfg.RateLimit > 0 {
		s.rateLimiter = middleware.NewRateLimiter(cfg.RateLimit, logger)
	}

	s.connectHooks()
	return s, nil
}

// connectHooks publishes session events to the broker and counts them.
func (s *Server) connectHooks() {
	s.session.OnSaved(func(records []plans.FollowUp) {
		s.metrics.Saves.Inc()
		s.metrics.SavedRecords.Add(float64(len(records)))
		s.broker.Publish(events.FollowUpsSaved, map[string]any{
			"ids":   plans.IDs(records),
			"count": len(records),
		})
	})

	s.session.OnSaveFailed(func(records []plans.FollowUp, err error) {
		s.metrics.SaveFailures.Inc()
		s.broker.Publish(events.FollowUpsSaveFailed, map[string]any{
			"ids":   plans.IDs(records),
			"error": err.Error(),
		})
	})

	s.session.OnRefreshed(func() {
		s.metrics.Refreshes.Inc()
		s.broker.Publish(events.CatalogRefreshed, nil)
	})

	s.session.OnCatalogLoaded(s.metrics.CatalogLoaded)

	s.session.OnOverlayUnavailable(func(err error) {
		s.metrics.OverlayReadFailures.Inc()
		s.broker.Publish(events.OverlayUnavailable, map[string]any{"error": err.Error()})
	})

	s.logger.Debug().Msg("Session hooks connected to event broker")
}

// Start starts background services (broker, WebSocket hub, SSE broadcaster).
func (s *Server) Start() {
	go s.broker.Run(s.ctx)
	go s.wsHub.Run(s.ctx)
	go s.sseBroadcaster.Run(s.ctx)
	s.logger.Debug().Msg("Background services started")
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// ListenAndServe starts the background services and serves HTTP until ctx
// is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.Start()

	httpServer := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", httpServer.Addr).Str("prefix", s.config.PathPrefix).Msg("HTTP server listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		_ = s.Shutdown(context.Background())
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	s.logger.Info().Msg("Shutting down HTTP server")
	httpErr := httpServer.Shutdown(shutdownCtx)
	if err := s.Shutdown(shutdownCtx); err != nil && httpErr == nil {
		httpErr = err
	}
	return httpErr
}

// Shutdown stops background services.
func (s *Server) Shutdown(_ context.Context) error {
	s.cancel()
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	s.logger.Info().Msg("Background services shut down")
	return nil
}

// WSHub returns the WebSocket hub.
func (s *Server) WSHub() *ws.Hub {
	return s.wsHub
}

// SSEBroadcaster returns the SSE broadcaster.
func (s *Server) SSEBroadcaster() *sse.Broadcaster {
	return s.sseBroadcaster
}

// Broker returns the event broker for publishing events.
func (s *Server) Broker() *events.Broker {
	return s.broker
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// StartTime returns the server start time for uptime calculations.
func (s *Server) StartTime() time.Time {
	return s.startTime
}
