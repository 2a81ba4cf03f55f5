// Package handlers provides the HTTP handlers of the renewals API.
package handlers

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/renewals"
	"github.com/agentstation/renewals/internal/server/events"
	"github.com/agentstation/renewals/internal/server/metrics"
	"github.com/agentstation/renewals/internal/server/sse"
	ws "github.com/agentstation/renewals/internal/server/websocket"
	"github.com/agentstation/renewals/pkg/constants"
	"github.com/agentstation/renewals/pkg/plans"
)

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	session        renewals.Session
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	metrics        *metrics.Metrics
	logger         *zerolog.Logger

	exportTitle string
	startTime   time.Time
	today       func() plans.Date
}

// Deps are the collaborators shared by every handler.
type Deps struct {
	Session        renewals.Session
	Broker         *events.Broker
	WSHub          *ws.Hub
	SSEBroadcaster *sse.Broadcaster
	Upgrader       websocket.Upgrader
	Metrics        *metrics.Metrics
	Logger         *zerolog.Logger
	ExportTitle    string
	StartTime      time.Time
	// Today is the clock used for open-ended date ranges. Defaults to plans.Today.
	Today func() plans.Date
}

// New creates a new Handlers instance.
func New(d Deps) *Handlers {
	h := &Handlers{
		session:        d.Session,
		broker:         d.Broker,
		wsHub:          d.WSHub,
		sseBroadcaster: d.SSEBroadcaster,
		upgrader:       d.Upgrader,
		metrics:        d.Metrics,
		logger:         d.Logger,
		exportTitle:    d.ExportTitle,
		startTime:      d.StartTime,
		today:          d.Today,
	}
	if h.exportTitle == "" {
		h.exportTitle = constants.DefaultExportTitle
	}
	if h.today == nil {
		h.today = plans.Today
	}
	if h.startTime.IsZero() {
		h.startTime = time.Now()
	}
	return h
}
