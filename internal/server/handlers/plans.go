package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agentstation/renewals/internal/server/filter"
	"github.com/agentstation/renewals/internal/server/response"
	"github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/logging"
	"github.com/agentstation/renewals/pkg/plans"
	"github.com/agentstation/renewals/pkg/query"
)

// PlanList is the body of GET /plans.
type PlanList struct {
	Records []plans.MasterRecord `json:"records"`
	Count   int                  `json:"count"`
	Total   int                  `json:"total"`
	Filter  query.Filter         `json:"filter"`
	// OverlayAvailable is false when follow-ups could not be read and every
	// record shows as untouched.
	OverlayAvailable bool      `json:"overlay_available"`
	OverlayError     string    `json:"overlay_error,omitempty"`
	LoadedAt         time.Time `json:"loaded_at"`
}

// HandleListPlans handles GET /api/v1/plans.
// @Summary List plans
// @Description Reconciled plans filtered by expiration date, service and identifier
// @Tags plans
// @Produce json
// @Param from query string false "First expiration date (YYYY-MM-DD)"
// @Param to query string false "Last expiration date (YYYY-MM-DD)"
// @Param service query []string false "Purchased service, exact description (repeatable)"
// @Param id query string false "Plan identifier"
// @Success 200 {object} response.Response{data=PlanList}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 503 {object} response.Response{error=response.Error}
// @Router /api/v1/plans [get].
func (h *Handlers) HandleListPlans(w http.ResponseWriter, r *http.Request) {
	list, err := h.listPlans(r)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, list)
}

// listPlans builds the filtered view shared by the list and export endpoints.
func (h *Handlers) listPlans(r *http.Request) (*PlanList, error) {
	f, err := filter.ParsePlanFilter(r, h.today())
	if err != nil {
		return nil, err
	}

	ctx := r.Context()
	view, err := h.session.Master(ctx)
	if err != nil {
		logging.FromContext(ctx).Error().Err(err).Msg("Catalog unavailable")
		return nil, err
	}
	n := h.session.Normalizer()
	f.Normalizer = &n
	records := f.Apply(view.Records, view.Items)

	list := &PlanList{
		Records:          records,
		Count:            len(records),
		Total:            len(view.Records),
		Filter:           f,
		OverlayAvailable: view.OverlayErr == nil,
		LoadedAt:         view.LoadedAt,
	}
	if view.OverlayErr != nil {
		list.OverlayError = view.OverlayErr.Error()
	}
	return list, nil
}

// HandleGetPlan handles GET /api/v1/plans/{id}.
// @Summary Get plan
// @Description One plan with its purchased services
// @Tags plans
// @Produce json
// @Param id path string true "Plan identifier"
// @Success 200 {object} response.Response{data=renewals.Plan}
// @Failure 404 {object} response.Response{error=response.Error}
// @Failure 503 {object} response.Response{error=response.Error}
// @Router /api/v1/plans/{id} [get].
func (h *Handlers) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := logging.WithPlan(r.Context(), id)
	plan, err := h.session.Lookup(ctx, id)
	if err != nil {
		if errors.IsLookupMiss(err) {
			logging.FromContext(ctx).Debug().Msg("Plan lookup missed")
			response.NotFound(w, "Plan not found", err.Error())
			return
		}
		logging.FromContext(ctx).Error().Err(err).Msg("Plan lookup failed")
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, plan)
}

// HandleListServices handles GET /api/v1/services.
// @Summary List services
// @Description Distinct service descriptions in the catalog, sorted
// @Tags plans
// @Produce json
// @Success 200 {object} response.Response{data=[]string}
// @Failure 503 {object} response.Response{error=response.Error}
// @Router /api/v1/services [get].
func (h *Handlers) HandleListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.session.Services(r.Context())
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, services)
}
