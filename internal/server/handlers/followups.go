package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/agentstation/renewals/internal/server/response"
	"github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/logging"
	"github.com/agentstation/renewals/pkg/plans"
)

// maxSaveBody bounds the PUT /follow-ups request body.
const maxSaveBody = 1 << 20

// SaveRequest is the body of PUT /follow-ups. Every record is a full
// replacement of the stored follow-up for its plan.
type SaveRequest struct {
	FollowUps []plans.FollowUp `json:"follow_ups"`
}

// SaveResult is the body returned after a successful save.
type SaveResult struct {
	Saved int      `json:"saved"`
	IDs   []string `json:"ids"`
}

// HandleSaveFollowUps handles PUT /api/v1/follow-ups.
// @Summary Save follow-ups
// @Description Store a batch of full follow-up records. The batch is stored whole or not at all.
// @Tags follow-ups
// @Accept json
// @Produce json
// @Param body body SaveRequest true "Follow-up records"
// @Success 200 {object} response.Response{data=SaveResult}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 502 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/follow-ups [put].
func (h *Handlers) HandleSaveFollowUps(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSaveRequest(io.LimitReader(r.Body, maxSaveBody))
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	n := h.session.Normalizer()
	for i, f := range req.FollowUps {
		req.FollowUps[i].PlanID = n.Normalize(string(f.PlanID))
		if req.FollowUps[i].PlanID == "" {
			response.BadRequest(w, "Every follow-up needs a plan_id", "")
			return
		}
	}

	ctx := logging.WithOperation(r.Context(), "save_follow_ups")
	if err := h.session.SaveRecords(ctx, req.FollowUps); err != nil {
		logging.FromContext(ctx).Error().Err(err).Int("records", len(req.FollowUps)).Msg("Save failed")
		response.ErrorFromType(w, err)
		return
	}

	response.OK(w, SaveResult{Saved: len(req.FollowUps), IDs: plans.IDs(req.FollowUps)})
}

// decodeSaveRequest accepts either {"follow_ups": [...]} or a bare array.
func decodeSaveRequest(body io.Reader) (*SaveRequest, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.NewValidationError("body", nil, err.Error())
	}

	var req SaveRequest
	if len(raw) > 0 && raw[0] == '[' {
		err = json.Unmarshal(raw, &req.FollowUps)
	} else {
		err = json.Unmarshal(raw, &req)
	}
	if err != nil {
		return nil, errors.NewValidationError("body", nil, "invalid JSON: "+err.Error())
	}
	if len(req.FollowUps) == 0 {
		return nil, errors.NewValidationError("follow_ups", nil, "at least one record is required")
	}
	return &req, nil
}
