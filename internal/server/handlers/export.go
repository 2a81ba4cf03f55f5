package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/agentstation/renewals/internal/server/response"
	"github.com/agentstation/renewals/pkg/export"
)

// HandleExportPDF handles GET /api/v1/export.pdf.
// @Summary Export follow-up sheet
// @Description Printable PDF of the plans matching the same filters as /plans
// @Tags plans
// @Produce application/pdf
// @Param from query string false "First expiration date (YYYY-MM-DD)"
// @Param to query string false "Last expiration date (YYYY-MM-DD)"
// @Param service query []string false "Purchased service"
// @Success 200 {file} file
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 503 {object} response.Response{error=response.Error}
// @Router /api/v1/export.pdf [get].
func (h *Handlers) HandleExportPDF(w http.ResponseWriter, r *http.Request) {
	list, err := h.listPlans(r)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WritePDF(&buf, h.exportTitle, export.Project(list.Records)); err != nil {
		h.logger.Error().Err(err).Msg("PDF export failed")
		response.InternalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "seguimiento-"+h.today().String()+".pdf"))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
