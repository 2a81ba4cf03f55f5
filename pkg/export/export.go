// Package export flattens master records into print-ready rows and renders
// them as the follow-up sheet handed to clinic staff.
package export

import (
	"github.com/agentstation/renewals/pkg/constants"
	"github.com/agentstation/renewals/pkg/plans"
)

// Header is the fixed column header of the printed sheet.
var Header = []string{"Vence", "No de PB", "Mascota", "Propietario", "Estatus/Notas"}

// PrintRow is one line of the printed sheet. Text fields are already
// truncated to the sheet's column widths.
type PrintRow struct {
	Expires string `json:"expires" yaml:"expires"`
	PlanID  string `json:"plan_id" yaml:"plan_id"`
	Pet     string `json:"pet" yaml:"pet"`
	Owner   string `json:"owner" yaml:"owner"`
	// Status is left blank for handwritten notes.
	Status string `json:"status" yaml:"status"`
}

// Cells returns the row in Header order.
func (r PrintRow) Cells() []string {
	return []string{r.Expires, r.PlanID, r.Pet, r.Owner, r.Status}
}

// Project flattens records in order. Truncation only affects the returned
// rows, never the records.
func Project(records []plans.MasterRecord) []PrintRow {
	rows := make([]PrintRow, len(records))
	for i, rec := range records {
		rows[i] = PrintRow{
			Expires: rec.Expires.String(),
			PlanID:  string(rec.PlanID),
			Pet:     truncate(rec.Pet, constants.PetNameWidth),
			Owner:   truncate(rec.Owner, constants.OwnerNameWidth),
		}
	}
	return rows
}

// truncate cuts s to at most n characters without splitting a rune.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
