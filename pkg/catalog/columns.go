package catalog

import "strings"

// Column is a canonical catalog column.
type Column string

// Canonical columns. Every one of them is required.
const (
	ColPlanID   Column = "plan_id"
	ColPet      Column = "pet"
	ColOwner    Column = "owner"
	ColService  Column = "service"
	ColQuantity Column = "quantity"
	ColLevel    Column = "level"
	ColExpires  Column = "expires"
)

// RequiredColumns lists the columns every export must provide, in report order.
var RequiredColumns = []Column{ColPlanID, ColPet, ColOwner, ColService, ColQuantity, ColLevel, ColExpires}

// DefaultRenames maps source header names to canonical columns. Keys are
// matched after trimming and lowercasing the header cell.
var DefaultRenames = map[string]Column{
	// Spanish export headers
	"no de pb":             ColPlanID,
	"mascota":              ColPet,
	"propietario":          ColOwner,
	"descripción":          ColService,
	"descripcion":          ColService,
	"cantidad":             ColQuantity,
	"nivel":                ColLevel,
	"nivel de pb":          ColLevel,
	"fecha fin":            ColExpires,
	"fecha de vencimiento": ColExpires,

	// English aliases
	"plan id":             ColPlanID,
	"plan identifier":     ColPlanID,
	"pet name":            ColPet,
	"owner name":          ColOwner,
	"service description": ColService,
	"service quantity":    ColQuantity,
	"level":               ColLevel,
	"plan level":          ColLevel,
	"end-date":            ColExpires,
	"expiration date":     ColExpires,
}

// headerKey is the lookup form of a header cell.
func headerKey(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

// mapHeader resolves each canonical column to its index in header. Canonical
// names themselves are always accepted. The first matching header wins.
func mapHeader(header []string, renames map[string]Column) (map[Column]int, []string) {
	idx := make(map[Column]int, len(RequiredColumns))
	for i, h := range header {
		key := headerKey(h)
		col, ok := renames[key]
		if !ok {
			col = Column(key)
		}
		if _, seen := idx[col]; !seen {
			idx[col] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, string(col))
		}
	}
	return idx, missing
}
