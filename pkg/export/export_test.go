package export

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/renewals/pkg/plans"
)

func records() []plans.MasterRecord {
	return []plans.MasterRecord{
		{Profile: plans.Profile{
			PlanID:  "A1",
			Pet:     "Señor Bigotes de la Peña",
			Owner:   "María José Hernández Castañeda",
			Expires: plans.NewDate(2026, time.January, 10),
		}, Notes: "llamar mañana"},
		{Profile: plans.Profile{
			PlanID:  "B2",
			Pet:     "Rex",
			Owner:   "Ana",
			Expires: plans.NewDate(2026, time.February, 1),
		}},
	}
}

func TestProject(t *testing.T) {
	in := records()
	rows := Project(in)

	require.Len(t, rows, 2)
	assert.Equal(t, "2026-01-10", rows[0].Expires)
	assert.Equal(t, "A1", rows[0].PlanID)
	assert.Equal(t, "Señor Bigotes d", rows[0].Pet)
	assert.Equal(t, 15, utf8.RuneCountInString(rows[0].Pet))
	assert.Equal(t, 25, utf8.RuneCountInString(rows[0].Owner))
	assert.True(t, utf8.ValidString(rows[0].Owner))
	assert.Empty(t, rows[0].Status)

	assert.Equal(t, "Rex", rows[1].Pet, "short values untouched")
	assert.Equal(t, "B2", rows[1].PlanID, "order preserved")

	assert.Equal(t, "Señor Bigotes de la Peña", in[0].Pet, "records not modified")
	assert.Empty(t, Project(nil))
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	rows := Project(records())
	for range 80 {
		rows = append(rows, rows[1])
	}

	require.NoError(t, WritePDF(&buf, "Lista de Gestión", rows))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, bytes.Count(buf.Bytes(), []byte("/Type /Page")), 2, "paginates")
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, Project(records())))

	out := buf.String()
	for _, h := range []string{"Vence", "Mascota", "Propietario"} {
		assert.Contains(t, strings.ToUpper(out), strings.ToUpper(h))
	}
	assert.Contains(t, out, "A1")
	assert.Contains(t, out, "2026-02-01")
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, "Lista de Gestión", Project(records())))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# Lista de Gestión"))
	assert.Contains(t, out, "Vence")
	assert.Contains(t, out, "|")
	assert.Contains(t, out, "A1")

	buf.Reset()
	require.NoError(t, WriteMarkdown(&buf, "Vacía", nil))
	assert.Contains(t, buf.String(), "No plans in range.")
}
