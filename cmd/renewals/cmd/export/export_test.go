package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/renewals"
	"github.com/agentstation/renewals/internal/appcontext"
	"github.com/agentstation/renewals/pkg/logging"
	"github.com/agentstation/renewals/pkg/overlay"
	"github.com/agentstation/renewals/pkg/plans"
)

const exportCSV = `No de PB,Mascota,Propietario,Descripción,Cantidad,Nivel,Fecha Fin
5501-V,Firulais,Ana,Vacuna,1,Oro,2026-03-05
5502-V,Michi,Beto,Baño,1,Plata,2026-09-20
`

func newApp(t *testing.T) *appcontext.Mock {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(exportCSV), 0o644))
	session, err := renewals.New(
		renewals.WithCatalogPath(path),
		renewals.WithOverlay(overlay.NewMemoryStore()),
		renewals.WithLogger(logging.NewNopLogger()),
	)
	require.NoError(t, err)
	return &appcontext.Mock{
		SessionFunc: func() (renewals.Session, error) { return session, nil },
		TodayValue:  plans.MustParseDate("2026-03-01"),
	}
}

func TestExportCommand(t *testing.T) {
	t.Run("pdf file", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "sheet.pdf")
		cmd := NewCommand(newApp(t))
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"--out", out})
		require.NoError(t, cmd.Execute())

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
		assert.Contains(t, buf.String(), "Wrote 1 plans")
	})

	t.Run("markdown file", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "sheet.md")
		cmd := NewCommand(newApp(t))
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"--all", "--out", out, "--title", "Marzo"})
		require.NoError(t, cmd.Execute())

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(data), "# Marzo")
		assert.Contains(t, string(data), "5502-V")
		assert.Contains(t, string(data), "Propietario")
	})

	t.Run("table on stdout", func(t *testing.T) {
		cmd := NewCommand(newApp(t))
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"--all"})
		require.NoError(t, cmd.Execute())
		assert.Contains(t, buf.String(), "Firulais")
		assert.Contains(t, buf.String(), "Michi")
	})

	t.Run("unwritable path", func(t *testing.T) {
		cmd := NewCommand(newApp(t))
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"--out", filepath.Join(t.TempDir(), "missing", "x.pdf")})
		assert.Error(t, cmd.Execute())
	})
}
