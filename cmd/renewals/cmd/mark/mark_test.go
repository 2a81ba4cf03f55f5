package mark

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/renewals"
	"github.com/agentstation/renewals/internal/appcontext"
	"github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/logging"
	"github.com/agentstation/renewals/pkg/overlay"
	"github.com/agentstation/renewals/pkg/plans"
)

const exportCSV = `No de PB,Mascota,Propietario,Descripción,Cantidad,Nivel,Fecha Fin
5501-V,Firulais,Ana,Vacuna,1,Oro,2026-03-05
`

func setup(t *testing.T) (*appcontext.Mock, *overlay.MemoryStore) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(exportCSV), 0o644))

	store := overlay.NewMemoryStore(overlay.WithLogger(logging.NewNopLogger()))
	session, err := renewals.New(
		renewals.WithCatalogPath(path),
		renewals.WithOverlay(store),
		renewals.WithLogger(logging.NewNopLogger()),
	)
	require.NoError(t, err)

	return &appcontext.Mock{
		SessionFunc: func() (renewals.Session, error) { return session, nil },
		Format:      "json",
	}, store
}

func mark(t *testing.T, app *appcontext.Mock, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func stored(t *testing.T, store *overlay.MemoryStore) []plans.FollowUp {
	t.Helper()
	records, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	return records
}

func TestMarkCommand(t *testing.T) {
	t.Run("writes full record", func(t *testing.T) {
		app, store := setup(t)
		out, err := mark(t, app, "5501-v", "--contacted", "--notes", "llamar lunes")
		require.NoError(t, err)

		var f plans.FollowUp
		require.NoError(t, json.Unmarshal([]byte(out), &f))
		assert.Equal(t, plans.PlanID("5501-V"), f.PlanID)

		records := stored(t, store)
		require.Len(t, records, 1)
		assert.True(t, records[0].Contacted)
		assert.False(t, records[0].Scheduled)
		assert.Equal(t, "llamar lunes", records[0].Notes)
	})

	t.Run("unset flags keep stored values", func(t *testing.T) {
		app, store := setup(t)
		_, err := mark(t, app, "5501-V", "--contacted", "--notes", "ok")
		require.NoError(t, err)
		_, err = mark(t, app, "5501-V", "--scheduled")
		require.NoError(t, err)

		records := stored(t, store)
		require.Len(t, records, 1)
		assert.True(t, records[0].Contacted)
		assert.True(t, records[0].Scheduled)
		assert.Equal(t, "ok", records[0].Notes)
	})

	t.Run("explicit false clears", func(t *testing.T) {
		app, store := setup(t)
		_, err := mark(t, app, "5501-V", "--contacted")
		require.NoError(t, err)
		_, err = mark(t, app, "5501-V", "--contacted=false")
		require.NoError(t, err)
		assert.False(t, stored(t, store)[0].Contacted)
	})

	t.Run("unknown plan", func(t *testing.T) {
		app, store := setup(t)
		_, err := mark(t, app, "9999-X", "--contacted")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
		assert.Empty(t, stored(t, store))
	})

	t.Run("table output", func(t *testing.T) {
		app, _ := setup(t)
		app.Format = "table"
		out, err := mark(t, app, "5501-V", "--scheduled")
		require.NoError(t, err)
		assert.Contains(t, out, "Saved follow-up for 5501-V")
	})
}
