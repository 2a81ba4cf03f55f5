package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/renewals/pkg/errors"
)

type row struct {
	PlanID string `json:"plan_id" yaml:"plan_id"`
	Pet    string `json:"pet" yaml:"pet"`
}

type rows []row

func (r rows) TableData() Data {
	d := Data{Headers: Headers("plan_id", "pet")}
	for _, x := range r {
		d.Rows = append(d.Rows, []string{x.PlanID, x.Pet})
	}
	return d
}

func TestFormatters(t *testing.T) {
	data := rows{{PlanID: "5501-V", Pet: "Firulais"}}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewFormatter(FormatJSON).Format(&buf, data))
		assert.Contains(t, buf.String(), `"plan_id": "5501-V"`)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewFormatter(FormatYAML).Format(&buf, data))
		assert.Contains(t, buf.String(), "plan_id: 5501-V")
	})

	t.Run("table uses TableData", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewFormatter(FormatTable).Format(&buf, data))
		out := buf.String()
		assert.Contains(t, strings.ToUpper(out), "PLAN ID")
		assert.Contains(t, out, "Firulais")
	})

	t.Run("table falls back to json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewFormatter(FormatTable).Format(&buf, map[string]int{"saved": 1}))
		assert.Contains(t, buf.String(), `"saved": 1`)
	})

	t.Run("aligned data", func(t *testing.T) {
		var buf bytes.Buffer
		d := Data{
			Headers:         []string{"Service", "Qty"},
			Rows:            [][]string{{"Baño", "2"}},
			ColumnAlignment: []Align{AlignLeft, AlignRight},
		}
		require.NoError(t, NewFormatter(FormatTable).Format(&buf, d))
		assert.Contains(t, buf.String(), "Baño")
	})
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", "yaml", ""} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("xml")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
}

func TestHeadersAndCheck(t *testing.T) {
	assert.Equal(t, []string{"Plan Id", "Has Follow Up"}, Headers("plan_id", "has_follow_up"))
	assert.Equal(t, "✓", Check(true))
	assert.Empty(t, Check(false))
}
