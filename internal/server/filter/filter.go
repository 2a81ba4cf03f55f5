// Package filter parses plan query parameters into a query.Filter.
package filter

import (
	"net/http"
	"strings"

	"github.com/agentstation/renewals/pkg/constants"
	"github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/plans"
	"github.com/agentstation/renewals/pkg/query"
)

// Query parameter names.
const (
	ParamFrom    = "from"
	ParamTo      = "to"
	ParamService = "service"
	ParamID      = "id"
)

// DefaultWindowDays is the length of the window given to a lone from bound.
var DefaultWindowDays = int(constants.DefaultQueryWindow.Hours() / 24)

// ParsePlanFilter reads from, to, service and id from the request.
//
// With neither bound there is no date condition. A lone from gets the
// default window after it; a lone to starts the range at today. service may
// repeat; each value is one literal service description, commas included. A
// malformed date is a ValidationError.
func ParsePlanFilter(r *http.Request, today plans.Date) (query.Filter, error) {
	q := r.URL.Query()

	f := query.Filter{
		ID:       strings.TrimSpace(q.Get(ParamID)),
		Services: parseList(q[ParamService]),
	}

	from, err := parseDate(ParamFrom, q.Get(ParamFrom))
	if err != nil {
		return f, err
	}
	to, err := parseDate(ParamTo, q.Get(ParamTo))
	if err != nil {
		return f, err
	}

	switch {
	case from.IsZero() && to.IsZero():
		return f, nil
	case to.IsZero():
		to = from.AddDays(DefaultWindowDays)
	case from.IsZero():
		from = today
	}

	rng, err := query.NewDateRange(from, to)
	if err != nil {
		return f, err
	}
	f.Range = rng
	return f, nil
}

func parseDate(name, raw string) (plans.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return plans.Date{}, nil
	}
	d, err := plans.ParseDate(raw)
	if err != nil {
		return plans.Date{}, errors.NewValidationError(name, raw, "invalid date, expected YYYY-MM-DD")
	}
	return d, nil
}

// parseList trims each value and drops empty ones.
func parseList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
