// Package list provides the read-only commands: list, show and services.
package list

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/renewals/internal/appcontext"
	"github.com/agentstation/renewals/internal/cmd/output"
	"github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/plans"
	"github.com/agentstation/renewals/pkg/query"
)

// NewCommand creates the list command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		GroupID: "core",
		Short:   "List plans expiring in a date range",
		Long: `List shows every plan expiring in the selected range joined with its
follow-up state. Without --from or --to the range is today through the
next 30 days.`,
		Example: `  renewals list                                  # Next 30 days
  renewals list --from 2026-03-01 --to 2026-03-31
  renewals list --service "Vacuna Rabia" --all     # Any date, one service
  renewals list -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := FilterFromFlags(cmd, app.Today())
			if err != nil {
				return err
			}
			session, err := app.Session()
			if err != nil {
				return err
			}
			records, err := session.Query(cmd.Context(), f)
			if err != nil {
				return err
			}
			app.Logger().Debug().Int("count", len(records)).Msg("Plans listed")

			formatter := output.NewFormatter(output.DetectFormat(app.OutputFormat()))
			return formatter.Format(cmd.OutOrStdout(), Records(records))
		},
	}

	AddFilterFlags(cmd)
	return cmd
}

// AddFilterFlags registers the range and service flags shared with export.
func AddFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "first expiration date (YYYY-MM-DD or DD/MM/YYYY)")
	cmd.Flags().String("to", "", "last expiration date (YYYY-MM-DD or DD/MM/YYYY)")
	cmd.Flags().StringArray("service", nil, "keep plans with this exact service (repeatable)")
	cmd.Flags().Bool("all", false, "ignore expiration dates")
}

// FilterFromFlags builds a query filter. With neither bound the default
// window from today applies; a single bound uses the default window length.
func FilterFromFlags(cmd *cobra.Command, today plans.Date) (query.Filter, error) {
	var f query.Filter
	fromRaw, err := cmd.Flags().GetString("from")
	if err != nil {
		return f, err
	}
	toRaw, err := cmd.Flags().GetString("to")
	if err != nil {
		return f, err
	}
	services, err := cmd.Flags().GetStringArray("service")
	if err != nil {
		return f, err
	}
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return f, err
	}

	f.Services = services
	if all {
		if fromRaw != "" || toRaw != "" {
			return f, errors.NewValidationError("all", true, "--all cannot be combined with --from or --to")
		}
		return f, nil
	}

	def := query.DefaultRange(today)
	from, to := def.From, def.To
	window := int(to.Time().Sub(from.Time()).Hours() / 24)

	if fromRaw != "" {
		d, err := plans.ParseDate(fromRaw)
		if err != nil {
			return f, errors.WrapValidation("from", err)
		}
		from, to = d, d.AddDays(window)
	}
	if toRaw != "" {
		d, err := plans.ParseDate(toRaw)
		if err != nil {
			return f, errors.WrapValidation("to", err)
		}
		to = d
	}

	r, err := query.NewDateRange(from, to)
	if err != nil {
		return f, err
	}
	f.Range = r
	return f, nil
}

// Records renders master records as a table.
type Records []plans.MasterRecord

// TableData implements output.Tabular.
func (r Records) TableData() output.Data {
	data := output.Data{
		Headers: output.Headers("expires", "plan_id", "pet", "owner", "level", "contacted", "scheduled", "notes"),
		ColumnAlignment: []output.Align{
			output.AlignLeft, output.AlignLeft, output.AlignLeft, output.AlignLeft,
			output.AlignLeft, output.AlignCenter, output.AlignCenter, output.AlignLeft,
		},
	}
	for _, rec := range r {
		data.Rows = append(data.Rows, []string{
			rec.Expires.String(),
			string(rec.PlanID),
			rec.Pet,
			rec.Owner,
			rec.Level,
			output.Check(rec.Contacted),
			output.Check(rec.Scheduled),
			rec.Notes,
		})
	}
	return data
}
