package list

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/renewals"
	"github.com/agentstation/renewals/internal/appcontext"
	"github.com/agentstation/renewals/internal/cmd/output"
	"github.com/agentstation/renewals/pkg/errors"
)

// NewShowCommand creates the show command.
func NewShowCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "show <plan-id>",
		GroupID: "core",
		Short:   "Show one plan with its services and follow-up",
		Example: `  renewals show 5501-V
  renewals show " 5501-v "   # identifiers are normalized`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: CompletePlanIDs(app),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := app.Session()
			if err != nil {
				return err
			}
			plan, err := session.Lookup(cmd.Context(), args[0])
			if errors.IsLookupMiss(err) {
				fmt.Fprintf(cmd.OutOrStdout(), "No plan found with ID %q\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}

			formatter := output.NewFormatter(output.DetectFormat(app.OutputFormat()))
			return formatter.Format(cmd.OutOrStdout(), Detail(*plan))
		},
	}
}

// Detail renders one plan as a property table followed by its services.
type Detail renewals.Plan

// TableData implements output.Tabular.
func (d Detail) TableData() output.Data {
	rec := d.Record
	data := output.Data{
		Headers:         []string{"Property", "Value"},
		ColumnAlignment: []output.Align{output.AlignLeft, output.AlignLeft},
		Rows: [][]string{
			{"Plan ID", string(rec.PlanID)},
			{"Pet", rec.Pet},
			{"Owner", rec.Owner},
			{"Level", rec.Level},
			{"Expires", rec.Expires.String()},
			{"Contacted", fmt.Sprint(rec.Contacted)},
			{"Scheduled", fmt.Sprint(rec.Scheduled)},
			{"Notes", rec.Notes},
		},
	}
	for _, item := range d.Items {
		data.Rows = append(data.Rows, []string{"Service", item.Service + " x" + item.Quantity.String()})
	}
	return data
}

// CompletePlanIDs completes the first argument with catalog plan identifiers.
func CompletePlanIDs(app appcontext.Interface) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		session, err := app.Session()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		cat, err := session.Catalog(cmd.Context())
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		prefix := string(session.Normalizer().Normalize(toComplete))
		var ids []string
		for _, p := range cat.Profiles {
			if strings.HasPrefix(string(p.PlanID), prefix) {
				ids = append(ids, string(p.PlanID))
			}
		}
		return ids, cobra.ShellCompDirectiveNoFileComp
	}
}
