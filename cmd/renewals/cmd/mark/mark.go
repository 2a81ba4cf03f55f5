// Package mark provides the command that records follow-up state for a plan.
package mark

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/renewals/cmd/renewals/cmd/list"
	"github.com/agentstation/renewals/internal/appcontext"
	"github.com/agentstation/renewals/internal/cmd/output"
)

// NewCommand creates the mark command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mark <plan-id>",
		GroupID: "core",
		Short:   "Record follow-up state for a plan",
		Long: `Mark updates the follow-up record of one plan. Flags that are not given
keep their stored value, and the full record is written back.`,
		Example: `  renewals mark 5501-V --contacted
  renewals mark 5501-V --scheduled --notes "cita 12/03"
  renewals mark 5501-V --contacted=false`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: list.CompletePlanIDs(app),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := app.Session()
			if err != nil {
				return err
			}
			plan, err := session.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			f := plan.Record.FollowUp()
			flags := cmd.Flags()
			if flags.Changed("contacted") {
				f.Contacted, _ = flags.GetBool("contacted")
			}
			if flags.Changed("scheduled") {
				f.Scheduled, _ = flags.GetBool("scheduled")
			}
			if flags.Changed("notes") {
				f.Notes, _ = flags.GetString("notes")
			}

			if err := session.Edit(f); err != nil {
				return err
			}
			if err := session.Save(cmd.Context()); err != nil {
				session.Discard()
				return err
			}
			app.Logger().Info().Str("plan_id", string(f.PlanID)).Msg("Follow-up saved")

			format := output.DetectFormat(app.OutputFormat())
			if format == output.FormatTable {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Saved follow-up for %s (contacted=%t scheduled=%t)\n",
					f.PlanID, f.Contacted, f.Scheduled)
				return err
			}
			return output.NewFormatter(format).Format(cmd.OutOrStdout(), f)
		},
	}

	cmd.Flags().Bool("contacted", false, "owner has been contacted")
	cmd.Flags().Bool("scheduled", false, "a renewal appointment is scheduled")
	cmd.Flags().String("notes", "", "free-text notes (replaces stored notes)")
	return cmd
}
