package list

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/renewals/internal/appcontext"
	"github.com/agentstation/renewals/internal/cmd/output"
)

// NewServicesCommand creates the services command.
func NewServicesCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "services",
		GroupID: "core",
		Short:   "List the service descriptions found in the export",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := app.Session()
			if err != nil {
				return err
			}
			services, err := session.Services(cmd.Context())
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			if format == output.FormatTable {
				data := output.Data{Headers: []string{"Service"}}
				for _, s := range services {
					data.Rows = append(data.Rows, []string{s})
				}
				return output.NewFormatter(format).Format(cmd.OutOrStdout(), data)
			}
			return output.NewFormatter(format).Format(cmd.OutOrStdout(), services)
		},
	}
}
