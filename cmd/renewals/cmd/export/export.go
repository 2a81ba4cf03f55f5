// Package export provides the command that prints the follow-up sheet.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/renewals/cmd/renewals/cmd/list"
	"github.com/agentstation/renewals/internal/appcontext"
	"github.com/agentstation/renewals/pkg/constants"
	"github.com/agentstation/renewals/pkg/errors"
	pdfexport "github.com/agentstation/renewals/pkg/export"
)

// NewCommand creates the export command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "export",
		GroupID: "core",
		Short:   "Write the follow-up sheet for a date range",
		Long: `Export writes the plans selected by the same flags as list as a printable
sheet. With --out the sheet is a PDF, or markdown when the file ends in .md;
otherwise a text table is written to stdout.`,
		Example: `  renewals export --out seguimiento.pdf
  renewals export --from 2026-03-01 --to 2026-03-31 --out marzo.pdf
  renewals export --service Vacuna
  renewals export --all --out seguimiento.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := list.FilterFromFlags(cmd, app.Today())
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
			rows := pdfexport.Project(records)

			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				return pdfexport.WriteTable(cmd.OutOrStdout(), rows)
			}

			title, _ := cmd.Flags().GetString("title")
			if title == "" {
				title = app.ServerConfig().ExportTitle
			}
			if title == "" {
				title = constants.DefaultExportTitle
			}
			render := pdfexport.WritePDF
			if ext := strings.ToLower(filepath.Ext(out)); ext == ".md" || ext == ".markdown" {
				render = pdfexport.WriteMarkdown
			}
			var buf bytes.Buffer
			if err := render(&buf, title, rows); err != nil {
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return errors.WrapIO("write", out, err)
			}

			app.Logger().Info().Str("path", out).Int("rows", len(rows)).Msg("Follow-up sheet written")
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d plans to %s\n", len(rows), out)
			return err
		},
	}

	list.AddFilterFlags(cmd)
	cmd.Flags().String("out", "", "file to write, PDF or .md (default: text table on stdout)")
	cmd.Flags().String("title", "", "sheet title")
	return cmd
}
