package export

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// WriteTable renders rows as a text table with the sheet header.
func WriteTable(w io.Writer, rows []PrintRow) error {
	table := tablewriter.NewTable(w)

	headers := make([]any, len(Header))
	for i, h := range Header {
		headers[i] = h
	}
	table.Header(headers...)

	for _, row := range rows {
		cells := row.Cells()
		data := make([]any, len(cells))
		for i, c := range cells {
			data[i] = c
		}
		if err := table.Append(data...); err != nil {
			return err
		}
	}
	return table.Render()
}
