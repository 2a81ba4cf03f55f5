package export

import (
	"io"

	md "github.com/nao1215/markdown"
)

// WriteMarkdown renders rows as a markdown document: title heading followed
// by one table with the sheet header.
func WriteMarkdown(w io.Writer, title string, rows []PrintRow) error {
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = r.Cells()
	}
	doc := md.NewMarkdown(w).H1(title)
	if len(rows) == 0 {
		doc.PlainText("No plans in range.")
	} else {
		doc.Table(md.TableSet{Header: Header, Rows: cells})
	}
	return doc.Build()
}
