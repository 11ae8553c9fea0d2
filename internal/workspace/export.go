package workspace

import (
	"io"
	"strings"

	"github.com/JonMunkholm/querydesk/internal/remote"
)

// ExportCSV renders a result as CSV text: the header row, then one line per
// row, joined by "\n" with no trailing newline. Cells are stringified with
// remote.FormatValue so absent and null cells are empty.
func ExportCSV(res remote.QueryResult) string {
	var b strings.Builder
	_ = WriteCSV(&b, res)
	return b.String()
}

// WriteCSV streams the same output as ExportCSV to w.
func WriteCSV(w io.Writer, res remote.QueryResult) error {
	if _, err := io.WriteString(w, csvLine(res.Columns)); err != nil {
		return err
	}

	cells := make([]string, len(res.Columns))
	for _, row := range res.Rows {
		for i, col := range res.Columns {
			cells[i] = remote.FormatValue(row[col])
		}
		if _, err := io.WriteString(w, "\n"+csvLine(cells)); err != nil {
			return err
		}
	}
	return nil
}

func csvLine(cells []string) string {
	// a blank line would be skipped by CSV readers
	if len(cells) == 1 && cells[0] == "" {
		return `""`
	}
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = escapeCSV(c)
	}
	return strings.Join(escaped, ",")
}

// escapeCSV quotes s if it contains a comma, quote, CR or LF.
func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
