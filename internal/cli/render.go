package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/JonMunkholm/querydesk/internal/remote"
	"github.com/JonMunkholm/querydesk/internal/workspace"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"
)

func validFormat(f string) error {
	switch f {
	case formatTable, formatJSON, formatCSV:
		return nil
	}
	return fmt.Errorf("unknown format %q (want table, json or csv)", f)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTables(w io.Writer, tables []remote.TableSummary, format string) error {
	switch format {
	case formatJSON:
		return renderJSON(w, tables)
	case formatCSV:
		res := remote.QueryResult{Columns: []string{"id", "name", "rows"}}
		for _, t := range tables {
			res.Rows = append(res.Rows, map[string]any{"id": t.ID, "name": t.Name, "rows": rowCount(t)})
		}
		if err := workspace.WriteCSV(w, res); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w)
		return err
	}

	if len(tables) == 0 {
		_, _ = fmt.Fprintln(w, "(no tables)")
		return nil
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Name", "Rows"})
	for _, tbl := range tables {
		t.AppendRow(table.Row{tbl.ID, tbl.Name, rowCount(tbl)})
	}
	t.Render()
	return nil
}

func rowCount(t remote.TableSummary) string {
	if t.RowCount == nil {
		return ""
	}
	return strconv.FormatInt(*t.RowCount, 10)
}

func renderSchema(w io.Writer, name string, schema remote.Schema, format string) error {
	if format == formatJSON {
		return renderJSON(w, schema)
	}

	t := newTable(w)
	t.SetTitle(name)
	t.AppendHeader(table.Row{"Column", "Type"})
	for _, c := range schema.Columns {
		t.AppendRow(table.Row{c.Name, c.Type})
	}
	t.Render()
	return nil
}

// renderResult writes a query result. Table output also shows the SQL the
// service generated and its summary.
func renderResult(w io.Writer, res remote.QueryResult, format string) error {
	switch format {
	case formatJSON:
		return renderJSON(w, res)
	case formatCSV:
		if err := workspace.WriteCSV(w, res); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w)
		return err
	}

	if res.SQL != "" {
		_, _ = fmt.Fprintf(w, "SQL: %s\n\n", res.SQL)
	}
	if len(res.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
	} else {
		t := newTable(w)
		header := make(table.Row, len(res.Columns))
		for i, c := range res.Columns {
			header[i] = c
		}
		t.AppendHeader(header)
		for _, row := range res.Rows {
			r := make(table.Row, len(res.Columns))
			for i, c := range res.Columns {
				r[i] = remote.FormatValue(row[c])
			}
			t.AppendRow(r)
		}
		t.Render()

		footer := fmt.Sprintf("(%d of %d rows", len(res.Rows), res.TotalRows)
		if res.Truncated {
			footer += ", truncated"
		}
		if res.ElapsedMs != nil {
			footer += fmt.Sprintf(", %.0f ms", *res.ElapsedMs)
		}
		_, _ = fmt.Fprintln(w, footer+")")
	}
	if res.Summary != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", res.Summary)
	}
	return nil
}
