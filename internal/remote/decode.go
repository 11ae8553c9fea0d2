package remote

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// decodeTables accepts either a bare array or a {"tables": [...]} envelope.
func decodeTables(body []byte) ([]TableSummary, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}

	var tables []TableSummary
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &tables); err != nil {
			return nil, err
		}
	case '{':
		var env struct {
			Tables *[]TableSummary `json:"tables"`
		}
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, err
		}
		if env.Tables == nil {
			return nil, errors.New(`object without "tables" field`)
		}
		tables = *env.Tables
	default:
		return nil, fmt.Errorf("unexpected body starting with %q", body[0])
	}

	if tables == nil {
		tables = []TableSummary{}
	}
	return tables, nil
}

// decodeSchema requires a "columns" list of objects or name/type pairs.
func decodeSchema(body []byte) (Schema, error) {
	var wire struct {
		Columns *[]Column `json:"columns"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return Schema{}, err
	}
	if wire.Columns == nil {
		return Schema{}, errors.New(`missing "columns" field`)
	}
	return Schema{Columns: *wire.Columns}, nil
}

// decodeUploadResult requires a non-empty table_name.
func decodeUploadResult(body []byte) (UploadResult, error) {
	var wire struct {
		TableName string       `json:"table_name"`
		RowCount  *json.Number `json:"row_count"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return UploadResult{}, err
	}
	if wire.TableName == "" {
		return UploadResult{}, errors.New(`missing "table_name" field`)
	}
	if wire.RowCount == nil {
		return UploadResult{}, errors.New(`missing "row_count" field`)
	}
	n, err := wire.RowCount.Int64()
	if err != nil {
		return UploadResult{}, fmt.Errorf("row_count: %w", err)
	}
	return UploadResult{TableName: wire.TableName, RowCount: n}, nil
}

// queryWire lists every field-name variant the service has used for a query response.
type queryWire struct {
	SQL             *string         `json:"sql"`
	GeneratedSQL    *string         `json:"generated_sql"`
	Rows            json.RawMessage `json:"rows"`
	Data            json.RawMessage `json:"data"`
	Columns         []string        `json:"columns"`
	TotalRows       *json.Number    `json:"total_rows"`
	ExecutionTimeMs *json.Number    `json:"execution_time_ms"`
	TimeMs          *json.Number    `json:"time_ms"`
	Truncated       bool            `json:"truncated"`
	Summary         *string         `json:"summary"`
	AISummary       *string         `json:"ai_summary"`
}

// decodeQueryResult normalizes a query response. The first present variant
// of each field wins: sql over generated_sql, rows over data,
// execution_time_ms over time_ms, summary over ai_summary.
func decodeQueryResult(body []byte) (QueryResult, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var wire queryWire
	if err := dec.Decode(&wire); err != nil {
		return QueryResult{}, err
	}

	rowsRaw := wire.Rows
	if isAbsent(rowsRaw) {
		rowsRaw = wire.Data
	}
	if isAbsent(rowsRaw) {
		return QueryResult{}, errors.New(`missing "rows" field`)
	}

	rows, err := decodeRows(rowsRaw, wire.Columns)
	if err != nil {
		return QueryResult{}, fmt.Errorf("rows: %w", err)
	}

	columns := wire.Columns
	if len(columns) == 0 {
		columns = deriveColumns(rows)
	}

	result := QueryResult{
		SQL:       firstString(wire.SQL, wire.GeneratedSQL),
		Columns:   columns,
		Rows:      rows,
		TotalRows: int64(len(rows)),
		Truncated: wire.Truncated,
		Summary:   firstString(wire.Summary, wire.AISummary),
	}

	if wire.TotalRows != nil {
		n, err := wire.TotalRows.Int64()
		if err != nil {
			return QueryResult{}, fmt.Errorf("total_rows: %w", err)
		}
		result.TotalRows = n
	}

	elapsed := wire.ExecutionTimeMs
	if elapsed == nil {
		elapsed = wire.TimeMs
	}
	if elapsed != nil {
		ms, err := elapsed.Float64()
		if err != nil {
			return QueryResult{}, fmt.Errorf("execution time: %w", err)
		}
		result.ElapsedMs = &ms
	}

	return result, nil
}

// decodeRows accepts row objects, or positional arrays when columns are given.
func decodeRows(raw json.RawMessage, columns []string) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var items []json.RawMessage
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}

	rows := make([]map[string]any, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		d := json.NewDecoder(bytes.NewReader(item))
		d.UseNumber()

		if len(item) > 0 && item[0] == '[' {
			if len(columns) == 0 {
				return nil, fmt.Errorf("row %d is positional but no columns were sent", i)
			}
			var cells []any
			if err := d.Decode(&cells); err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			row := make(map[string]any, len(columns))
			for j, col := range columns {
				if j < len(cells) {
					row[col] = cells[j]
				}
			}
			rows = append(rows, row)
			continue
		}

		var row map[string]any
		if err := d.Decode(&row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if row == nil {
			row = map[string]any{}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// deriveColumns falls back to the first row's keys, sorted, when the service
// sends no column list.
func deriveColumns(rows []map[string]any) []string {
	if len(rows) == 0 {
		return []string{}
	}
	cols := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func isAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || string(raw) == "null"
}

func firstString(candidates ...*string) string {
	for _, s := range candidates {
		if s != nil && *s != "" {
			return *s
		}
	}
	return ""
}
