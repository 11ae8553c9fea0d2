package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// TableSummary describes a registered table as listed by the service.
type TableSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RowCount *int64 `json:"row_count,omitempty"`
}

// UnmarshalJSON accepts numeric or string ids and the table_id/table_name
// aliases some service versions emit.
func (t *TableSummary) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID        json.RawMessage `json:"id"`
		TableID   json.RawMessage `json:"table_id"`
		Name      string          `json:"name"`
		TableName string          `json:"table_name"`
		RowCount  *json.Number    `json:"row_count"`
		Rows      *json.Number    `json:"rows"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	idRaw := wire.ID
	if len(idRaw) == 0 || string(idRaw) == "null" {
		idRaw = wire.TableID
	}
	id, err := scalarString(idRaw)
	if err != nil {
		return fmt.Errorf("table id: %w", err)
	}

	name := wire.Name
	if name == "" {
		name = wire.TableName
	}
	if id == "" {
		id = name
	}
	if id == "" {
		return fmt.Errorf("table entry has neither id nor name")
	}
	if name == "" {
		name = id
	}

	count := wire.RowCount
	if count == nil {
		count = wire.Rows
	}
	var rowCount *int64
	if count != nil {
		n, err := count.Int64()
		if err != nil {
			return fmt.Errorf("row count: %w", err)
		}
		rowCount = &n
	}

	*t = TableSummary{ID: id, Name: name, RowCount: rowCount}
	return nil
}

// scalarString renders a JSON string or number as a plain string.
func scalarString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// Column is one name/type pair of a table schema.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// UnmarshalJSON accepts both {"name","type"} objects and ["name","type"] pairs.
func (c *Column) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var pair []string
		if err := json.Unmarshal(data, &pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("column pair has %d elements, want 2", len(pair))
		}
		*c = Column{Name: pair[0], Type: pair[1]}
		return nil
	}

	type plain Column
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Name == "" {
		return fmt.Errorf("column without name")
	}
	*c = Column(p)
	return nil
}

// Schema is the ordered column list of one table.
type Schema struct {
	Columns []Column `json:"columns"`
}

// File is a dataset handed to the workspace for upload.
// Size is the byte length when known; zero or negative means unknown,
// in which case no progress is reported.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// UploadResult is the service's acknowledgement of a stored dataset.
type UploadResult struct {
	TableName string `json:"table_name"`
	RowCount  int64  `json:"row_count"`
}

// QueryResult is a normalized query response. Row values keep the JSON
// scalar types; numbers are json.Number so they print exactly as sent.
type QueryResult struct {
	SQL       string           `json:"sql,omitempty"`
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	TotalRows int64            `json:"total_rows"`
	ElapsedMs *float64         `json:"elapsed_ms,omitempty"`
	Truncated bool             `json:"truncated"`
	Summary   string           `json:"summary,omitempty"`
}

// FormatValue stringifies a result cell. Absent and null cells are empty.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", val)
	}
}
