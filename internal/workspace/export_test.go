package workspace

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/querydesk/internal/remote"
)

func TestExportCSV(t *testing.T) {
	res := remote.QueryResult{
		Columns: []string{"name", "note", "total"},
		Rows: []map[string]any{
			{"name": "Doe, John", "note": `said "hi"`, "total": json.Number("12.50")},
			{"name": "plain", "note": nil, "total": true},
			{"name": "multi\nline"},
		},
	}

	want := strings.Join([]string{
		"name,note,total",
		`"Doe, John","said ""hi""",12.50`,
		"plain,,true",
		"\"multi\nline\",,",
	}, "\n")

	assert.Equal(t, want, ExportCSV(res))
}

func TestExportCSV_RoundTrip(t *testing.T) {
	res := remote.QueryResult{
		Columns: []string{"customer", "comment", "amount"},
		Rows: []map[string]any{
			{"customer": "Doe, John", "comment": `He said "no"`, "amount": json.Number("-3")},
			{"customer": "Smith", "comment": "line one\nline two", "amount": json.Number("0")},
			{"customer": "", "comment": "", "amount": nil},
		},
	}

	records, err := csv.NewReader(strings.NewReader(ExportCSV(res))).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 4)
	assert.Equal(t, res.Columns, records[0])
	for i, row := range res.Rows {
		for j, col := range res.Columns {
			assert.Equal(t, remote.FormatValue(row[col]), records[i+1][j], "row %d col %s", i, col)
		}
	}
}

func TestExportCSV_SingleEmptyColumnSurvives(t *testing.T) {
	res := remote.QueryResult{
		Columns: []string{"v"},
		Rows:    []map[string]any{{"v": "x"}, {"v": nil}, {"v": "y"}},
	}

	out := ExportCSV(res)
	assert.Equal(t, "v\nx\n\"\"\ny", out)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"v"}, {"x"}, {""}, {"y"}}, records)
}

func TestExportCSV_HeaderOnly(t *testing.T) {
	res := remote.QueryResult{Columns: []string{"a", "b"}, Rows: []map[string]any{}}
	assert.Equal(t, "a,b", ExportCSV(res))
}
