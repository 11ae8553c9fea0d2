package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/querydesk/internal/remote"
	"github.com/JonMunkholm/querydesk/internal/workspace"
)

type fakeService struct {
	mu       sync.Mutex
	requests []string
	deleted  []string
	queries  []string
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	f := &fakeService{}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			f.requests = append(f.requests, r.Method+" "+r.URL.Path)
			f.mu.Unlock()
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/api/tables", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"tables":[{"table_id":"t1","table_name":"sales","row_count":3},{"id":"t2","name":"costs"}]}`)
	})
	r.Get("/api/tables/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") != "t1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"detail":"Table not found"}`)
			return
		}
		_, _ = io.WriteString(w, `[["region","VARCHAR"],["amount","DOUBLE"]]`)
	})
	r.Delete("/api/tables/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deleted = append(f.deleted, chi.URLParam(r, "id"))
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"ok":true}`)
	})
	r.Post("/api/query", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.queries = append(f.queries, req.Query)
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"sql":"SELECT region, SUM(amount) AS amount FROM sales GROUP BY region","rows":[{"region":"EU","amount":1.5},{"region":"Doe, John","amount":2}],"total_rows":2,"summary":"Two regions."}`)
	})
	r.Post("/api/upload", func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		_, _ = io.Copy(io.Discard, file)
		_, _ = io.WriteString(w, `{"table_name":"uploaded","row_count":2}`)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	t.Setenv("API_BASE_URL", srv.URL)
	t.Setenv("STORE_BACKEND", "file")
	t.Setenv("STORE_PATH", filepath.Join(t.TempDir(), "state.json"))
	t.Setenv("LOG_LEVEL", "error")
	return f
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTablesCommand(t *testing.T) {
	newFakeService(t)

	out, err := run(t, "tables")
	require.NoError(t, err)
	assert.Contains(t, out, "sales")
	assert.Contains(t, out, "costs")

	out, err = run(t, "tables", "--format", "csv")
	require.NoError(t, err)
	assert.Equal(t, "id,name,rows\nt1,sales,3\nt2,costs,\n", out)

	out, err = run(t, "tables", "--format", "json")
	require.NoError(t, err)
	var tables []remote.TableSummary
	require.NoError(t, json.Unmarshal([]byte(out), &tables))
	assert.Len(t, tables, 2)

	_, err = run(t, "tables", "--format", "yaml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestSchemaCommand(t *testing.T) {
	newFakeService(t)

	out, err := run(t, "schema", "t1")
	require.NoError(t, err)
	assert.Contains(t, out, "sales")
	assert.Contains(t, out, "region")
	assert.Contains(t, out, "DOUBLE")

	_, err = run(t, "schema", "missing")
	require.Error(t, err)
	assert.Equal(t, "TBL001", workspace.MapError(err).Code)
}

func TestQueryCommand(t *testing.T) {
	svc := newFakeService(t)

	out, err := run(t, "query", "amount", "by", "region", "--format", "csv")
	require.NoError(t, err)
	assert.Equal(t, "amount,region\n1.5,EU\n2,\"Doe, John\"\n", out)

	out, err = run(t, "query", "amount by region")
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT region")
	assert.Contains(t, out, "Two regions.")
	assert.Contains(t, out, "(2 of 2 rows)")

	svc.mu.Lock()
	assert.Equal(t, []string{"amount by region", "amount by region"}, svc.queries)
	svc.mu.Unlock()

	out, err = run(t, "history")
	require.NoError(t, err)
	assert.Equal(t, " 1. amount by region\n", out, "history survives across runs and is deduplicated")

	_, err = run(t, "history", "--clear")
	require.NoError(t, err)
	out, err = run(t, "history")
	require.NoError(t, err)
	assert.Equal(t, "(no history)\n", out)
}

func TestQueryCommand_Blank(t *testing.T) {
	newFakeService(t)

	_, err := run(t, "query", "   ")
	assert.ErrorIs(t, err, workspace.ErrEmptyQuery)
}

func TestUploadCommand(t *testing.T) {
	newFakeService(t)

	dir := t.TempDir()
	good := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(good, []byte("region,amount\nEU,1\nUS,2\n"), 0o600))

	out, err := run(t, "upload", good)
	require.NoError(t, err)
	assert.Equal(t, "Uploaded uploaded (2 rows)\n", out)

	bad := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(bad, []byte("hello"), 0o600))
	_, err = run(t, "upload", bad)
	assert.ErrorIs(t, err, workspace.ErrUnsupportedFileType)

	_, err = run(t, "upload", filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDeleteCommand_Yes(t *testing.T) {
	svc := newFakeService(t)

	out, err := run(t, "delete", "t1", "--yes")
	require.NoError(t, err)
	assert.Equal(t, "Deleted t1\n", out)

	svc.mu.Lock()
	assert.Equal(t, []string{"t1"}, svc.deleted)
	require.NotEmpty(t, svc.requests)
	assert.Equal(t, "DELETE /api/tables/t1", svc.requests[0], "no request precedes the confirmed delete")
	svc.mu.Unlock()
}

func TestErrorText(t *testing.T) {
	err := &remote.HTTPError{Op: "run query", Status: 500, Message: "boom"}
	assert.Equal(t, workspace.Describe(err), errorText(err))

	plain := io.ErrUnexpectedEOF
	assert.Equal(t, plain.Error(), errorText(plain))
}
