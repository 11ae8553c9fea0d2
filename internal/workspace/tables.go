package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/JonMunkholm/querydesk/internal/remote"
)

// TableService is the subset of Service the registry uses.
type TableService interface {
	ListTables(ctx context.Context) ([]remote.TableSummary, error)
	GetSchema(ctx context.Context, tableID string) (remote.Schema, error)
	DeleteTable(ctx context.Context, tableID string) error
}

// TableRegistry caches the table list and at most one schema.
//
// Refreshes and schema fetches each draw a token from their own counter;
// a response is applied only if its token is still the latest.
type TableRegistry struct {
	svc       TableService
	notifier  Notifier
	onChange  func()
	onDeleted func(tableID string)

	mu            sync.Mutex
	tables        []remote.TableSummary
	tablesLoading bool
	tablesToken   uint64

	schema        *remote.Schema
	schemaOwner   string
	schemaLoading bool
	schemaToken   uint64
}

// NewTableRegistry creates an empty registry.
func NewTableRegistry(svc TableService, notifier Notifier, onChange func()) *TableRegistry {
	return &TableRegistry{
		svc:      svc,
		notifier: notifier,
		onChange: onChange,
		tables:   []remote.TableSummary{},
	}
}

// OnDeleted registers a hook run after a successful delete, before the
// follow-up refresh. The orchestrator uses it to clear a deleted selection.
func (r *TableRegistry) OnDeleted(fn func(tableID string)) {
	r.mu.Lock()
	r.onDeleted = fn
	r.mu.Unlock()
}

// RefreshTables replaces the cached list with the service's current one.
// A response overtaken by a newer refresh is discarded and nil is returned.
func (r *TableRegistry) RefreshTables(ctx context.Context) error {
	r.mu.Lock()
	r.tablesToken++
	token := r.tablesToken
	r.tablesLoading = true
	r.mu.Unlock()
	r.changed()

	tables, err := r.svc.ListTables(ctx)

	r.mu.Lock()
	if token != r.tablesToken {
		r.mu.Unlock()
		slog.Debug("discarding stale table list", "token", token, "error", err)
		return nil
	}
	r.tablesLoading = false
	if err == nil {
		r.tables = tables
	}
	r.mu.Unlock()
	r.changed()

	if err != nil {
		r.fail("Could not load tables", err)
		return err
	}
	slog.Debug("table list refreshed", "count", len(tables))
	return nil
}

// FetchSchema loads the schema of tableID and caches it as the one schema.
// Starting a fetch for a different table drops the cached schema first, so
// the cache never holds a schema for anything but the latest request.
// A failed fetch leaves the cache as it was when the fetch started.
func (r *TableRegistry) FetchSchema(ctx context.Context, tableID string) error {
	token := r.beginSchemaFetch(tableID)
	r.changed()
	return r.awaitSchema(ctx, tableID, token)
}

// beginSchemaFetch draws the token for a schema fetch of tableID and marks
// the schema as loading. Callers that pair the fetch with other state take
// the token inside their own critical section so both orders agree.
func (r *TableRegistry) beginSchemaFetch(tableID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemaToken++
	if r.schemaOwner != tableID {
		r.schema = nil
		r.schemaOwner = ""
	}
	r.schemaLoading = true
	return r.schemaToken
}

// awaitSchema runs the fetch drawn by beginSchemaFetch and applies the
// response only while token is still the latest.
func (r *TableRegistry) awaitSchema(ctx context.Context, tableID string, token uint64) error {
	schema, err := r.svc.GetSchema(ctx, tableID)

	r.mu.Lock()
	if token != r.schemaToken {
		r.mu.Unlock()
		slog.Debug("discarding stale schema", "table_id", tableID, "token", token, "error", err)
		return nil
	}
	r.schemaLoading = false
	if err == nil {
		r.schema = &schema
		r.schemaOwner = tableID
	}
	r.mu.Unlock()
	r.changed()

	if err != nil {
		r.fail("Could not load schema", err)
		return err
	}
	slog.Debug("schema loaded", "table_id", tableID, "columns", len(schema.Columns))
	return nil
}

// InvalidateSchema drops the cached schema and orphans any fetch in flight.
func (r *TableRegistry) InvalidateSchema() {
	r.mu.Lock()
	r.schemaToken++
	changed := r.schema != nil || r.schemaLoading
	r.schema = nil
	r.schemaOwner = ""
	r.schemaLoading = false
	r.mu.Unlock()

	if changed {
		r.changed()
	}
}

// DeleteTable removes tableID from the service, drops its schema if cached,
// runs the OnDeleted hook and refreshes the list. Confirmation is the
// caller's job. A failed follow-up refresh has its own notification and does
// not fail the delete.
func (r *TableRegistry) DeleteTable(ctx context.Context, tableID string) error {
	name := tableID
	if t, ok := r.Find(tableID); ok {
		name = t.Name
	}

	if err := r.svc.DeleteTable(ctx, tableID); err != nil {
		r.fail("Could not delete table", err)
		return err
	}
	slog.Info("table deleted", "table_id", tableID, "name", name)

	r.mu.Lock()
	if r.schemaOwner == tableID {
		r.schemaToken++
		r.schema = nil
		r.schemaOwner = ""
		r.schemaLoading = false
	}
	hook := r.onDeleted
	r.mu.Unlock()
	r.changed()

	if hook != nil {
		hook(tableID)
	}
	if r.notifier != nil {
		r.notifier.Push(KindSuccess, "Table deleted", fmt.Sprintf("Deleted %s", name))
	}

	_ = r.RefreshTables(ctx)
	return nil
}

// Tables returns a copy of the cached list in service order.
func (r *TableRegistry) Tables() []remote.TableSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]remote.TableSummary, len(r.tables))
	copy(out, r.tables)
	return out
}

// Find looks up a table in the cached list.
func (r *TableRegistry) Find(tableID string) (remote.TableSummary, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tables {
		if t.ID == tableID {
			return t, true
		}
	}
	return remote.TableSummary{}, false
}

// Schema returns the cached schema and the table it belongs to.
func (r *TableRegistry) Schema() (schema remote.Schema, owner string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.schema == nil {
		return remote.Schema{}, "", false
	}
	return *r.schema, r.schemaOwner, true
}

// Loading reports whether a refresh or schema fetch is outstanding.
func (r *TableRegistry) Loading() (tables, schema bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tablesLoading, r.schemaLoading
}

func (r *TableRegistry) fail(title string, err error) {
	slog.Warn(title, "error", err)
	if r.notifier != nil {
		r.notifier.Push(KindError, title, Describe(err))
	}
}

func (r *TableRegistry) changed() {
	if r.onChange != nil {
		r.onChange()
	}
}
