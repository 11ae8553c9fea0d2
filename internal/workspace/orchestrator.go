package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/querydesk/internal/remote"
)

// Options tunes an Orchestrator. Zero values select the defaults.
type Options struct {
	MaxFileSize int64

	// AfterFunc and Clock drive notification expiry; tests replace them.
	AfterFunc AfterFuncFunc
	Clock     func() time.Time
}

// Orchestrator owns the workspace: the selected table, and through its
// components the table list, schema, query result, history, upload state
// and notifications. All externally triggered transitions go through it.
type Orchestrator struct {
	changes *Broadcaster
	notes   *NotificationQueue
	history *HistoryStore
	uploads *UploadCoordinator
	tables  *TableRegistry
	queries *QueryRunner

	startOnce sync.Once
	startErr  error

	mu       sync.Mutex
	selected *remote.TableSummary
}

// New wires the components around svc and store.
func New(svc Service, store KeyValueStore, opts Options) *Orchestrator {
	o := &Orchestrator{changes: NewBroadcaster()}
	changed := o.changes.Broadcast

	queueOpts := []QueueOption{WithOnChange(changed)}
	if opts.AfterFunc != nil {
		queueOpts = append(queueOpts, WithAfterFunc(opts.AfterFunc))
	}
	if opts.Clock != nil {
		queueOpts = append(queueOpts, WithClock(opts.Clock))
	}
	o.notes = NewNotificationQueue(queueOpts...)

	maxSize := opts.MaxFileSize
	if maxSize == 0 {
		maxSize = DefaultMaxFileSize
	}

	o.history = NewHistoryStore(store, DefaultHistoryCapacity, o.notes, changed)
	o.uploads = NewUploadCoordinator(svc, o.notes, maxSize, changed)
	o.tables = NewTableRegistry(svc, o.notes, changed)
	o.queries = NewQueryRunner(svc, o.history, o.notes, changed)

	o.tables.OnDeleted(o.tableDeleted)
	return o
}

// Start loads the table list and the query history concurrently.
// Only the first call does any work; later calls return its result.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.startOnce.Do(func() {
		var g errgroup.Group
		g.Go(func() error { return o.tables.RefreshTables(ctx) })
		g.Go(func() error { return o.history.Load(ctx) })
		o.startErr = g.Wait()
		slog.Debug("workspace started", "error", o.startErr)
	})
	return o.startErr
}

// LoadHistory reads the persisted query history without touching the
// table list. One-shot commands use it in place of Start.
func (o *Orchestrator) LoadHistory(ctx context.Context) error {
	return o.history.Load(ctx)
}

// RefreshTables reloads the table list.
func (o *Orchestrator) RefreshTables(ctx context.Context) error {
	return o.tables.RefreshTables(ctx)
}

// SelectTable makes tableID the selection and fetches its schema.
// Re-selecting the current table is a no-op. Ids missing from the cached
// list are still accepted, named after their id.
func (o *Orchestrator) SelectTable(ctx context.Context, tableID string) error {
	if tableID == "" {
		o.ClearSelection()
		return nil
	}

	t, ok := o.tables.Find(tableID)
	if !ok {
		t = remote.TableSummary{ID: tableID, Name: tableID}
	}

	o.mu.Lock()
	if o.selected != nil && o.selected.ID == tableID {
		o.mu.Unlock()
		return nil
	}
	o.selected = &t
	// the latest selection must also hold the latest schema token
	token := o.tables.beginSchemaFetch(tableID)
	o.mu.Unlock()
	o.changes.Broadcast()

	slog.Debug("table selected", "table_id", tableID)
	return o.tables.awaitSchema(ctx, tableID, token)
}

// ClearSelection empties the selection and drops the schema.
func (o *Orchestrator) ClearSelection() {
	o.mu.Lock()
	o.selected = nil
	o.tables.InvalidateSchema()
	o.mu.Unlock()

	o.changes.Broadcast()
}

// Selected returns the selected table, if any.
func (o *Orchestrator) Selected() (remote.TableSummary, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.selected == nil {
		return remote.TableSummary{}, false
	}
	return *o.selected, true
}

// SubmitQuery runs text and makes its result current.
// See QueryRunner.Run for the no-op cases.
func (o *Orchestrator) SubmitQuery(ctx context.Context, text string) (remote.QueryResult, error) {
	return o.queries.Run(ctx, text)
}

// ExportCurrentResultAsCSV renders the current result, or returns ErrNoResult.
func (o *Orchestrator) ExportCurrentResultAsCSV() (string, error) {
	res, ok := o.queries.Result()
	if !ok {
		return "", ErrNoResult
	}
	return ExportCSV(res), nil
}

// CurrentResult returns the latest successful query result.
func (o *Orchestrator) CurrentResult() (remote.QueryResult, bool) {
	return o.queries.Result()
}

// DeleteTable asks confirm and, on yes, deletes tableID. A nil confirmer
// or a "no" returns ErrDeleteDeclined without contacting the service.
func (o *Orchestrator) DeleteTable(ctx context.Context, tableID string, confirm Confirmer) error {
	if tableID == "" {
		return ErrUnknownTable
	}

	name := tableID
	if t, ok := o.tables.Find(tableID); ok {
		name = t.Name
	}

	if confirm == nil {
		return ErrDeleteDeclined
	}
	ok, err := confirm.Confirm(ctx, fmt.Sprintf("Delete table %q? This cannot be undone.", name))
	if err != nil {
		return fmt.Errorf("confirm delete: %w", err)
	}
	if !ok {
		slog.Debug("delete declined", "table_id", tableID)
		return ErrDeleteDeclined
	}

	return o.tables.DeleteTable(ctx, tableID)
}

// tableDeleted clears the selection when the selected table is gone.
func (o *Orchestrator) tableDeleted(tableID string) {
	o.mu.Lock()
	wasSelected := o.selected != nil && o.selected.ID == tableID
	if wasSelected {
		o.selected = nil
		o.tables.InvalidateSchema()
	}
	o.mu.Unlock()

	if wasSelected {
		o.changes.Broadcast()
	}
}

// ClearHistory empties and persists the query history.
func (o *Orchestrator) ClearHistory(ctx context.Context) error {
	return o.history.Clear(ctx)
}

// History returns the past queries, most recent first.
func (o *Orchestrator) History() []string {
	return o.history.Entries()
}

// StartUpload uploads f. On success it announces the new table and
// refreshes the table list before returning.
func (o *Orchestrator) StartUpload(ctx context.Context, f remote.File) (remote.UploadResult, error) {
	res, err := o.uploads.StartUpload(ctx, f)
	if err != nil {
		return remote.UploadResult{}, err
	}

	o.notes.Push(KindSuccess, fmt.Sprintf("Uploaded %s (%d rows)", res.TableName, res.RowCount), "")
	if err := o.tables.RefreshTables(ctx); err != nil {
		slog.Debug("refresh after upload failed", "error", err)
	}
	return res, nil
}

// DismissNotification removes a notification. Unknown ids are ignored.
func (o *Orchestrator) DismissNotification(id string) bool {
	return o.notes.Dismiss(id)
}

// Notifications returns the visible notifications in insertion order.
func (o *Orchestrator) Notifications() []Notification {
	return o.notes.List()
}

// Snapshot copies the displayed state. The schema is only included when it
// belongs to the current selection.
func (o *Orchestrator) Snapshot() State {
	selected, hasSelection := o.Selected()
	tablesLoading, schemaLoading := o.tables.Loading()
	status, lastQuery := o.queries.Status()

	s := State{
		Tables:        o.tables.Tables(),
		TablesLoading: tablesLoading,
		QueryStatus:   status,
		LastQuery:     lastQuery,
		History:       o.history.Entries(),
		Upload:        o.uploads.State(),
		Notifications: o.notes.List(),
	}

	if hasSelection {
		s.Selected = &selected
		s.SchemaLoading = schemaLoading
		if schema, owner, ok := o.tables.Schema(); ok && owner == selected.ID {
			s.Schema = &schema
		}
	}
	if res, ok := o.queries.Result(); ok {
		s.Result = &res
	}
	return s
}

// Subscribe returns a channel pinged after every state change.
func (o *Orchestrator) Subscribe() chan struct{} {
	return o.changes.Subscribe()
}

// Unsubscribe releases a channel from Subscribe.
func (o *Orchestrator) Unsubscribe(ch chan struct{}) {
	o.changes.Unsubscribe(ch)
}

// WaitIdle blocks until no upload or query is running, or ctx is done.
func (o *Orchestrator) WaitIdle(ctx context.Context) error {
	return errors.Join(o.uploads.WaitIdle(ctx), o.queries.WaitIdle(ctx))
}

// Close stops notification timers and releases subscribers.
func (o *Orchestrator) Close() {
	o.notes.Close()
	o.changes.Close()
}
