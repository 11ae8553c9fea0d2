package workspace

import (
	"context"
	"time"

	"github.com/JonMunkholm/querydesk/internal/remote"
)

// NotificationKind is the severity shown with a notification.
type NotificationKind string

const (
	KindSuccess NotificationKind = "success"
	KindError   NotificationKind = "error"
)

// Notification is a transient user-facing message.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Message   string           `json:"message,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// UploadStatus is the phase of the upload coordinator.
type UploadStatus string

const (
	UploadIdle       UploadStatus = "idle"
	UploadInProgress UploadStatus = "in_progress"
	UploadDone       UploadStatus = "done"
	UploadFailed     UploadStatus = "failed"
)

// UploadState is what the UI shows for the current upload.
type UploadState struct {
	Status          UploadStatus `json:"status"`
	ProgressPercent int          `json:"progress_percent"`
	FileName        string       `json:"file_name,omitempty"`
}

// QueryStatus is the phase of the query runner.
type QueryStatus string

const (
	QueryIdle      QueryStatus = "idle"
	QueryRunning   QueryStatus = "running"
	QuerySucceeded QueryStatus = "succeeded"
	QueryFailed    QueryStatus = "failed"
)

// State is a point-in-time copy of everything the workspace displays.
// Schema is only ever the schema of Selected.
type State struct {
	Tables        []remote.TableSummary `json:"tables"`
	TablesLoading bool                  `json:"tables_loading"`

	Selected      *remote.TableSummary `json:"selected,omitempty"`
	Schema        *remote.Schema       `json:"schema,omitempty"`
	SchemaLoading bool                 `json:"schema_loading"`

	QueryStatus QueryStatus         `json:"query_status"`
	LastQuery   string              `json:"last_query,omitempty"`
	Result      *remote.QueryResult `json:"result,omitempty"`

	History       []string       `json:"history"`
	Upload        UploadState    `json:"upload"`
	Notifications []Notification `json:"notifications"`
}

// Service is the remote API the workspace drives. *remote.Client implements it.
type Service interface {
	ListTables(ctx context.Context) ([]remote.TableSummary, error)
	GetSchema(ctx context.Context, tableID string) (remote.Schema, error)
	DeleteTable(ctx context.Context, tableID string) error
	RunQuery(ctx context.Context, query string) (remote.QueryResult, error)
	Upload(ctx context.Context, f remote.File, onProgress remote.ProgressFunc) (remote.UploadResult, error)
}

// KeyValueStore is the durable storage for history. kvstore.Store implements it.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Notifier raises user-facing notifications.
type Notifier interface {
	Push(kind NotificationKind, title, message string) string
}

// Confirmer gates destructive operations behind an explicit yes.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// AlwaysConfirm approves every prompt. Used when the caller already asked.
var AlwaysConfirm = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
