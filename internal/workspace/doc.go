// Package workspace coordinates a user's session against the query service.
//
// The package holds all client-side state of the data-exploration workspace
// independent of any UI or transport. Web handlers and CLI commands drive it
// through [Orchestrator] and render [State] snapshots.
//
// # Components
//
//   - [NotificationQueue]: transient success/error messages that expire on their own.
//   - [HistoryStore]: the ten most recent distinct queries, persisted to a key-value store.
//   - [UploadCoordinator]: one file upload at a time with monotonic progress.
//   - [TableRegistry]: the table list and the schema of the selected table.
//   - [QueryRunner]: one query at a time; successful queries feed the history.
//   - [Orchestrator]: owns the selection and composes the above.
//
// # Stale Responses
//
// Table refreshes and schema fetches are stamped with a token taken from a
// per-category counter. When a response arrives its token is compared to the
// latest one issued; older responses are dropped without touching state or
// raising notifications. Selecting table A and then quickly table B therefore
// always ends with B's schema on screen regardless of arrival order.
//
// Uploads and queries do not overlap at all: a second request while one is in
// flight is refused with [ErrUploadInProgress] or [ErrQueryRunning].
//
// # Error Handling
//
// Every failed remote call raises exactly one error notification, from the
// component that made the call, and returns a typed error. Technical errors
// are mapped to user-facing text with [MapError]; codes are listed in errors.go.
//
// # Locking
//
// Each component guards its own state with a mutex that is never held while
// waiting on the network. Change callbacks run after the lock is released.
package workspace
