package workspace

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/querydesk/internal/remote"
)

// QueryService is the subset of Service the runner uses.
type QueryService interface {
	RunQuery(ctx context.Context, query string) (remote.QueryResult, error)
}

// QueryRunner executes one query at a time and keeps the latest result.
// A failed run keeps the previous result.
type QueryRunner struct {
	svc      QueryService
	history  *HistoryStore
	notifier Notifier
	onChange func()
	guard    *flightGuard

	mu        sync.Mutex
	status    QueryStatus
	result    *remote.QueryResult
	lastQuery string
}

// NewQueryRunner creates an idle runner. Successful queries are added to history.
func NewQueryRunner(svc QueryService, history *HistoryStore, notifier Notifier, onChange func()) *QueryRunner {
	return &QueryRunner{
		svc:      svc,
		history:  history,
		notifier: notifier,
		onChange: onChange,
		guard:    newFlightGuard(),
		status:   QueryIdle,
	}
}

// Run submits text and blocks until the service answers.
//
// Blank text returns ErrEmptyQuery and an overlapping call returns
// ErrQueryRunning; neither sends anything or raises a notification.
// On success the trimmed text is recorded in history. A history write
// failure is reported by the history store and does not fail the query.
func (q *QueryRunner) Run(ctx context.Context, text string) (remote.QueryResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return remote.QueryResult{}, ErrEmptyQuery
	}
	if !q.guard.TryAcquire() {
		return remote.QueryResult{}, ErrQueryRunning
	}
	defer q.guard.Release()

	q.setStatus(QueryRunning)
	start := time.Now()

	result, err := q.svc.RunQuery(ctx, text)
	if err != nil {
		slog.Warn("query failed", "query", text, "error", err)
		q.setStatus(QueryFailed)
		if q.notifier != nil {
			q.notifier.Push(KindError, "Query failed", Describe(err))
		}
		return remote.QueryResult{}, err
	}

	q.mu.Lock()
	q.result = &result
	q.lastQuery = text
	q.status = QuerySucceeded
	q.mu.Unlock()
	q.changed()

	slog.Info("query complete",
		"rows", len(result.Rows),
		"total_rows", result.TotalRows,
		"truncated", result.Truncated,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if q.history != nil {
		if err := q.history.Add(ctx, text); err != nil {
			slog.Debug("history not persisted", "error", err)
		}
	}
	return result, nil
}

// Result returns the latest successful result, if any.
func (q *QueryRunner) Result() (remote.QueryResult, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.result == nil {
		return remote.QueryResult{}, false
	}
	return *q.result, true
}

// Status returns the runner phase and the text of the last successful query.
func (q *QueryRunner) Status() (QueryStatus, string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.status, q.lastQuery
}

// WaitIdle blocks until no query is running or ctx is done.
func (q *QueryRunner) WaitIdle(ctx context.Context) error {
	return q.guard.WaitForDrain(ctx)
}

func (q *QueryRunner) setStatus(s QueryStatus) {
	q.mu.Lock()
	q.status = s
	q.mu.Unlock()
	q.changed()
}

func (q *QueryRunner) changed() {
	if q.onChange != nil {
		q.onChange()
	}
}
