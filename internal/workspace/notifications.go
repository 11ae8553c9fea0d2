package workspace

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultNotificationTTL is how long a notification stays visible.
const DefaultNotificationTTL = 6 * time.Second

// Timer is the part of *time.Timer the queue needs.
type Timer interface {
	Stop() bool
}

// AfterFuncFunc schedules f to run once after d.
type AfterFuncFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// NotificationQueue holds transient messages in insertion order.
// Each notification is removed exactly once, by Dismiss or by its expiry
// timer, whichever comes first.
type NotificationQueue struct {
	ttl       time.Duration
	afterFunc AfterFuncFunc
	now       func() time.Time
	onChange  func()

	mu     sync.Mutex
	items  []Notification
	timers map[string]Timer
	closed bool
}

// QueueOption configures a NotificationQueue.
type QueueOption func(*NotificationQueue)

// WithTTL overrides DefaultNotificationTTL. The workspace always runs with
// the default; tests shorten it to expire notifications on the real clock.
func WithTTL(d time.Duration) QueueOption {
	return func(q *NotificationQueue) {
		if d > 0 {
			q.ttl = d
		}
	}
}

// WithAfterFunc replaces time.AfterFunc, typically with a fake clock in tests.
func WithAfterFunc(fn AfterFuncFunc) QueueOption {
	return func(q *NotificationQueue) { q.afterFunc = fn }
}

// WithClock replaces time.Now for CreatedAt stamps.
func WithClock(now func() time.Time) QueueOption {
	return func(q *NotificationQueue) { q.now = now }
}

// WithOnChange registers a callback run after every add or removal.
func WithOnChange(fn func()) QueueOption {
	return func(q *NotificationQueue) { q.onChange = fn }
}

// NewNotificationQueue creates an empty queue.
func NewNotificationQueue(opts ...QueueOption) *NotificationQueue {
	q := &NotificationQueue{
		ttl:       DefaultNotificationTTL,
		afterFunc: realAfterFunc,
		now:       time.Now,
		timers:    make(map[string]Timer),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push appends a notification and schedules its expiry. It returns the new id.
// After Close the notification is logged and dropped.
func (q *NotificationQueue) Push(kind NotificationKind, title, message string) string {
	n := Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Message:   message,
		CreatedAt: q.now(),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		slog.Debug("notification dropped after close", "kind", kind, "title", title)
		return n.ID
	}
	q.items = append(q.items, n)
	q.timers[n.ID] = q.afterFunc(q.ttl, func() { q.expire(n.ID) })
	q.mu.Unlock()

	slog.Debug("notification raised", "id", n.ID, "kind", kind, "title", title)
	q.changed()
	return n.ID
}

// Dismiss removes a notification and cancels its expiry.
// It reports whether the notification was still present; repeated calls are no-ops.
func (q *NotificationQueue) Dismiss(id string) bool {
	q.mu.Lock()
	removed := q.removeLocked(id)
	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}
	q.mu.Unlock()

	if removed {
		q.changed()
	}
	return removed
}

func (q *NotificationQueue) expire(id string) {
	q.mu.Lock()
	delete(q.timers, id)
	removed := q.removeLocked(id)
	q.mu.Unlock()

	if removed {
		slog.Debug("notification expired", "id", id)
		q.changed()
	}
}

// removeLocked deletes id from items. Caller holds q.mu.
func (q *NotificationQueue) removeLocked(id string) bool {
	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// List returns the visible notifications in insertion order.
func (q *NotificationQueue) List() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Notification, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of visible notifications.
func (q *NotificationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops every pending expiry timer and clears the queue.
func (q *NotificationQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	q.items = nil
	q.mu.Unlock()
}

func (q *NotificationQueue) changed() {
	if q.onChange != nil {
		q.onChange()
	}
}
