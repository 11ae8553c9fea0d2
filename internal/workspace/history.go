package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// HistoryKey is the key-value store key holding the JSON history array.
const HistoryKey = "query_history"

// DefaultHistoryCapacity is the number of distinct queries kept. It is also
// the ceiling: a history never holds more entries than this.
const DefaultHistoryCapacity = 10

// insertEntry returns entries with text moved or added to the front, trimmed
// to capacity. Matching is exact; the input slice is not modified.
func insertEntry(entries []string, text string, capacity int) []string {
	out := make([]string, 0, min(len(entries)+1, capacity))
	out = append(out, text)
	for _, e := range entries {
		if len(out) == capacity {
			break
		}
		if e != text {
			out = append(out, e)
		}
	}
	return out
}

// HistoryStore is the durable, most-recent-first list of past queries.
type HistoryStore struct {
	store    KeyValueStore
	capacity int
	notifier Notifier
	onChange func()

	mu      sync.Mutex
	entries []string

	// persistMu orders writes so the last Set always carries the latest entries.
	persistMu sync.Mutex
}

// NewHistoryStore creates an empty history backed by store. capacity may
// lower the limit; values outside 1..DefaultHistoryCapacity select the default.
// notifier may be nil, in which case persistence failures are only logged.
func NewHistoryStore(store KeyValueStore, capacity int, notifier Notifier, onChange func()) *HistoryStore {
	if capacity <= 0 || capacity > DefaultHistoryCapacity {
		capacity = DefaultHistoryCapacity
	}
	return &HistoryStore{
		store:    store,
		capacity: capacity,
		notifier: notifier,
		onChange: onChange,
		entries:  []string{},
	}
}

// Load replaces the in-memory history with the persisted one.
// A missing key or a corrupt value yields an empty history.
func (h *HistoryStore) Load(ctx context.Context) error {
	raw, ok, err := h.store.Get(ctx, HistoryKey)
	if err != nil {
		h.notify("Could not load query history", err)
		return fmt.Errorf("load history: %w", err)
	}

	entries := []string{}
	if ok && raw != "" {
		var decoded []string
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			slog.Warn("discarding corrupt query history", "error", err)
		} else {
			entries = sanitizeEntries(decoded, h.capacity)
		}
	}

	h.mu.Lock()
	h.entries = entries
	h.mu.Unlock()

	slog.Debug("query history loaded", "entries", len(entries))
	h.changed()
	return nil
}

// sanitizeEntries drops blanks and duplicates from persisted data and applies the cap.
func sanitizeEntries(in []string, capacity int) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, min(len(in), capacity))
	for _, e := range in {
		if len(out) == capacity {
			break
		}
		if strings.TrimSpace(e) == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// Add records text as the most recent query and persists the list.
// The in-memory update stands even when persisting fails.
func (h *HistoryStore) Add(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	h.mu.Lock()
	h.entries = insertEntry(h.entries, text, h.capacity)
	h.mu.Unlock()

	h.changed()
	return h.persist(ctx)
}

// Clear empties the history and persists the empty list.
func (h *HistoryStore) Clear(ctx context.Context) error {
	h.mu.Lock()
	h.entries = []string{}
	h.mu.Unlock()

	h.changed()
	return h.persist(ctx)
}

// Entries returns a copy of the history, most recent first.
func (h *HistoryStore) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *HistoryStore) persist(ctx context.Context) error {
	h.persistMu.Lock()
	defer h.persistMu.Unlock()

	raw, err := json.Marshal(h.Entries())
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := h.store.Set(ctx, HistoryKey, string(raw)); err != nil {
		h.notify("Could not save query history", err)
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

func (h *HistoryStore) notify(title string, err error) {
	slog.Warn(title, "error", err)
	if h.notifier != nil {
		h.notifier.Push(KindError, title, Describe(err))
	}
}

func (h *HistoryStore) changed() {
	if h.onChange != nil {
		h.onChange()
	}
}
