package workspace

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertEntry(t *testing.T) {
	tests := []struct {
		name     string
		entries  []string
		text     string
		capacity int
		want     []string
	}{
		{"into empty", nil, "a", 10, []string{"a"}},
		{"new goes first", []string{"b", "c"}, "a", 10, []string{"a", "b", "c"}},
		{"re-insert promotes", []string{"b", "a", "c"}, "a", 10, []string{"a", "b", "c"}},
		{"already first", []string{"a", "b"}, "a", 10, []string{"a", "b"}},
		{"overflow evicts oldest", []string{"b", "c", "d"}, "a", 3, []string{"a", "b", "c"}},
		{"promote at capacity keeps all others", []string{"b", "c", "a"}, "a", 3, []string{"a", "b", "c"}},
		{"exact match only", []string{"A", "a "}, "a", 10, []string{"a", "A", "a "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := append([]string(nil), tt.entries...)
			got := insertEntry(tt.entries, tt.text, tt.capacity)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, before, tt.entries, "input must not be modified")
		})
	}
}

func TestHistoryStore_DedupAndCap(t *testing.T) {
	store := newMemStore()
	h := NewHistoryStore(store, 10, nil, nil)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		require.NoError(t, h.Add(ctx, fmt.Sprintf("q%d", i)))
	}
	require.NoError(t, h.Add(ctx, "q5"))
	require.NoError(t, h.Add(ctx, "  q5  "))
	require.NoError(t, h.Add(ctx, "   "))

	got := h.Entries()
	assert.Len(t, got, 10)
	assert.Equal(t, []string{"q5", "q11", "q10", "q9", "q8", "q7", "q6", "q4", "q3", "q2"}, got)

	assert.JSONEq(t, `["q5","q11","q10","q9","q8","q7","q6","q4","q3","q2"]`, store.value(HistoryKey))
}

func TestHistoryStore_Load(t *testing.T) {
	tests := []struct {
		name   string
		stored *string
		want   []string
	}{
		{"missing key", nil, []string{}},
		{"empty value", ptr(""), []string{}},
		{"valid", ptr(`["b","a"]`), []string{"b", "a"}},
		{"corrupt", ptr(`{"not":"a list"}`), []string{}},
		{"duplicates and blanks dropped", ptr(`["a","","a","b"]`), []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			if tt.stored != nil {
				store.data[HistoryKey] = *tt.stored
			}
			h := NewHistoryStore(store, 10, nil, nil)

			require.NoError(t, h.Load(context.Background()))
			assert.Equal(t, tt.want, h.Entries())
		})
	}
}

func TestHistoryStore_LoadCapsPersistedEntries(t *testing.T) {
	store := newMemStore()
	store.data[HistoryKey] = `["a","b","c","d"]`
	h := NewHistoryStore(store, 2, nil, nil)

	require.NoError(t, h.Load(context.Background()))
	assert.Equal(t, []string{"a", "b"}, h.Entries())
}

func TestHistoryStore_LoadFailureNotifies(t *testing.T) {
	store := newMemStore()
	store.getErr = errDisk
	notes := &recordingNotifier{}
	h := NewHistoryStore(store, 10, notes, nil)

	err := h.Load(context.Background())
	require.ErrorIs(t, err, errDisk)
	assert.Len(t, notes.all(), 1)
	assert.Empty(t, h.Entries())
}

func TestHistoryStore_PersistFailureKeepsMemory(t *testing.T) {
	store := newMemStore()
	store.setErr = errDisk
	notes := &recordingNotifier{}
	h := NewHistoryStore(store, 10, notes, nil)

	err := h.Add(context.Background(), "sales by region")
	require.ErrorIs(t, err, errDisk)

	assert.Equal(t, []string{"sales by region"}, h.Entries())
	got := notes.all()
	require.Len(t, got, 1)
	assert.Equal(t, KindError, got[0].Kind)
	assert.Equal(t, "Could not save query history", got[0].Title)
}

func TestHistoryStore_Clear(t *testing.T) {
	store := newMemStore()
	h := NewHistoryStore(store, 10, nil, nil)
	ctx := context.Background()

	require.NoError(t, h.Add(ctx, "a"))
	require.NoError(t, h.Clear(ctx))

	assert.Empty(t, h.Entries())
	assert.Equal(t, "[]", store.value(HistoryKey))
}

func ptr[T any](v T) *T { return &v }

func TestHistoryStore_CapacityNeverExceedsDefault(t *testing.T) {
	for _, capacity := range []int{0, -1, 25} {
		t.Run(fmt.Sprint(capacity), func(t *testing.T) {
			h := NewHistoryStore(newMemStore(), capacity, nil, nil)
			ctx := context.Background()

			for i := 0; i < 25; i++ {
				require.NoError(t, h.Add(ctx, fmt.Sprintf("query %d", i)))
			}

			got := h.Entries()
			assert.Len(t, got, DefaultHistoryCapacity)
			assert.Equal(t, "query 24", got[0])
			assert.Equal(t, "query 15", got[DefaultHistoryCapacity-1])
		})
	}
}
