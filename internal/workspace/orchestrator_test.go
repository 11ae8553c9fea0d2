package workspace

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/querydesk/internal/remote"
)

type harness struct {
	svc   *fakeService
	store *memStore
	clock *fakeClock
	o     *Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		svc:   newFakeService(),
		store: newMemStore(),
		clock: newFakeClock(),
	}
	h.svc.tables = []remote.TableSummary{tableA, tableB}
	h.svc.schemas["a"] = schemaA
	h.svc.schemas["b"] = schemaB

	h.o = New(h.svc, h.store, Options{AfterFunc: h.clock.AfterFunc, Clock: h.clock.Now})
	t.Cleanup(h.o.Close)
	return h
}

func TestOrchestrator_StartRunsOnce(t *testing.T) {
	h := newHarness(t)
	h.store.data[HistoryKey] = `["earlier question"]`
	ctx := context.Background()

	require.NoError(t, h.o.Start(ctx))
	require.NoError(t, h.o.Start(ctx))

	list, _, _ := h.svc.counts()
	assert.Equal(t, 1, list, "exactly one startup refresh")

	s := h.o.Snapshot()
	assert.Equal(t, []remote.TableSummary{tableA, tableB}, s.Tables)
	assert.Equal(t, []string{"earlier question"}, s.History)
	assert.False(t, s.TablesLoading)
	assert.Nil(t, s.Selected)
	assert.Nil(t, s.Result)
}

func TestOrchestrator_StartReportsFailure(t *testing.T) {
	h := newHarness(t)
	h.svc.listErr = &remote.NetworkError{Op: "list tables", Err: errors.New("connection refused")}
	h.store.data[HistoryKey] = `["kept"]`

	err := h.o.Start(context.Background())
	var ne *remote.NetworkError
	require.ErrorAs(t, err, &ne)

	s := h.o.Snapshot()
	assert.Equal(t, []string{"kept"}, s.History, "history still loads when the table list fails")
	require.Len(t, s.Notifications, 1)
	assert.Contains(t, s.Notifications[0].Message, "NET001")
}

func TestOrchestrator_UploadEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.o.Start(ctx))

	h.svc.mu.Lock()
	h.svc.uploadHook = func(_ context.Context, f remote.File, onProgress remote.ProgressFunc) (remote.UploadResult, error) {
		onProgress(f.Size, f.Size)
		h.svc.mu.Lock()
		h.svc.tables = append(h.svc.tables, remote.TableSummary{ID: "sales", Name: "sales"})
		h.svc.mu.Unlock()
		return remote.UploadResult{TableName: "sales", RowCount: 2}, nil
	}
	h.svc.mu.Unlock()

	res, err := h.o.StartUpload(ctx, csvFile("sales.csv"))
	require.NoError(t, err)
	assert.Equal(t, remote.UploadResult{TableName: "sales", RowCount: 2}, res)

	s := h.o.Snapshot()
	require.Len(t, s.Notifications, 1)
	assert.Equal(t, KindSuccess, s.Notifications[0].Kind)
	assert.Equal(t, "Uploaded sales (2 rows)", s.Notifications[0].Title)

	list, _, _ := h.svc.counts()
	assert.Equal(t, 2, list, "startup refresh plus one after upload")
	require.Len(t, s.Tables, 3)
	assert.Equal(t, "sales", s.Tables[2].Name)
	assert.Equal(t, UploadState{Status: UploadIdle}, s.Upload)

	h.clock.Advance(DefaultNotificationTTL)
	assert.Empty(t, h.o.Notifications())
}

func TestOrchestrator_UploadRejectedType(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.o.StartUpload(ctx, remote.File{Name: "data.txt", Reader: strings.NewReader("x")})
	require.ErrorIs(t, err, ErrUnsupportedFileType)

	list, _, uploads := h.svc.counts()
	assert.Zero(t, uploads)
	assert.Zero(t, list)
	require.Len(t, h.o.Notifications(), 1)
	assert.Equal(t, KindError, h.o.Notifications()[0].Kind)
}

func TestOrchestrator_QueryEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.o.Start(ctx))

	h.svc.mu.Lock()
	h.svc.queryHook = func(context.Context, string) (remote.QueryResult, error) {
		return remote.QueryResult{
			SQL:       "SELECT region, SUM(total) FROM sales GROUP BY region",
			Columns:   []string{"region", "total"},
			Rows:      []map[string]any{{"region": "EU", "total": 10}, {"region": "US", "total": 20}},
			TotalRows: 2,
		}, nil
	}
	h.svc.mu.Unlock()

	for i := 0; i < 2; i++ {
		_, err := h.o.SubmitQuery(ctx, "sales by region")
		require.NoError(t, err)
	}

	s := h.o.Snapshot()
	require.NotNil(t, s.Result)
	assert.Equal(t, []string{"region", "total"}, s.Result.Columns)
	assert.Len(t, s.Result.Rows, 2)
	assert.Equal(t, QuerySucceeded, s.QueryStatus)
	assert.Equal(t, "sales by region", s.LastQuery)
	assert.Equal(t, []string{"sales by region"}, s.History, "identical submissions are deduplicated")
	assert.JSONEq(t, `["sales by region"]`, h.store.value(HistoryKey))

	out, err := h.o.ExportCurrentResultAsCSV()
	require.NoError(t, err)
	assert.Equal(t, "region,total\nEU,10\nUS,20", out)
}

func TestOrchestrator_ExportWithoutResult(t *testing.T) {
	h := newHarness(t)
	_, err := h.o.ExportCurrentResultAsCSV()
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestOrchestrator_SelectTable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.o.Start(ctx))

	require.NoError(t, h.o.SelectTable(ctx, "a"))
	s := h.o.Snapshot()
	require.NotNil(t, s.Selected)
	assert.Equal(t, tableA, *s.Selected)
	require.NotNil(t, s.Schema)
	assert.Equal(t, schemaA, *s.Schema)

	require.NoError(t, h.o.SelectTable(ctx, "a"))
	assert.Equal(t, 1, h.svc.schemaCallCount("a"), "re-selecting is a no-op")

	h.o.ClearSelection()
	s = h.o.Snapshot()
	assert.Nil(t, s.Selected)
	assert.Nil(t, s.Schema)

	require.NoError(t, h.o.SelectTable(ctx, "a"))
	assert.Equal(t, 2, h.svc.schemaCallCount("a"), "selecting again after clearing refetches")
}

func TestOrchestrator_SchemaRaceShowsLatestSelection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.o.Start(ctx))

	aStarted := make(chan struct{})
	releaseA := make(chan struct{})
	h.svc.mu.Lock()
	h.svc.schemaHook = func(_ context.Context, id string) (remote.Schema, error) {
		if id == "a" {
			close(aStarted)
			<-releaseA
			return schemaA, nil
		}
		return schemaB, nil
	}
	h.svc.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- h.o.SelectTable(ctx, "a") }()
	<-aStarted

	require.NoError(t, h.o.SelectTable(ctx, "b"))
	close(releaseA)
	require.NoError(t, <-done)

	s := h.o.Snapshot()
	require.NotNil(t, s.Selected)
	assert.Equal(t, "b", s.Selected.ID)
	require.NotNil(t, s.Schema)
	assert.Equal(t, schemaB, *s.Schema)
	assert.False(t, s.SchemaLoading)
}

func TestOrchestrator_DeleteSelectedTable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.o.Start(ctx))
	require.NoError(t, h.o.SelectTable(ctx, "a"))

	var prompt string
	confirm := ConfirmFunc(func(_ context.Context, p string) (bool, error) {
		prompt = p
		return true, nil
	})

	require.NoError(t, h.o.DeleteTable(ctx, "a", confirm))
	assert.Contains(t, prompt, "alpha")

	s := h.o.Snapshot()
	assert.Nil(t, s.Selected)
	assert.Nil(t, s.Schema)
	assert.Equal(t, []remote.TableSummary{tableB}, s.Tables)

	list, _, _ := h.svc.counts()
	assert.Equal(t, 2, list, "refresh after delete")
}

func TestOrchestrator_DeleteOtherTableKeepsSelection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.o.Start(ctx))
	require.NoError(t, h.o.SelectTable(ctx, "a"))

	require.NoError(t, h.o.DeleteTable(ctx, "b", AlwaysConfirm))

	s := h.o.Snapshot()
	require.NotNil(t, s.Selected)
	assert.Equal(t, "a", s.Selected.ID)
	require.NotNil(t, s.Schema)
	assert.Equal(t, schemaA, *s.Schema)
}

func TestOrchestrator_DeleteDeclined(t *testing.T) {
	tests := []struct {
		name    string
		confirm Confirmer
		wantErr error
	}{
		{"no confirmer", nil, ErrDeleteDeclined},
		{"answered no", ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil }), ErrDeleteDeclined},
		{"prompt failed", ConfirmFunc(func(context.Context, string) (bool, error) { return false, context.Canceled }), context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			require.NoError(t, h.o.Start(ctx))

			err := h.o.DeleteTable(ctx, "a", tt.confirm)
			assert.ErrorIs(t, err, tt.wantErr)

			h.svc.mu.Lock()
			assert.Empty(t, h.svc.deleted)
			h.svc.mu.Unlock()
			assert.Empty(t, h.o.Notifications())
		})
	}
}

func TestOrchestrator_ClearHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.o.SubmitQuery(ctx, "q")
	require.NoError(t, err)

	require.NoError(t, h.o.ClearHistory(ctx))
	assert.Empty(t, h.o.History())
	assert.Equal(t, "[]", h.store.value(HistoryKey))
}

func TestOrchestrator_DismissNotification(t *testing.T) {
	h := newHarness(t)
	h.svc.listErr = errors.New("boom")
	_ = h.o.Start(context.Background())

	notes := h.o.Notifications()
	require.Len(t, notes, 1)

	h.clock.Advance(2 * time.Second)
	assert.True(t, h.o.DismissNotification(notes[0].ID))
	assert.False(t, h.o.DismissNotification(notes[0].ID))

	h.clock.Advance(10 * time.Second)
	assert.Empty(t, h.o.Notifications())
}

func TestOrchestrator_SubscribeReceivesChanges(t *testing.T) {
	h := newHarness(t)
	ch := h.o.Subscribe()
	defer h.o.Unsubscribe(ch)

	require.NoError(t, h.o.Start(context.Background()))

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no change ping after Start")
	}
}

func TestOrchestrator_ConcurrentUse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.o.Start(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(3)
		go func() { defer wg.Done(); _, _ = h.o.SubmitQuery(ctx, "q") }()
		go func(i int) {
			defer wg.Done()
			id := "a"
			if i%2 == 1 {
				id = "b"
			}
			_ = h.o.SelectTable(ctx, id)
		}(i)
		go func() { defer wg.Done(); _ = h.o.Snapshot() }()
	}
	wg.Wait()

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, h.o.WaitIdle(waitCtx))

	s := h.o.Snapshot()
	require.NotNil(t, s.Selected)
	if s.Schema != nil {
		want := schemaA
		if s.Selected.ID == "b" {
			want = schemaB
		}
		assert.Equal(t, want, *s.Schema, "schema always belongs to the selection")
	}
}

func TestOrchestrator_ConcurrentSelectKeepsSchemaWithSelection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.o.Start(ctx))

	h.svc.mu.Lock()
	h.svc.schemaHook = func(_ context.Context, id string) (remote.Schema, error) {
		runtime.Gosched()
		if id == "a" {
			return schemaA, nil
		}
		return schemaB, nil
	}
	h.svc.mu.Unlock()

	for round := 0; round < 200; round++ {
		h.o.ClearSelection()

		var wg sync.WaitGroup
		for _, id := range []string{"a", "b"} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				assert.NoError(t, h.o.SelectTable(ctx, id))
			}(id)
		}
		wg.Wait()

		s := h.o.Snapshot()
		require.NotNil(t, s.Selected)
		require.NotNil(t, s.Schema, "round %d: %s selected without its schema", round, s.Selected.ID)
		want := schemaA
		if s.Selected.ID == "b" {
			want = schemaB
		}
		assert.Equal(t, want, *s.Schema)
		assert.False(t, s.SchemaLoading)
	}
}

func TestOrchestrator_HistoryKeepsTenMostRecent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.o.Start(ctx))

	for i := 0; i < 25; i++ {
		_, err := h.o.SubmitQuery(ctx, fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}

	history := h.o.History()
	require.Len(t, history, 10)
	assert.Equal(t, "question 24", history[0])
	assert.Equal(t, "question 15", history[9])
}
