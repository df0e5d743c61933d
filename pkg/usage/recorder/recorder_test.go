package recorder

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/RelientS/cursor-api/pkg/usage"
	"github.com/RelientS/cursor-api/pkg/usage/storage"
)

// blockingStorage wraps the memory store with a gate so tests can hold
// the worker inside a write and fill the queue deterministically.
type blockingStorage struct {
	*storage.MemoryStorage
	entered chan struct{}
	release chan struct{}
}

func newBlockingStorage() *blockingStorage {
	return &blockingStorage{
		MemoryStorage: storage.NewMemoryStorage(),
		entered:       make(chan struct{}, 16),
		release:       make(chan struct{}),
	}
}

func (b *blockingStorage) Store(ctx context.Context, record *usage.Record) error {
	b.entered <- struct{}{}
	<-b.release
	return b.MemoryStorage.Store(ctx, record)
}

func TestRecorder_Record(t *testing.T) {
	store := storage.NewMemoryStorage()
	recorder := NewRecorder(store, DefaultConfig())

	err := recorder.Record(&usage.Record{
		RequestID:    "req-123",
		Dialect:      "openai",
		Model:        "claude-3.5-sonnet",
		Stream:       true,
		Status:       usage.StatusSuccess,
		Duration:     800 * time.Millisecond,
		InputTokens:  1200,
		OutputTokens: 350,
	})
	if err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	// Close drains the queue, so the write is visible afterwards.
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	ctx := context.Background()
	results, err := store.Query(ctx, &usage.Query{})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 stored record, got %d", len(results))
	}

	record := results[0]
	if record.ID == "" {
		t.Error("Expected generated record ID, got empty")
	}
	if record.Timestamp.IsZero() {
		t.Error("Expected filled timestamp, got zero")
	}
	if record.RequestID != "req-123" {
		t.Errorf("RequestID = %q, want %q", record.RequestID, "req-123")
	}
	if record.Model != "claude-3.5-sonnet" {
		t.Errorf("Model = %q, want %q", record.Model, "claude-3.5-sonnet")
	}
	if record.InputTokens != 1200 {
		t.Errorf("InputTokens = %d, want 1200", record.InputTokens)
	}
}

func TestRecorder_PreservesID(t *testing.T) {
	store := storage.NewMemoryStorage()
	recorder := NewRecorder(store, DefaultConfig())

	ts := time.Now().Add(-time.Minute)
	err := recorder.Record(&usage.Record{
		ID:        "preset-id",
		Timestamp: ts,
		RequestID: "req-1",
		Status:    usage.StatusSuccess,
	})
	if err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	recorder.Close()

	stored := store.GetByID("preset-id")
	if stored == nil {
		t.Fatal("Record with preset ID not found")
	}
	if !stored.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", stored.Timestamp, ts)
	}
}

func TestRecorder_GracefulShutdown(t *testing.T) {
	store := storage.NewMemoryStorage()
	config := DefaultConfig()
	config.Buffer = 100

	recorder := NewRecorder(store, config)

	for i := 0; i < 10; i++ {
		err := recorder.Record(&usage.Record{
			RequestID: fmt.Sprintf("req-%d", i),
			Status:    usage.StatusSuccess,
		})
		if err != nil {
			t.Fatalf("Record() failed: %v", err)
		}
	}

	// Close must drain the channel before returning.
	recorder.Close()

	count, _ := store.Count(context.Background(), &usage.Query{})
	if count != 10 {
		t.Errorf("Expected 10 stored records after graceful shutdown, got %d", count)
	}
}

func TestRecorder_Disabled(t *testing.T) {
	store := storage.NewMemoryStorage()
	config := DefaultConfig()
	config.Enabled = false

	recorder := NewRecorder(store, config)
	defer recorder.Close()

	err := recorder.Record(&usage.Record{RequestID: "req-1"})
	if err != nil {
		t.Fatalf("Record() should not fail when disabled: %v", err)
	}

	count, _ := store.Count(context.Background(), &usage.Query{})
	if count != 0 {
		t.Errorf("Expected 0 stored records when disabled, got %d", count)
	}
}

func TestRecorder_DropWhenFull(t *testing.T) {
	store := newBlockingStorage()
	config := DefaultConfig()
	config.Buffer = 1

	recorder := NewRecorder(store, config)

	// First record: picked up by the worker, which blocks inside Store.
	if err := recorder.Record(&usage.Record{ID: "a"}); err != nil {
		t.Fatalf("Record(a) failed: %v", err)
	}
	<-store.entered

	// Second record fills the buffer.
	if err := recorder.Record(&usage.Record{ID: "b"}); err != nil {
		t.Fatalf("Record(b) failed: %v", err)
	}

	// Buffer full: these are dropped without blocking.
	errC := recorder.Record(&usage.Record{ID: "c"})
	errD := recorder.Record(&usage.Record{ID: "d"})

	if !errors.Is(errC, ErrBufferFull) {
		t.Errorf("Record(c) error = %v, want ErrBufferFull", errC)
	}
	if !errors.Is(errD, ErrBufferFull) {
		t.Errorf("Record(d) error = %v, want ErrBufferFull", errD)
	}
	if got := recorder.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}

	var recorderErr *usage.RecorderError
	if !errors.As(errC, &recorderErr) {
		t.Fatal("Record(c) error should be a *usage.RecorderError")
	}
	if recorderErr.RecordID != "c" {
		t.Errorf("RecordID = %q, want %q", recorderErr.RecordID, "c")
	}

	// Unblock the writes and drain.
	close(store.release)
	recorder.Close()

	count, _ := store.Count(context.Background(), &usage.Query{})
	if count != 2 {
		t.Errorf("Expected 2 stored records (a, b), got %d", count)
	}
}

func TestRecorder_RecordAfterClose(t *testing.T) {
	store := storage.NewMemoryStorage()
	recorder := NewRecorder(store, DefaultConfig())
	recorder.Close()

	err := recorder.Record(&usage.Record{RequestID: "req-late"})
	if err == nil {
		t.Fatal("Record() after Close should fail")
	}

	var recorderErr *usage.RecorderError
	if !errors.As(err, &recorderErr) {
		t.Errorf("error = %T, want *usage.RecorderError", err)
	}

	count, _ := store.Count(context.Background(), &usage.Query{})
	if count != 0 {
		t.Errorf("Expected 0 stored records, got %d", count)
	}
}

func TestRecorder_CloseIdempotent(t *testing.T) {
	store := storage.NewMemoryStorage()
	recorder := NewRecorder(store, DefaultConfig())

	if err := recorder.Close(); err != nil {
		t.Fatalf("first Close() failed: %v", err)
	}
	if err := recorder.Close(); err != nil {
		t.Fatalf("second Close() failed: %v", err)
	}
}

func TestRecorder_NilConfig(t *testing.T) {
	store := storage.NewMemoryStorage()
	recorder := NewRecorder(store, nil)

	if err := recorder.Record(&usage.Record{RequestID: "req-default"}); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	recorder.Close()

	count, _ := store.Count(context.Background(), &usage.Query{})
	if count != 1 {
		t.Errorf("Expected 1 stored record, got %d", count)
	}
}

func BenchmarkRecorder_Record(b *testing.B) {
	store := storage.NewMemoryStorage()
	config := DefaultConfig()
	config.Buffer = 100000

	recorder := NewRecorder(store, config)
	defer recorder.Close()

	record := &usage.Record{
		RequestID:    "req-bench",
		Dialect:      "openai",
		Model:        "claude-3.5-sonnet",
		Status:       usage.StatusSuccess,
		InputTokens:  1000,
		OutputTokens: 200,
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		r := *record
		_ = recorder.Record(&r)
	}
}
