package recorder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/RelientS/cursor-api/pkg/usage"
)

// ErrBufferFull is the cause of the RecorderError returned when the
// record queue is full and a record was dropped.
var ErrBufferFull = errors.New("record buffer full")

// Config contains configuration for the usage recorder.
type Config struct {
	// Enabled enables usage recording.
	Enabled bool

	// Buffer is the size of the async write channel buffer. When the
	// buffer is full new records are dropped, never blocking the
	// request handler.
	// Default: 1000
	Buffer int

	// WriteTimeout is the timeout for writing a record to storage.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		Buffer:       1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder writes usage records asynchronously. Records are complete
// when handed over, so Record enqueues and returns immediately; a
// background worker performs the storage writes.
type Recorder struct {
	storage    usage.Storage
	config     *Config
	recordChan chan *usage.Record
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	dropped    atomic.Uint64
	logger     *slog.Logger
}

// NewRecorder creates a new usage recorder with the provided storage
// backend and configuration.
func NewRecorder(storage usage.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}

	buffer := config.Buffer
	if buffer <= 0 {
		buffer = 1000
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *usage.Record, buffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "usage.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("usage recorder initialized",
		"buffer", buffer,
		"write_timeout", config.WriteTimeout,
		"enabled", config.Enabled,
	)

	return r
}

// Record enqueues a usage record for async writing. A missing ID or
// timestamp is filled in. When the buffer is full the record is
// dropped and counted; Record never blocks.
func (r *Recorder) Record(record *usage.Record) error {
	if !r.config.Enabled {
		return nil
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	select {
	case <-r.done:
		return usage.NewRecorderError(record.ID, context.Canceled)
	default:
	}

	select {
	case r.recordChan <- record:
		return nil
	default:
		r.dropped.Add(1)
		r.logger.Warn("record buffer full, dropping record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"dropped_total", r.dropped.Load(),
		)
		return usage.NewRecorderError(record.ID, ErrBufferFull)
	}
}

// Dropped returns the number of records dropped because the buffer
// was full.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Close gracefully shuts down the recorder by draining the queue and
// waiting for all pending writes to complete. Safe to call more than
// once.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
		r.logger.Info("usage recorder shut down",
			"dropped_total", r.dropped.Load(),
		)
	})
	return nil
}

// worker is the background goroutine that drains the record channel
// and writes records to storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			// Drain remaining records before exit.
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					return
				}
			}
		}
	}
}

// writeRecord writes a single usage record to storage.
func (r *Recorder) writeRecord(record *usage.Record) {
	writeTimeout := r.config.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	start := time.Now()

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store usage record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"error", err,
		)
		return
	}

	duration := time.Since(start)

	r.logger.Debug("usage recorded",
		"record_id", record.ID,
		"request_id", record.RequestID,
		"model", record.Model,
		"status", record.Status,
	)

	if duration > writeTimeout/2 {
		r.logger.Warn("slow usage write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (writeTimeout / 2).Milliseconds(),
		)
	}
}
