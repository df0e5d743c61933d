package usage

import (
	"context"
	"time"
)

// Record status values. A record is written once, after the request
// finished, so there is no pending state.
const (
	// StatusSuccess marks a request that completed normally.
	StatusSuccess = "success"

	// StatusFailure marks a request that ended with an upstream or
	// internal error.
	StatusFailure = "failure"

	// StatusCanceled marks a request whose client disconnected before
	// the response completed.
	StatusCanceled = "canceled"
)

// Record captures the accounting data of one completed completion
// request: what was asked, how long it took, what it consumed, and
// how it ended.
type Record struct {
	// ID is a unique record identifier (UUID).
	ID string `json:"id"`

	// Timestamp is when the request arrived.
	Timestamp time.Time `json:"timestamp"`

	// RequestID correlates the record with request-scoped log lines.
	RequestID string `json:"request_id"`

	// Dialect is the API surface the client spoke ("openai" or
	// "anthropic").
	Dialect string `json:"dialect"`

	// Model is the model name the client requested.
	Model string `json:"model"`

	// Stream reports whether the client asked for a streaming response.
	Stream bool `json:"stream"`

	// Status is one of StatusSuccess, StatusFailure, StatusCanceled.
	Status string `json:"status"`

	// Duration is the total wall-clock time of the request.
	Duration time.Duration `json:"duration"`

	// Token counts reported by the upstream usage frame.
	InputTokens      int64 `json:"input_tokens"`
	OutputTokens     int64 `json:"output_tokens"`
	CacheWriteTokens int64 `json:"cache_write_tokens,omitempty"`
	CacheReadTokens  int64 `json:"cache_read_tokens,omitempty"`

	// TotalCents is the upstream-reported cost of the request.
	TotalCents float64 `json:"total_cents,omitempty"`

	// Error fields are empty for successful requests. ErrorDetail
	// carries the raw upstream detail payload when one was present.
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	ErrorDetail  string `json:"error_detail,omitempty"`
}

// TotalTokens returns the combined input and output token count.
func (r *Record) TotalTokens() int64 {
	return r.InputTokens + r.OutputTokens
}

// HasError reports whether the record carries an error.
func (r *Record) HasError() bool {
	return r.ErrorCode != "" || r.ErrorMessage != ""
}

// Query selects records. Zero-value fields are ignored; pointer fields
// distinguish "unset" from a legitimate zero.
type Query struct {
	// StartTime and EndTime bound the record timestamp (inclusive).
	StartTime *time.Time
	EndTime   *time.Time

	// RequestID matches exactly.
	RequestID string

	// Dialect matches exactly.
	Dialect string

	// Model matches exactly.
	Model string

	// Status matches exactly.
	Status string

	// Stream filters by the streaming flag.
	Stream *bool

	// HasError filters records that carry (or do not carry) an error.
	HasError *bool

	// MinTokens and MaxTokens bound the combined token count.
	MinTokens *int64
	MaxTokens *int64

	// Limit caps the result size. Zero applies the backend default.
	Limit int

	// Offset skips that many records, newest first.
	Offset int
}

// Storage persists usage records. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Query returns records matching the filters, newest first.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of records matching the filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes records matching the filters and returns how
	// many were removed.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
