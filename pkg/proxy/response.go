package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/RelientS/cursor-api/pkg/adapter"
)

// WriteJSON marshals v and writes it as a JSON response. It returns the
// body size for accounting.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	n, err := w.Write(data)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

// SetSSEHeaders prepares w for a server-sent event stream.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// SSEWriter frames adapter chunks onto one response stream, flushing after
// every chunk so deltas reach the client as they arrive.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	bytes   int
}

// NewSSEWriter wraps w. Writers that cannot flush still work; chunks then
// reach the client at the transport's pace.
func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	flusher, _ := w.(http.Flusher)
	return &SSEWriter{w: w, flusher: flusher}
}

// Write emits one chunk. Chunks carrying an event name render as a named
// SSE event, the rest as bare data lines:
//
//	event: content_block_delta
//	data: {"type":"content_block_delta",...}
//
//	data: {"id":"chatcmpl-...","object":"chat.completion.chunk",...}
func (s *SSEWriter) Write(chunk adapter.Chunk) error {
	var n int
	var err error
	if chunk.Event != "" {
		n, err = fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", chunk.Event, chunk.Data)
	} else {
		n, err = fmt.Fprintf(s.w, "data: %s\n\n", chunk.Data)
	}
	s.bytes += n
	if err != nil {
		return fmt.Errorf("write sse chunk: %w", err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// Bytes returns the total bytes written so far.
func (s *SSEWriter) Bytes() int {
	return s.bytes
}
