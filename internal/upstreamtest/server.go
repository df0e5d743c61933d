// Package upstreamtest provides a scripted stand-in for the upstream chat
// backend. Tests enqueue exchanges (framed response streams or HTTP
// rejections), point an upstream client at the server's URL, and inspect
// the captured requests afterwards.
package upstreamtest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/RelientS/cursor-api/pkg/wire"
)

// StreamPath is the procedure path the server answers. Requests for any
// other path get a 404.
const StreamPath = "/aiserver.v1.ChatService/StreamUnifiedChatWithTools"

// Exchange defines the scripted reply to one upstream request.
type Exchange struct {
	// StatusCode is the HTTP status. Zero means 200.
	StatusCode int

	// Body is the response body for non-2xx replies.
	Body string

	// Frames are written sequentially on 2xx replies, flushed one at a
	// time so incremental client-side decoding is exercised.
	Frames [][]byte

	// Delay postpones the first response byte.
	Delay time.Duration

	// FrameDelay sleeps between consecutive frames.
	FrameDelay time.Duration

	// Headers are extra response headers (e.g. Retry-After).
	Headers map[string]string
}

// Request captures one request the server received.
type Request struct {
	Body    []byte
	Headers http.Header
}

// Server is a scripted upstream endpoint for integration tests.
type Server struct {
	server *httptest.Server

	mu        sync.Mutex
	exchanges []Exchange
	requests  []Request
}

// NewServer starts a scripted upstream server. Callers must Close it.
func NewServer() *Server {
	s := &Server{}
	s.server = httptest.NewServer(http.HandlerFunc(s.handler))
	return s
}

// URL returns the server's base URL, suitable for an upstream client's
// BaseURL setting.
func (s *Server) URL() string {
	return s.server.URL
}

// Close shuts the server down.
func (s *Server) Close() {
	s.server.Close()
}

// Enqueue appends one scripted exchange. Exchanges are consumed in FIFO
// order; a request beyond the script gets a 500.
func (s *Server) Enqueue(exchange Exchange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exchanges = append(s.exchanges, exchange)
}

// EnqueueFrames scripts one successful exchange from raw frames.
func (s *Server) EnqueueFrames(frames ...[]byte) {
	s.Enqueue(Exchange{Frames: frames})
}

// Requests returns the captured requests, oldest first.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestCount returns the number of requests received so far.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.requests)
}

func (s *Server) handler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != StreamPath {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, Request{Body: body, Headers: r.Header.Clone()})
	scripted := len(s.exchanges) > 0
	var exchange Exchange
	if scripted {
		exchange = s.exchanges[0]
		s.exchanges = s.exchanges[1:]
	}
	s.mu.Unlock()

	if !scripted {
		http.Error(w, "no scripted exchange", http.StatusInternalServerError)
		return
	}

	if exchange.Delay > 0 {
		time.Sleep(exchange.Delay)
	}

	for key, value := range exchange.Headers {
		w.Header().Set(key, value)
	}

	status := exchange.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	if status < 200 || status >= 300 {
		w.WriteHeader(status)
		if exchange.Body != "" {
			_, _ = w.Write([]byte(exchange.Body))
		}
		return
	}

	w.Header().Set("Content-Type", "application/connect+proto")
	w.WriteHeader(status)

	flusher, _ := w.(http.Flusher)
	for i, frame := range exchange.Frames {
		if i > 0 && exchange.FrameDelay > 0 {
			time.Sleep(exchange.FrameDelay)
		}
		_, _ = w.Write(frame)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// TextFrame encodes one content frame carrying a text fragment.
func TextFrame(text string) []byte {
	env := &wire.ResponseEnvelope{Response: &wire.ChatResponse{Text: text}}
	return wire.EncodeFrame(wire.KindProto<<1, env.Marshal())
}

// ThinkingFrame encodes one reasoning fragment.
func ThinkingFrame(text, signature string) []byte {
	env := &wire.ResponseEnvelope{Response: &wire.ChatResponse{
		Thinking: &wire.Thinking{Text: text, Signature: signature},
	}}
	return wire.EncodeFrame(wire.KindProto<<1, env.Marshal())
}

// ToolCallFrame encodes a tool-call announcement or argument fragment.
func ToolCallFrame(call *wire.ToolCall) []byte {
	env := &wire.ResponseEnvelope{ToolCall: call}
	return wire.EncodeFrame(wire.KindProto<<1, env.Marshal())
}

// UsageFrame encodes the end-of-stream accounting frame.
func UsageFrame(input, output uint32) []byte {
	env := &wire.ResponseEnvelope{Response: &wire.ChatResponse{
		Usage: &wire.TokenUsage{InputTokens: input, OutputTokens: output},
	}}
	return wire.EncodeFrame(wire.KindProto<<1, env.Marshal())
}

// DoneFrame encodes the JSON control frame that ends a healthy stream.
func DoneFrame() []byte {
	return wire.EncodeFrame(wire.KindJSON<<1, []byte("{}"))
}

// ErrorFrame encodes an in-stream error signal.
func ErrorFrame(code, message string) []byte {
	payload := fmt.Sprintf(`{"error":{"code":%q,"message":%q}}`, code, message)
	return wire.EncodeFrame(wire.KindJSON<<1, []byte(payload))
}

// AuthRejection scripts a 401 with the given body.
func AuthRejection(message string) Exchange {
	return Exchange{StatusCode: http.StatusUnauthorized, Body: message}
}

// RateLimitRejection scripts a 429 with a Retry-After header.
func RateLimitRejection(retryAfter int, message string) Exchange {
	return Exchange{
		StatusCode: http.StatusTooManyRequests,
		Body:       message,
		Headers:    map[string]string{"Retry-After": fmt.Sprintf("%d", retryAfter)},
	}
}

// ServerError scripts a retryable 500.
func ServerError(message string) Exchange {
	return Exchange{StatusCode: http.StatusInternalServerError, Body: message}
}

// DecodeRequest unmarshals one captured request body back into the request
// envelope it framed.
func DecodeRequest(body []byte) (*wire.RequestEnvelope, error) {
	reader := wire.NewReader(0)
	reader.Feed(body)

	frame, err := reader.Next()
	if err != nil {
		return nil, err
	}
	if frame == nil {
		return nil, fmt.Errorf("request body holds no complete frame")
	}

	payload, err := frame.Body()
	if err != nil {
		return nil, err
	}

	var env wire.RequestEnvelope
	if err := env.Unmarshal(payload); err != nil {
		return nil, err
	}
	return &env, nil
}
