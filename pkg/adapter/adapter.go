// Package adapter renders normalized upstream events in the two downstream
// chat-completion dialects. One adapter instance serves one stream: the
// proxy layer feeds it events in order and writes the returned chunks to
// the client verbatim.
//
// Streaming adapters never fail. Events with no rendering in a dialect
// (web citations and reasoning signatures in the OpenAI shape, redacted
// reasoning in both) are dropped, and unknown event variants are ignored
// so decoder additions cannot break a running stream.
package adapter

import (
	"encoding/json"
	"net/http"

	"github.com/RelientS/cursor-api/pkg/upstream"
)

// Chunk is one server-sent emission. Event is the SSE event name, empty
// for dialects that stream bare data lines. Data is the payload exactly as
// it appears after "data: ", normally JSON; the OpenAI terminator "[DONE]"
// is the single non-JSON payload.
type Chunk struct {
	Event string
	Data  []byte
}

// StreamAdapter converts upstream events into downstream chunks. Feed
// returns the chunks implied by one event, which may be none. The first
// Done or ErrorSignal finishes the stream; events after that return nil.
type StreamAdapter interface {
	Feed(event upstream.Event) []Chunk
}

// StatusForCode maps an upstream error code to the HTTP status used when
// the failure precedes any streamed output. Codes arrive as snake_case
// names on the error control frame.
func StatusForCode(code string) int {
	switch code {
	case "bad_request", "invalid_argument", "bad_model_name", "conversation_too_long":
		return http.StatusBadRequest
	case "unauthenticated", "unauthorized", "bad_api_key", "bad_user_api_key",
		"auth_token_not_found", "auth_token_expired", "invalid_auth_id":
		return http.StatusUnauthorized
	case "usage_pricing_required", "usage_pricing_required_changeable":
		return http.StatusPaymentRequired
	case "permission_denied", "not_logged_in", "not_high_enough_permissions", "pro_user_only":
		return http.StatusForbidden
	case "not_found", "user_not_found":
		return http.StatusNotFound
	case "rate_limited", "rate_limited_changeable", "generic_rate_limit_exceeded",
		"free_user_rate_limit_exceeded", "pro_user_rate_limit_exceeded",
		"openai_rate_limit_exceeded", "api_key_rate_limit":
		return http.StatusTooManyRequests
	case "free_user_usage_limit", "pro_user_usage_limit", "resource_exhausted",
		"max_tokens", "unavailable":
		return http.StatusServiceUnavailable
	case "timeout", "deadline_exceeded":
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// encodeJSON marshals chunk payloads. The emission structs contain only
// strings, numbers and slices of the same, so marshalling cannot fail.
func encodeJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

// SignalMessage selects the client-visible message for an upstream error
// signal: the detail if present, then the message, then the bare code.
func SignalMessage(sig upstream.ErrorSignal) string {
	if sig.Detail != "" {
		return sig.Detail
	}
	if sig.Message != "" {
		return sig.Message
	}
	return sig.Code
}
