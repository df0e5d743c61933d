package proxy

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/RelientS/cursor-api/pkg/adapter"
	"github.com/RelientS/cursor-api/pkg/upstream"
)

// Dialect names. They select the error envelope, key log and metric
// labels, and tag usage records.
const (
	DialectOpenAI    = "openai"
	DialectAnthropic = "anthropic"
)

// Error codes carried in error envelopes for failures the gateway itself
// raises. Upstream failures keep the code reported by the upstream.
const (
	CodeRequestFailed     = "request_failed"
	CodeEmptyMessages     = "empty_messages"
	CodeModelNotSupported = "model_not_supported"
	CodeRequestTooLarge   = "request_too_large"
	CodeMethodNotAllowed  = "method_not_allowed"
	CodeUnauthorized      = "unauthorized"
	CodeRateLimited       = "rate_limited"
	CodeTimeout           = "timeout"
	CodeUpstreamError     = "upstream_error"
	CodeCanceled          = "canceled"
)

// MapError converts a failure that happened before any response bytes were
// written into the HTTP answer it deserves. Request errors keep their own
// status and code; upstream rejections map by type; anything else is a bad
// gateway.
func MapError(err error) (status int, code, message string) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status, reqErr.Code, reqErr.Message
	}

	var authErr *upstream.AuthError
	if errors.As(err, &authErr) {
		return http.StatusUnauthorized, CodeUnauthorized, authErr.Message
	}

	var rateErr *upstream.RateLimitError
	if errors.As(err, &rateErr) {
		message := rateErr.Message
		if message == "" {
			message = "upstream rate limit exceeded"
		}
		return http.StatusTooManyRequests, CodeRateLimited, message
	}

	var timeoutErr *upstream.TimeoutError
	if errors.As(err, &timeoutErr) {
		return http.StatusGatewayTimeout, CodeTimeout, timeoutErr.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, CodeTimeout, "request deadline exceeded"
	}
	if errors.Is(err, context.Canceled) {
		// Nobody is listening for this answer; the status feeds logs and
		// metrics only. 499 follows nginx's convention for closed requests.
		return 499, CodeCanceled, "client closed the request"
	}

	var upErr *upstream.UpstreamError
	if errors.As(err, &upErr) {
		return http.StatusBadGateway, CodeUpstreamError, upErr.Message
	}

	return http.StatusBadGateway, CodeUpstreamError, err.Error()
}

// WriteError answers with MapError's verdict in the dialect's envelope.
// Rate-limited answers carry a Retry-After header when the upstream
// provided one.
func WriteError(w http.ResponseWriter, dialect string, err error) {
	var rateErr *upstream.RateLimitError
	if errors.As(err, &rateErr) && rateErr.RetryAfter > 0 {
		seconds := int(rateErr.RetryAfter / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
	status, code, message := MapError(err)
	WriteErrorBody(w, dialect, status, code, message)
}

// WriteErrorBody writes an error envelope in the given dialect. The code
// string doubles as the Anthropic error type, so upstream codes and the
// gateway's own codes surface uniformly in both dialects.
func WriteErrorBody(w http.ResponseWriter, dialect string, status int, code, message string) {
	var body []byte
	if dialect == DialectAnthropic {
		body = adapter.AnthropicError(code, message)
	} else {
		body = adapter.OpenAIError(code, message)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
