package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/RelientS/cursor-api/pkg/proxy/types"
)

// MaxRequestBodySize is the default cap on request bodies (10MB), applied
// by the body-limit middleware.
const MaxRequestBodySize = 10 * 1024 * 1024

// RequestError is a request the gateway refuses before contacting the
// upstream. Status becomes the response status line and Code the
// machine-readable value in the error envelope.
type RequestError struct {
	Status  int
	Code    string
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

// ParseChatCompletions decodes and validates the body of a
// /v1/chat/completions request. Failures come back as *RequestError.
func ParseChatCompletions(r *http.Request) (*types.ChatCompletionRequest, error) {
	var req types.ChatCompletionRequest
	if err := parseBody(r, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ParseMessages decodes and validates the body of a /v1/messages request.
// Failures come back as *RequestError.
func ParseMessages(r *http.Request) (*types.MessagesRequest, error) {
	var req types.MessagesRequest
	if err := parseBody(r, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func parseBody(r *http.Request, dst interface{ Validate() error }) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &RequestError{
				Status:  http.StatusRequestEntityTooLarge,
				Code:    CodeRequestTooLarge,
				Message: fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit),
			}
		}
		return &RequestError{
			Status:  http.StatusBadRequest,
			Code:    CodeRequestFailed,
			Message: fmt.Sprintf("read request body: %v", err),
		}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &RequestError{
			Status:  http.StatusBadRequest,
			Code:    CodeRequestFailed,
			Message: fmt.Sprintf("invalid JSON: %v", err),
		}
	}
	if err := dst.Validate(); err != nil {
		code := CodeRequestFailed
		var valErr *types.ValidationError
		if errors.As(err, &valErr) && valErr.Code != "" {
			code = valErr.Code
		}
		return &RequestError{
			Status:  http.StatusBadRequest,
			Code:    code,
			Message: err.Error(),
		}
	}
	return nil
}
