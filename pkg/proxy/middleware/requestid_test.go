package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/RelientS/cursor-api/pkg/telemetry/logging"
)

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	var fromContext string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromContext = logging.GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	echoed := rec.Header().Get(RequestIDHeader)
	if echoed == "" {
		t.Fatal("response is missing the request id header")
	}
	if _, err := uuid.Parse(echoed); err != nil {
		t.Errorf("generated id %q is not a uuid: %v", echoed, err)
	}
	if fromContext != echoed {
		t.Errorf("context id = %q, header id = %q", fromContext, echoed)
	}
}

func TestRequestIDMiddleware_HonorsClientID(t *testing.T) {
	var fromContext string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromContext = logging.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-supplied-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if fromContext != "client-supplied-id" {
		t.Errorf("context id = %q, want client-supplied-id", fromContext)
	}
	if echoed := rec.Header().Get(RequestIDHeader); echoed != "client-supplied-id" {
		t.Errorf("echoed id = %q, want client-supplied-id", echoed)
	}
}
