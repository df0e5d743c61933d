package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestChecker(timeout time.Duration) *Checker {
	return New("cursor-api", "1.2.0-test", timeout)
}

// TestNew tests the creation of a new health checker.
func TestNew(t *testing.T) {
	tests := []struct {
		name            string
		timeout         time.Duration
		expectedTimeout time.Duration
	}{
		{
			name:            "default timeout",
			timeout:         0,
			expectedTimeout: 5 * time.Second,
		},
		{
			name:            "custom timeout",
			timeout:         10 * time.Second,
			expectedTimeout: 10 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := newTestChecker(tt.timeout)

			if checker == nil {
				t.Fatal("expected non-nil checker")
			}

			if checker.checkTimeout != tt.expectedTimeout {
				t.Errorf("expected timeout %v, got %v", tt.expectedTimeout, checker.checkTimeout)
			}

			if checker.service.Name != "cursor-api" {
				t.Errorf("expected service name cursor-api, got %q", checker.service.Name)
			}

			if checker.service.GoVersion == "" {
				t.Error("expected non-empty go version")
			}

			if len(checker.checks) != 0 {
				t.Errorf("expected 0 checks, got %d", len(checker.checks))
			}
		})
	}
}

// TestRegisterCheck tests registering health checks.
func TestRegisterCheck(t *testing.T) {
	checker := newTestChecker(5 * time.Second)

	calls := 0
	checker.RegisterCheck("test", func(ctx context.Context) error {
		calls++
		return nil
	})

	// Replace check
	checker.RegisterCheck("test", func(ctx context.Context) error {
		calls += 10
		return nil
	})

	status := checker.Status(context.Background())

	if len(status.Checks) != 1 {
		t.Fatalf("expected 1 check result, got %d", len(status.Checks))
	}
	if calls != 10 {
		t.Errorf("expected only the replacement check to run, calls=%d", calls)
	}
}

// TestStatus_NoChecks tests the report with no checks registered.
func TestStatus_NoChecks(t *testing.T) {
	checker := newTestChecker(5 * time.Second)

	status := checker.Status(context.Background())

	if status.Status != "ok" {
		t.Errorf("expected status 'ok', got %q", status.Status)
	}

	if status.Checks != nil {
		t.Errorf("expected no checks in report, got %d", len(status.Checks))
	}

	if status.Timestamp.IsZero() {
		t.Error("expected non-zero timestamp")
	}

	if status.Runtime.Goroutines <= 0 {
		t.Errorf("expected positive goroutine count, got %d", status.Runtime.Goroutines)
	}

	if status.Runtime.MemoryBytes == 0 {
		t.Error("expected non-zero memory usage")
	}

	if status.Runtime.StartedAt.IsZero() {
		t.Error("expected non-zero start time")
	}
}

// TestStatus_ModelList tests that a registered model list supplier is
// reflected in the report.
func TestStatus_ModelList(t *testing.T) {
	checker := newTestChecker(5 * time.Second)

	models := []string{"claude-3.5-sonnet", "gpt-4o"}
	checker.SetModelList(func() []string { return models })

	status := checker.Status(context.Background())

	if len(status.Models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(status.Models))
	}
	if status.Models[0] != "claude-3.5-sonnet" || status.Models[1] != "gpt-4o" {
		t.Errorf("unexpected model list: %v", status.Models)
	}

	// The supplier is consulted per report.
	models = append(models, "o3-mini")
	status = checker.Status(context.Background())
	if len(status.Models) != 3 {
		t.Errorf("expected refreshed list of 3 models, got %d", len(status.Models))
	}
}

// TestStatus_AllHealthy tests the report with all healthy checks.
func TestStatus_AllHealthy(t *testing.T) {
	checker := newTestChecker(5 * time.Second)

	checker.RegisterCheck("test1", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("test2", func(ctx context.Context) error { return nil })

	status := checker.Status(context.Background())

	if status.Status != "ok" {
		t.Errorf("expected status 'ok', got %q", status.Status)
	}

	if len(status.Checks) != 2 {
		t.Errorf("expected 2 checks, got %d", len(status.Checks))
	}

	for name, result := range status.Checks {
		if result.Status != "ok" {
			t.Errorf("expected check %q to be ok, got %q", name, result.Status)
		}
	}
}

// TestStatus_SomeUnhealthy tests the report with unhealthy checks.
func TestStatus_SomeUnhealthy(t *testing.T) {
	checker := newTestChecker(5 * time.Second)

	checker.RegisterCheck("healthy", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("unhealthy", func(ctx context.Context) error {
		return errors.New("component unhealthy")
	})

	status := checker.Status(context.Background())

	if status.Status != "degraded" {
		t.Errorf("expected status 'degraded', got %q", status.Status)
	}

	healthyResult := status.Checks["healthy"]
	if healthyResult.Status != "ok" {
		t.Errorf("expected healthy check to be ok, got %q", healthyResult.Status)
	}

	unhealthyResult := status.Checks["unhealthy"]
	if unhealthyResult.Status != "unhealthy" {
		t.Errorf("expected unhealthy check to be unhealthy, got %q", unhealthyResult.Status)
	}
	if unhealthyResult.Message != "component unhealthy" {
		t.Errorf("expected message 'component unhealthy', got %q", unhealthyResult.Message)
	}
}

// TestStatus_Timeout tests a check that does not finish in time.
func TestStatus_Timeout(t *testing.T) {
	checker := newTestChecker(100 * time.Millisecond)

	checker.RegisterCheck("slow", func(ctx context.Context) error {
		time.Sleep(300 * time.Millisecond)
		return nil
	})

	status := checker.Status(context.Background())

	if status.Status != "degraded" {
		t.Errorf("expected status 'degraded', got %q", status.Status)
	}

	slowResult := status.Checks["slow"]
	if slowResult.Status != "unhealthy" {
		t.Errorf("expected slow check to be unhealthy, got %q", slowResult.Status)
	}
	if slowResult.Message != "health check timeout" {
		t.Errorf("expected timeout message, got %q", slowResult.Message)
	}
}

// TestStatus_ContextCancellation tests checks under a cancelled context.
func TestStatus_ContextCancellation(t *testing.T) {
	checker := newTestChecker(5 * time.Second)

	checker.RegisterCheck("test", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
			return nil
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	status := checker.Status(ctx)

	testResult := status.Checks["test"]
	if testResult.Status != "unhealthy" {
		t.Errorf("expected test check to be unhealthy, got %q", testResult.Status)
	}
}

// TestStats tests the request counters.
func TestStats(t *testing.T) {
	checker := newTestChecker(5 * time.Second)
	stats := checker.Stats()

	stats.RequestStarted()
	stats.RequestStarted()
	stats.RequestStarted()
	stats.RequestFinished(false)
	stats.RequestFinished(true)

	snap := stats.Snapshot()
	if snap.Total != 3 {
		t.Errorf("expected total=3, got %d", snap.Total)
	}
	if snap.Active != 1 {
		t.Errorf("expected active=1, got %d", snap.Active)
	}
	if snap.Errors != 1 {
		t.Errorf("expected errors=1, got %d", snap.Errors)
	}

	// Counters flow into the report
	status := checker.Status(context.Background())
	if status.Runtime.Requests.Total != 3 {
		t.Errorf("expected report total=3, got %d", status.Runtime.Requests.Total)
	}
}

// TestHandler tests the health HTTP handler.
func TestHandler(t *testing.T) {
	checker := newTestChecker(5 * time.Second)
	handler := checker.Handler()

	tests := []struct {
		name           string
		method         string
		expectedStatus int
		checkBody      bool
	}{
		{
			name:           "GET request",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
			checkBody:      true,
		},
		{
			name:           "HEAD request",
			method:         http.MethodHead,
			expectedStatus: http.StatusOK,
			checkBody:      false,
		},
		{
			name:           "POST request",
			method:         http.MethodPost,
			expectedStatus: http.StatusMethodNotAllowed,
			checkBody:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/health", nil)
			rec := httptest.NewRecorder()

			handler(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}

			if tt.checkBody {
				var status HealthStatus
				if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}

				if status.Status != "ok" {
					t.Errorf("expected status 'ok', got %q", status.Status)
				}
				if status.Service.Name != "cursor-api" {
					t.Errorf("expected service name cursor-api, got %q", status.Service.Name)
				}
				if status.Service.Version != "1.2.0-test" {
					t.Errorf("expected version 1.2.0-test, got %q", status.Service.Version)
				}
			}
		})
	}
}

// TestHandler_Degraded tests the handler response with a failing check.
func TestHandler_Degraded(t *testing.T) {
	checker := newTestChecker(5 * time.Second)
	checker.RegisterCheck("broken", func(ctx context.Context) error {
		return errors.New("failed")
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	checker.Handler()(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}

	var status HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if status.Status != "degraded" {
		t.Errorf("expected status 'degraded', got %q", status.Status)
	}
}

// TestConcurrentStatus tests concurrent health reports.
func TestConcurrentStatus(t *testing.T) {
	checker := newTestChecker(5 * time.Second)

	checker.RegisterCheck("test", func(ctx context.Context) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	})

	done := make(chan bool, 5)
	for i := 0; i < 5; i++ {
		go func() {
			status := checker.Status(context.Background())
			if status.Status != "ok" {
				t.Errorf("expected status 'ok', got %q", status.Status)
			}
			done <- true
		}()
	}

	for i := 0; i < 5; i++ {
		<-done
	}
}

// TestCheckResult_Duration tests that check results include duration.
func TestCheckResult_Duration(t *testing.T) {
	checker := newTestChecker(5 * time.Second)

	checker.RegisterCheck("slow", func(ctx context.Context) error {
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	status := checker.Status(context.Background())

	slowResult := status.Checks["slow"]
	if slowResult.Duration < 50 {
		t.Errorf("expected duration >= 50ms, got %vms", slowResult.Duration)
	}
}
