package health

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc is a function that performs a health check for a component.
// It returns nil if the component is healthy, or an error describing the problem.
type CheckFunc func(ctx context.Context) error

// CheckResult represents the result of a single component check.
type CheckResult struct {
	// Status is the component status: "ok", "unhealthy"
	Status string `json:"status"`

	// Message provides additional context (usually for unhealthy status)
	Message string `json:"message,omitempty"`

	// Duration is how long the check took, in milliseconds
	Duration float64 `json:"duration_ms,omitempty"`
}

// ServiceInfo describes the running service.
type ServiceInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
}

// RequestStats is a snapshot of the request counters.
type RequestStats struct {
	Total  uint64 `json:"total"`
	Active uint64 `json:"active"`
	Errors uint64 `json:"errors"`
}

// RuntimeStats describes the process at the time of the health check.
type RuntimeStats struct {
	StartedAt     time.Time    `json:"started_at"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Goroutines    int          `json:"goroutines"`
	MemoryBytes   uint64       `json:"memory_bytes"`
	Requests      RequestStats `json:"requests"`
}

// HealthStatus is the full health report served on the health endpoint.
type HealthStatus struct {
	// Status is the overall status: "ok", "degraded"
	Status string `json:"status"`

	// Service identifies the binary and its version
	Service ServiceInfo `json:"service"`

	// Runtime holds uptime, memory, and request counters
	Runtime RuntimeStats `json:"runtime"`

	// Models lists the model ids the service currently serves
	Models []string `json:"models,omitempty"`

	// Checks contains the status of individual components
	Checks map[string]CheckResult `json:"checks,omitempty"`

	// Timestamp is when the health check was performed
	Timestamp time.Time `json:"timestamp"`
}

// Stats tracks request counters reported on the health endpoint.
// All methods are safe for concurrent use.
type Stats struct {
	total  atomic.Uint64
	active atomic.Uint64
	errors atomic.Uint64
}

// RequestStarted records an accepted request.
func (s *Stats) RequestStarted() {
	s.total.Add(1)
	s.active.Add(1)
}

// RequestFinished records a finished request. failed marks requests that
// ended with a 5xx status or a broken stream.
func (s *Stats) RequestFinished(failed bool) {
	s.active.Add(^uint64(0))
	if failed {
		s.errors.Add(1)
	}
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() RequestStats {
	return RequestStats{
		Total:  s.total.Load(),
		Active: s.active.Load(),
		Errors: s.errors.Load(),
	}
}

// Checker manages component health checks and produces the health report.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
	models func() []string

	service   ServiceInfo
	startedAt time.Time
	stats     Stats

	// Timeout for individual checks
	checkTimeout time.Duration
}

// ErrCheckTimeout is returned when a component check does not finish in time.
var ErrCheckTimeout = errors.New("health check timeout")

// New creates a new health checker for the named service. If checkTimeout
// is 0, individual checks time out after 5 seconds.
func New(name, version string, checkTimeout time.Duration) *Checker {
	if checkTimeout == 0 {
		checkTimeout = 5 * time.Second
	}

	return &Checker{
		checks: make(map[string]CheckFunc),
		service: ServiceInfo{
			Name:      name,
			Version:   version,
			GoVersion: runtime.Version(),
		},
		startedAt:    time.Now(),
		checkTimeout: checkTimeout,
	}
}

// RegisterCheck registers a health check function for a named component.
// If a check with the same name already exists, it will be replaced.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks[name] = check
}

// SetModelList registers the supplier of the model ids reported on the
// health endpoint. The function is called per report, so a reloaded
// model list shows up without re-registration.
func (c *Checker) SetModelList(models func() []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.models = models
}

// Stats returns the request counters surfaced in the health report.
// HTTP middleware updates them as requests start and finish.
func (c *Checker) Stats() *Stats {
	return &c.stats
}

// Status runs all registered component checks and assembles the health
// report. The overall status is "degraded" as soon as any component is
// unhealthy, "ok" otherwise.
func (c *Checker) Status(ctx context.Context) HealthStatus {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	models := c.models
	c.mu.RUnlock()

	// Run all checks concurrently
	results := make(map[string]CheckResult, len(checks))
	var resultMu sync.Mutex
	var wg sync.WaitGroup

	for name, check := range checks {
		wg.Add(1)
		go func(name string, check CheckFunc) {
			defer wg.Done()

			result := c.runCheck(ctx, check)

			resultMu.Lock()
			results[name] = result
			resultMu.Unlock()
		}(name, check)
	}

	wg.Wait()

	status := "ok"
	for _, result := range results {
		if result.Status == "unhealthy" {
			status = "degraded"
		}
	}

	now := time.Now()
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	report := HealthStatus{
		Status:  status,
		Service: c.service,
		Runtime: RuntimeStats{
			StartedAt:     c.startedAt,
			UptimeSeconds: int64(now.Sub(c.startedAt).Seconds()),
			Goroutines:    runtime.NumGoroutine(),
			MemoryBytes:   ms.Alloc,
			Requests:      c.stats.Snapshot(),
		},
		Timestamp: now,
	}
	if models != nil {
		report.Models = models()
	}
	if len(results) > 0 {
		report.Checks = results
	}

	return report
}

// runCheck executes a single health check with timeout.
func (c *Checker) runCheck(ctx context.Context, check CheckFunc) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	start := time.Now()

	// Run check in goroutine to support timeout
	errChan := make(chan error, 1)
	go func() {
		errChan <- check(checkCtx)
	}()

	select {
	case err := <-errChan:
		duration := durationMillis(time.Since(start))
		if err != nil {
			return CheckResult{
				Status:   "unhealthy",
				Message:  err.Error(),
				Duration: duration,
			}
		}
		return CheckResult{
			Status:   "ok",
			Duration: duration,
		}

	case <-checkCtx.Done():
		return CheckResult{
			Status:   "unhealthy",
			Message:  ErrCheckTimeout.Error(),
			Duration: durationMillis(time.Since(start)),
		}
	}
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
