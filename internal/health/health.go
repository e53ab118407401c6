// Package health aggregates named probes into a health endpoint.
package health

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/albedosehen/dawn/internal/envelope"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/pipeline"
)

// Probe reports a dependency's health. A nil error means healthy.
type Probe func(ctx context.Context) error

// Status is the overall health of the service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the outcome of one probe.
type CheckResult struct {
	Passed   bool          `json:"passed"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Summary counts probe outcomes.
type Summary struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Unhealthy int `json:"unhealthy"`
}

// Report is the body served by Handler.
type Report struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Summary   Summary                `json:"summary"`
}

// Healthy reports whether every probe passed.
func (r Report) Healthy() bool {
	return r.Status == StatusHealthy
}

// Checker runs registered probes concurrently, each bounded by a timeout.
type Checker struct {
	mu        sync.RWMutex
	probes    map[string]Probe
	timeout   time.Duration
	limit     int
	startTime time.Time
	logger    observability.Logger
}

// NewChecker returns a checker with no probes. A non-positive timeout leaves
// probes bounded only by the caller's context.
func NewChecker(timeout time.Duration, logger observability.Logger) *Checker {
	return &Checker{
		probes:    make(map[string]Probe),
		timeout:   timeout,
		startTime: time.Now(),
		logger:    logger.WithFields(observability.Component("health")),
	}
}

// SetConcurrency bounds how many probes Check runs at once. A non-positive
// n removes the bound.
func (c *Checker) SetConcurrency(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limit = n
}

// Register adds or replaces the probe called name.
func (c *Checker) Register(name string, probe Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = probe
}

// Unregister removes the probe called name.
func (c *Checker) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.probes, name)
}

// Names returns the registered probe names in sorted order.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.probes))
	for name := range c.probes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Check runs every probe and aggregates the results. With no probes the
// service is healthy.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.RLock()
	probes := make(map[string]Probe, len(c.probes))
	for name, p := range c.probes {
		probes[name] = p
	}
	limit := c.limit
	c.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string]CheckResult, len(probes))
	)
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for name, probe := range probes {
		g.Go(func() error {
			result := c.run(gctx, name, probe)
			mu.Lock()
			results[name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Checks:    results,
		Summary:   Summary{Total: len(results)},
	}
	for _, r := range results {
		if r.Passed {
			report.Summary.Healthy++
			continue
		}
		report.Summary.Unhealthy++
		report.Status = StatusUnhealthy
	}
	return report
}

func (c *Checker) run(ctx context.Context, name string, probe Probe) (result CheckResult) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			result = CheckResult{Duration: time.Since(start), Error: fmt.Sprintf("probe panicked: %v", p)}
		}
		if !result.Passed {
			c.logger.Warn(ctx, "Health check failed",
				observability.String("probe", name),
				observability.String("error", result.Error),
				observability.Duration("duration", result.Duration),
			)
		}
	}()

	err := probe(ctx)
	if err == nil {
		// A probe that ignores its context still fails once the deadline passed.
		err = ctx.Err()
	}

	result = CheckResult{Passed: err == nil, Duration: time.Since(start)}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

// Handler returns an endpoint answering 200 with the report when every probe
// passes and 503 otherwise.
func (c *Checker) Handler() pipeline.Handler {
	return pipeline.EndpointFunc(func(req *envelope.Request) (*envelope.Request, error) {
		report := c.Check(req.Context())

		status := http.StatusOK
		if !report.Healthy() {
			status = http.StatusServiceUnavailable
		}

		res, err := envelope.JSON(status, report)
		if err != nil {
			return req.Fail(err)
		}
		res.WithHeader("Cache-Control", "no-store")
		req.SetResponse(res)
		return req, nil
	})
}

// HTTPProbe checks that a GET of url answers with expectedStatus, or 200
// when expectedStatus is zero. A nil client uses http.DefaultClient.
func HTTPProbe(client *http.Client, url string, expectedStatus int) Probe {
	if client == nil {
		client = http.DefaultClient
	}
	if expectedStatus == 0 {
		expectedStatus = http.StatusOK
	}

	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("health check request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != expectedStatus {
			return fmt.Errorf("unexpected status code: %d, expected: %d", resp.StatusCode, expectedStatus)
		}
		return nil
	}
}
