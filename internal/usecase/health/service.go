package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component failed; recommendations still work.
	Degraded Status = "degraded"
	// Unhealthy indicates a required component failed.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component is a named dependency. Required components turn a failure into Unhealthy.
type Component struct {
	Name     string
	Checker  Checker
	Required bool
}

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	components []Component
	timeout    time.Duration
}

// New creates a Service. Components with a nil Checker are skipped.
// timeout bounds each individual check; zero means no extra bound.
func New(timeout time.Duration, components ...Component) *Service {
	kept := make([]Component, 0, len(components))
	for _, c := range components {
		if c.Checker != nil {
			kept = append(kept, c)
		}
	}
	return &Service{components: kept, timeout: timeout}
}

// Check probes every component concurrently.
func (s *Service) Check(ctx context.Context) Report {
	errs := make([]error, len(s.components))
	var wg sync.WaitGroup
	for i, c := range s.components {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.check(ctx, c.Checker)
		}()
	}
	wg.Wait()

	report := Report{Status: Healthy, Checks: make(map[string]CheckResult, len(s.components))}
	for i, c := range s.components {
		if errs[i] == nil {
			report.Checks[c.Name] = CheckOK
			continue
		}
		report.Checks[c.Name] = CheckError
		switch {
		case c.Required:
			report.Status = Unhealthy
		case report.Status == Healthy:
			report.Status = Degraded
		}
	}
	return report
}

func (s *Service) check(ctx context.Context, c Checker) error {
	if s.timeout <= 0 {
		return c.HealthCheck(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return c.HealthCheck(ctx)
}
