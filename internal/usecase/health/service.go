package health

import (
	"context"
	"sync"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all backends are reachable.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual backend health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	backends []BackendChecker
}

// New creates a Service. Nil checkers are skipped.
func New(backends ...BackendChecker) *Service {
	s := &Service{}
	for _, b := range backends {
		if b != nil {
			s.backends = append(s.backends, b)
		}
	}
	return s
}

// Check asks every backend for liveness concurrently.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.backends))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, b := range s.backends {
		wg.Add(1)
		go func(b BackendChecker) {
			defer wg.Done()
			res := CheckOK
			if err := b.HealthCheck(ctx); err != nil {
				res = CheckError
			}
			mu.Lock()
			checks[b.Name()] = res
			mu.Unlock()
		}(b)
	}
	wg.Wait()

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed > 0 && failed == len(checks):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
