package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a non-critical dependency is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates a critical dependency is failing.
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

// DefaultTimeout bounds each probe.
const DefaultTimeout = 3 * time.Second

// Probe is a named dependency check. A failing critical probe makes the service unhealthy.
type Probe struct {
	Name     string
	Checker  Checker
	Critical bool
}

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	probes  []Probe
	timeout time.Duration
}

// New creates a Service. Probes with a nil Checker are skipped.
func New(timeout time.Duration, probes ...Probe) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	active := make([]Probe, 0, len(probes))
	for _, p := range probes {
		if p.Checker != nil {
			active = append(active, p)
		}
	}
	return &Service{probes: active, timeout: timeout}
}

// Check runs all probes concurrently, each bounded by the service timeout.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(s.probes))
		status = Healthy
	)

	var g errgroup.Group
	for _, p := range s.probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			err := p.Checker.HealthCheck(pctx)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				checks[p.Name] = CheckOK
				return nil
			}
			checks[p.Name] = CheckError
			switch {
			case p.Critical:
				status = Unhealthy
			case status == Healthy:
				status = Degraded
			}
			return nil
		})
	}
	_ = g.Wait()

	return Report{Status: status, Checks: checks}
}
