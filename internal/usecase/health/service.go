package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates the service cannot attribute anything.
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

const defaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	cache      CachePinger
	embedding  EmbeddingChecker
	prototypes PrototypeCounter
	timeout    time.Duration
}

// New creates a Service. Any dependency can be nil; nil ones are not reported.
func New(cache CachePinger, embedding EmbeddingChecker, prototypes PrototypeCounter) *Service {
	return &Service{
		cache:      cache,
		embedding:  embedding,
		prototypes: prototypes,
		timeout:    defaultCheckTimeout,
	}
}

// WithTimeout bounds each individual check.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs health checks against all components.
// Missing prototypes make the service unhealthy; other failures degrade it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.cache != nil {
		checks["cache"] = s.run(ctx, s.cache.Ping)
	}
	if s.embedding != nil {
		checks["embedding"] = s.run(ctx, s.embedding.HealthCheck)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	if s.prototypes != nil {
		if s.prototypes.Len() > 0 {
			checks["prototypes"] = CheckOK
		} else {
			checks["prototypes"] = CheckError
			status = Unhealthy
		}
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) run(ctx context.Context, check func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := check(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
