package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
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

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	engine EnginePinger
	redis  RedisPinger
}

// New creates a Service. redis can be nil when no Redis is configured.
func New(engine EnginePinger, redis RedisPinger) *Service {
	return &Service{engine: engine, redis: redis}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks["engine"] = check(ctx, s.engine.Ping)
	if s.redis != nil {
		checks["redis"] = check(ctx, s.redis.Ping)
	}

	// Without the engine nothing can be indexed or searched; a Redis outage
	// only loses dead letters and resume tokens.
	status := Healthy
	switch {
	case checks["engine"] == CheckError:
		status = Unhealthy
	case checks["redis"] == CheckError:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}

func check(ctx context.Context, ping func(context.Context) error) CheckResult {
	if err := ping(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
