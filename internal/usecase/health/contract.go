package health

import "context"

// BackendChecker checks demo backend availability.
type BackendChecker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}
