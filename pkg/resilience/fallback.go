package resilience

import (
	"context"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/logger"
	"go.uber.org/zap"
)

// FallbackFunc decides the outcome of a call the breaker refused to run.
type FallbackFunc func(ctx context.Context, err error) (interface{}, error)

// NoopFallback surfaces ErrCircuitOpen.
func NoopFallback(ctx context.Context, err error) (interface{}, error) {
	return nil, ErrCircuitOpen
}

// GracefulDegradation logs the refusal against the dependency name and surfaces ErrCircuitOpen.
func GracefulDegradation(dependency string) FallbackFunc {
	return func(ctx context.Context, err error) (interface{}, error) {
		logger.WithContext(ctx).Warn("circuit breaker open, dependency degraded",
			zap.String("dependency", dependency),
			zap.Error(err),
		)
		return nil, ErrCircuitOpen
	}
}
