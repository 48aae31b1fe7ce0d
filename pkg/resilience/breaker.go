package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/logger"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when the breaker rejects a call without executing it.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Settings configures a CircuitBreaker.
type Settings struct {
	Name             string
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	SuccessThreshold uint32
	// IsFailure decides which errors count against the breaker. Nil counts every error.
	IsFailure func(error) bool
}

// Operation is a unit of work guarded by a breaker or retried.
type Operation func(ctx context.Context) (interface{}, error)

// CircuitBreaker wraps gobreaker with metrics, logging and a fallback hook.
type CircuitBreaker struct {
	name     string
	cb       *gobreaker.CircuitBreaker
	fallback FallbackFunc
	// isFailure is consulted inside Execute so that ignored errors do not trip the breaker.
	isFailure func(error) bool
}

// NewCircuitBreaker creates a breaker. A nil fallback behaves like NoopFallback.
func NewCircuitBreaker(settings Settings, fallback FallbackFunc) *CircuitBreaker {
	name := nextBreakerName(settings.Name)
	if fallback == nil {
		fallback = NoopFallback
	}

	failureThreshold := settings.FailureThreshold
	if failureThreshold == 0 {
		failureThreshold = 5
	}
	successThreshold := settings.SuccessThreshold
	if successThreshold == 0 {
		successThreshold = 1
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: successThreshold,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			recordBreakerStateChange(name, from, to)
		},
	})
	recordBreakerState(name, gobreaker.StateClosed)

	return &CircuitBreaker{
		name:      name,
		cb:        cb,
		fallback:  fallback,
		isFailure: settings.IsFailure,
	}
}

// Name returns the breaker name used for metrics.
func (b *CircuitBreaker) Name() string {
	return b.name
}

// State returns the current breaker state.
func (b *CircuitBreaker) State() gobreaker.State {
	return b.cb.State()
}

// ignoredError carries an error that must not count as a breaker failure.
type ignoredError struct {
	result interface{}
	err    error
}

func (e *ignoredError) Error() string { return e.err.Error() }

// Execute runs op through the breaker. When the breaker is open or saturated the
// fallback decides the outcome.
func (b *CircuitBreaker) Execute(ctx context.Context, op Operation) (interface{}, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		res, opErr := op(ctx)
		if opErr != nil && b.isFailure != nil && !b.isFailure(opErr) {
			// gobreaker only counts failures it sees, so hide this one and unwrap below.
			return &ignoredError{result: res, err: opErr}, nil
		}
		return res, opErr
	})

	if ignored, ok := result.(*ignoredError); ok && err == nil {
		recordBreakerCall(b.name, outcomeSuccess)
		return ignored.result, ignored.err
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		recordBreakerCall(b.name, outcomeRejected)
		return b.fallback(ctx, err)
	}
	if err != nil {
		recordBreakerCall(b.name, outcomeFailure)
		return result, err
	}
	recordBreakerCall(b.name, outcomeSuccess)
	return result, nil
}
