package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(ctx context.Context) (interface{}, error) {
	return nil, errTransient
}

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{
		Name:             "trip-test",
		Timeout:          time.Minute,
		FailureThreshold: 2,
	}, NoopFallback)

	_, err := breaker.Execute(context.Background(), failing)
	assert.ErrorIs(t, err, errTransient)
	_, err = breaker.Execute(context.Background(), failing)
	assert.ErrorIs(t, err, errTransient)

	assert.Equal(t, gobreaker.StateOpen, breaker.State())

	calls := 0
	_, err = breaker.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return "never", nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls)
}

func TestCircuitBreaker_CustomFallback(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{
		Name:             "fallback-test",
		Timeout:          time.Minute,
		FailureThreshold: 1,
	}, func(ctx context.Context, err error) (interface{}, error) {
		return "cached", nil
	})

	_, _ = breaker.Execute(context.Background(), failing)
	result, err := breaker.Execute(context.Background(), failing)

	require.NoError(t, err)
	assert.Equal(t, "cached", result)
}

func TestCircuitBreaker_IgnoredErrorsDoNotTrip(t *testing.T) {
	errClient := errors.New("bad input")
	breaker := NewCircuitBreaker(Settings{
		Name:             "ignore-test",
		Timeout:          time.Minute,
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return !errors.Is(err, errClient) },
	}, nil)

	for i := 0; i < 3; i++ {
		_, err := breaker.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
			return nil, errClient
		})
		assert.ErrorIs(t, err, errClient)
	}
	assert.Equal(t, gobreaker.StateClosed, breaker.State())
}

func TestRetryWithBreaker_RecoversWithinBudget(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{Name: "retry-breaker", Timeout: time.Second, FailureThreshold: 3}, NoopFallback)

	calls := 0
	result, err := RetryWithBreaker(context.Background(), fastConfig(3), breaker, func(ctx context.Context) (interface{}, error) {
		calls++
		if calls == 1 {
			return nil, errTransient
		}
		return "scored", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "scored", result)
	assert.Equal(t, 2, calls)
}

func TestBuildSettings_Defaults(t *testing.T) {
	s := BuildSettings("classifier", 0, -1, 0, 0)

	assert.Equal(t, "classifier", s.Name)
	assert.Equal(t, time.Minute, s.Interval)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.Equal(t, uint32(5), s.FailureThreshold)
	assert.Equal(t, uint32(1), s.SuccessThreshold)

	s = BuildSettings("classifier", 10, 5, 3, 2)
	assert.Equal(t, 10*time.Second, s.Interval)
	assert.Equal(t, uint32(3), s.FailureThreshold)
}

func TestCircuitBreaker_RecordsOutcomes(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{Name: "metrics-test", Timeout: time.Minute, FailureThreshold: 1}, NoopFallback)

	_, _ = breaker.Execute(context.Background(), func(ctx context.Context) (interface{}, error) { return "ok", nil })
	_, _ = breaker.Execute(context.Background(), failing)
	_, _ = breaker.Execute(context.Background(), failing)

	assert.Equal(t, 1.0, testutil.ToFloat64(breakerCalls.WithLabelValues("metrics-test", outcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(breakerCalls.WithLabelValues("metrics-test", outcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(breakerCalls.WithLabelValues("metrics-test", outcomeRejected)))
	assert.Equal(t, 2.0, testutil.ToFloat64(breakerState.WithLabelValues("metrics-test")))
}
