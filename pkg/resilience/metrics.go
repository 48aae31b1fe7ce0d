package resilience

import (
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

// Outcomes recorded on finsight_breaker_calls_total
const (
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeRejected = "rejected"
)

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "finsight_breaker_state",
		Help: "Breaker state per dependency: 0 closed, 1 half-open, 2 open",
	}, []string{"dependency"})

	breakerCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finsight_breaker_calls_total",
		Help: "Calls routed through a breaker by outcome",
	}, []string{"dependency", "outcome"})

	breakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finsight_breaker_transitions_total",
		Help: "Breaker state transitions",
	}, []string{"dependency", "from", "to"})

	anonymousBreakers uint64
)

func nextBreakerName(base string) string {
	if base != "" {
		return base
	}
	return fmt.Sprintf("dependency-%d", atomic.AddUint64(&anonymousBreakers, 1))
}

func stateGaugeValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}

func recordBreakerState(name string, state gobreaker.State) {
	breakerState.WithLabelValues(name).Set(stateGaugeValue(state))
}

func recordBreakerStateChange(name string, from, to gobreaker.State) {
	breakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
	recordBreakerState(name, to)
}

func recordBreakerCall(name, outcome string) {
	breakerCalls.WithLabelValues(name, outcome).Inc()
}
