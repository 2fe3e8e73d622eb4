package upstream

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	defaultBreakerThreshold = 5
	defaultBreakerCooldown  = 30 * time.Second
)

// breaker guards one upstream. It opens after a run of consecutive failures
// and lets a single probe through once the cooldown has elapsed.
type breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[[]byte]
}

func newBreaker(name string, threshold uint32, cooldown time.Duration, logger *zap.Logger) *breaker {
	if threshold == 0 {
		threshold = defaultBreakerThreshold
	}
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}

	breakerState.WithLabelValues(name).Set(stateToFloat(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("Circuit breaker state transition",
				zap.String("upstream", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			breakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &breaker{name: name, cb: cb}
}

func (b *breaker) execute(fn func() ([]byte, error)) ([]byte, error) {
	return b.cb.Execute(fn)
}

// countsAsSuccess keeps client-side outcomes from tripping the breaker:
// a 4xx means the upstream is healthy, and a canceled caller says nothing about it.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode < 500 && statusErr.StatusCode != 429
	}
	return false
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return -1
	}
}
