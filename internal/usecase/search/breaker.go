package search

import (
	"context"
	"errors"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

func newBreaker(bs BreakerSettings, logger *zap.Logger) *gobreaker.CircuitBreaker[struct{}] {
	threshold := bs.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "unit-index",
		MaxRequests: bs.MaxRequests,
		Interval:    bs.Interval,
		Timeout:     bs.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up says nothing about index health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// guarded runs fn through the breaker and hands back its result.
func guarded[T any](cb *gobreaker.CircuitBreaker[struct{}], fn func() (T, error)) (T, error) {
	var out T
	_, err := cb.Execute(func() (struct{}, error) {
		v, err := fn()
		if err != nil {
			return struct{}{}, err
		}
		out = v
		return struct{}{}, nil
	})
	return out, err
}
