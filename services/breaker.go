package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"chat-presence/errors"
	"chat-presence/observability"

	"github.com/sony/gobreaker"
)

type BreakerConfig struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
}

// Breaker guards one storage path.
// Only infrastructure failures count. Not-found, conflicts and cancelled callers are answers, not outages.
type Breaker struct {
	cb      *gobreaker.CircuitBreaker
	metrics *observability.Metrics
}

func NewBreaker(cfg BreakerConfig, log *slog.Logger, metrics *observability.Metrics) *Breaker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	metrics.SetBreakerState(cfg.Name, int(gobreaker.StateClosed))
	return &Breaker{
		metrics: metrics,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    cfg.Name,
			Timeout: cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.MaxFailures
			},
			IsSuccessful: storageAnswered,
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
				metrics.SetBreakerState(name, int(to))
			},
		}),
	}
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Open is true while calls are refused without reaching storage.
func (b *Breaker) Open() bool {
	return b.cb.State() == gobreaker.StateOpen
}

func storageAnswered(err error) bool {
	return err == nil || errors.Code(err) < 500 || stderrors.Is(err, context.Canceled)
}

// guard runs fn through the breaker.
// Failures come back wrapped in errors.ErrStorage, client errors come back untouched.
func guard[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	v, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	switch {
	case err == nil:
		return v.(T), nil
	case stderrors.Is(err, gobreaker.ErrOpenState), stderrors.Is(err, gobreaker.ErrTooManyRequests):
		b.metrics.StorageFailed()
		return zero, fmt.Errorf("%w: circuit %s", errors.ErrStorage, err)
	case storageAnswered(err):
		return zero, err
	default:
		b.metrics.StorageFailed()
		return zero, fmt.Errorf("%w: %w", errors.ErrStorage, err)
	}
}
