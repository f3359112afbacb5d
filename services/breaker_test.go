package services

import (
	"context"
	stderrors "errors"
	"log/slog"
	"testing"
	"time"

	"chat-presence/errors"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestGuard_ClientErrorsDoNotTrip(t *testing.T) {
	req := require.New(t)
	breaker := NewBreaker(BreakerConfig{Name: "test", MaxFailures: 1, OpenTimeout: time.Minute}, logs.GetLoggerFromLevel(slog.LevelError), nil)

	// Given storage that answers not-found and a caller that gives up
	for i := 0; i < 5; i++ {
		_, err := guard(breaker, func() (string, error) { return "", errors.ErrUserNotFound })
		req.ErrorIs(err, errors.ErrUserNotFound)
		req.NotErrorIs(err, errors.ErrStorage)
	}
	_, err := guard(breaker, func() (string, error) { return "", context.Canceled })
	req.ErrorIs(err, context.Canceled)

	// Then the breaker stays closed
	req.False(breaker.Open())
}

func TestGuard_InfrastructureFailureOpens(t *testing.T) {
	req := require.New(t)
	breaker := NewBreaker(BreakerConfig{Name: "test", MaxFailures: 1, OpenTimeout: time.Minute}, logs.GetLoggerFromLevel(slog.LevelError), nil)

	// When storage fails once
	_, err := guard(breaker, func() (string, error) { return "", stderrors.New("io error") })
	req.ErrorIs(err, errors.ErrStorage)
	req.True(breaker.Open())

	// Then the next call is refused without running
	called := false
	_, err = guard(breaker, func() (string, error) {
		called = true
		return "ok", nil
	})
	req.ErrorIs(err, errors.ErrStorage)
	req.Equal(500, errors.Code(err))
	req.False(called)
}

func TestGuard_ReturnsValue(t *testing.T) {
	req := require.New(t)
	breaker := NewBreaker(BreakerConfig{Name: "test", MaxFailures: 1, OpenTimeout: time.Minute}, logs.GetLoggerFromLevel(slog.LevelError), nil)

	v, err := guard(breaker, func() ([]string, error) { return nil, nil })

	req.NoError(err)
	req.Nil(v)
}
