package runtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"chat-presence/domain"
	"chat-presence/domain/event"
	"chat-presence/observability"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelError)
}

func authenticated(userID string, buffer int) *Session {
	s := newSession(context.Background(), domain.Identity{UserID: userID}, buffer)
	s.setState(StateAuthenticated)
	return s
}

func newTestDirectory() *Directory {
	return NewDirectory(testLogger(), observability.NewMetrics())
}

// drain returns every frame queued for s so far.
func drain(t *testing.T, s *Session) []event.Envelope {
	t.Helper()
	var out []event.Envelope
	for {
		select {
		case frame := <-s.Outbound():
			env, err := event.Decode(frame)
			require.NoError(t, err)
			out = append(out, env)
		default:
			return out
		}
	}
}

func ofType(envs []event.Envelope, t event.Type) []event.Envelope {
	var out []event.Envelope
	for _, env := range envs {
		if env.Event == t {
			out = append(out, env)
		}
	}
	return out
}

func payloadOf[T any](t *testing.T, env event.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}
