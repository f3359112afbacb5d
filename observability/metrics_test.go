package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	require.NotPanics(t, func() {
		m.SetOnline(3)
		m.EventRejected("sendMessage", 403)
		m.FrameDropped()
		m.SetBreakerState("storage", 2)
	})
}

func TestMetrics_RecordsAndExposes(t *testing.T) {
	req := require.New(t)
	m := NewMetrics()

	// Given some activity
	m.SetOnline(2)
	m.EventRejected("joinGroup", 403)
	m.EventRejected("joinGroup", 403)
	m.FrameDropped()

	// When the registry is scraped
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	// Then the values are exposed
	req.Equal(200, rec.Code)
	body := rec.Body.String()
	req.Contains(body, "chat_presence_online_users 2")
	req.Contains(body, `chat_presence_events_rejected_total{code="403",event="joinGroup"} 2`)
	req.Contains(body, "chat_presence_frames_dropped_total 1")
}
