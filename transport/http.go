package transport

import (
	"encoding/json"
	"net/http"

	"chat-presence/observability"
	"chat-presence/runtime"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type health struct {
	Status string `json:"status"`
	Online int    `json:"online"`
}

// NewHTTPHandler mounts the websocket endpoint next to the ops endpoints.
func NewHTTPHandler(ws *WebSocketHandler, router *runtime.Router, metrics *observability.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/ws", ws)
	r.Get("/healthz", healthz(router))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

func healthz(router *runtime.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		body := health{Status: "ok", Online: router.Directory().Online()}
		code := http.StatusOK
		if !router.Accepting() {
			body.Status = "shutting_down"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	}
}
