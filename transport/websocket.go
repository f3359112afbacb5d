// Package transport binds sessions to websocket connections.
package transport

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chat-presence/auth"
	apperrors "chat-presence/errors"
	"chat-presence/runtime"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	defaultMaxFrameSize = 64 * 1024
)

type Config struct {
	// AllowedOrigins lists accepted Origin headers, "*" accepts any.
	// Requests without an Origin header are always accepted.
	AllowedOrigins []string
	MaxFrameSize   int64
}

type WebSocketHandler struct {
	log      *slog.Logger
	router   *runtime.Router
	upgrader websocket.Upgrader
	cfg      Config
}

func NewWebSocketHandler(log *slog.Logger, router *runtime.Router, cfg Config) *WebSocketHandler {
	if cfg.MaxFrameSize <= 0 {
		cfg.MaxFrameSize = defaultMaxFrameSize
	}
	h := &WebSocketHandler{log: log, router: router, cfg: cfg}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// ServeHTTP authenticates before upgrading. A refused handshake never reaches the router.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.router.Accepting() {
		http.Error(w, apperrors.ErrUnavailable.Error(), http.StatusServiceUnavailable)
		return
	}
	identity, err := h.router.Authenticate(credential(r))
	if err != nil {
		http.Error(w, apperrors.Message(err), http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("WebSocket upgrade failed", "user_id", identity.UserID, "error", err)
		return
	}
	session, err := h.router.Admit(r.Context(), identity)
	if err != nil {
		h.log.Info("Session refused", "user_id", identity.UserID, "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, apperrors.Message(err)),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	c := &connection{log: h.log, conn: conn, session: session, router: h.router}
	conn.SetReadLimit(h.cfg.MaxFrameSize)
	go c.writePump()
	go c.readPump()
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || lo.Contains(h.cfg.AllowedOrigins, "*") {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return lo.ContainsBy(h.cfg.AllowedOrigins, func(allowed string) bool {
		return strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host)
	})
}

// credential prefers the Authorization header over the token query parameter.
func credential(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return auth.BearerToken(header)
	}
	return r.URL.Query().Get("token")
}

type connection struct {
	log     *slog.Logger
	conn    *websocket.Conn
	session *runtime.Session
	router  *runtime.Router
}

func (c *connection) readPump() {
	defer func() {
		c.router.Disconnect(c.session)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		if err := c.router.Dispatch(c.session.Context(), c.session, raw); err != nil &&
			apperrors.Is(err, apperrors.ErrSessionClosed) {
			return
		}
	}
}

func (c *connection) logReadError(err error) {
	attrs := []any{"user_id", c.session.UserID(), "session_id", c.session.ID(), "error", err}
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("Frame exceeded the size limit", attrs...)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		c.log.Debug("Client closed the connection", attrs...)
	case websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
		c.log.Info("Unexpected close", attrs...)
	default:
		c.log.Debug("Connection read ended", attrs...)
	}
}

// writePump is the only writer of the connection.
// Once the session closes, frames already queued are flushed before the close frame.
func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.session.Outbound():
			if !c.write(frame) || !c.flush() {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.session.Done():
			c.flush()
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
				time.Now().Add(writeWait))
			return
		}
	}
}

// flush writes what is queued right now without waiting for more.
func (c *connection) flush() bool {
	for range len(c.session.Outbound()) {
		if !c.write(<-c.session.Outbound()) {
			return false
		}
	}
	return true
}

func (c *connection) write(frame []byte) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.log.Debug("Write failed", "user_id", c.session.UserID(), "session_id", c.session.ID(), "error", err)
		return false
	}
	return true
}
