package tracing

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/prasenjit/go-pact/internal/logging"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
)

// WebSocketHandler streams live traces over a websocket
type WebSocketHandler struct {
	service  *Service
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(service *Service, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		service: service,
		logger:  logging.OrNop(logger).With("component", "trace-stream"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the admin listener binds to loopback by default
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and writes each new trace as a JSON text frame
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	subID, traces := h.service.Subscribe()
	defer h.service.Unsubscribe(subID)
	h.logger.Debug("subscriber connected", "id", subID, "remote", r.RemoteAddr)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case trace, ok := <-traces:
			if !ok {
				return
			}
			data, err := json.Marshal(trace)
			if err != nil {
				h.logger.Error("encode trace", "id", trace.ID, "error", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("subscriber gone", "id", subID, "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
