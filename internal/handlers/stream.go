package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const pingInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Any origin; the admin key guards the stream.
		return true
	},
}

// GET /api/admin/orders/stream pushes order.created and order.updated
// events to the dashboard.
func (h *Handler) OrderStream(c *gin.Context) {
	if h.Stream == nil {
		fail(c, http.StatusServiceUnavailable, "Live updates unavailable")
		return
	}

	ctx := c.Request.Context()
	sub, err := h.Stream.Subscribe(ctx)
	if err != nil {
		h.internal(c, "subscribe orders", err)
		return
	}
	defer sub.Close()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("❌ websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Reader loop: only used to notice the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(gin.H{"type": "connected"}); err != nil {
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case event, open := <-sub.Events():
			if !open {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				h.Logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-ctx.Done():
			return
		}
	}
}
