package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tabletrack.dev/app/internal/http/middleware"
	"tabletrack.dev/app/internal/notify"
)

type WSHandler struct {
	Hub    *notify.Hub
	Logger *slog.Logger

	upgrader websocket.Upgrader
}

func NewWSHandler(hub *notify.Hub, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		Hub:    hub,
		Logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// origin policy is enforced upstream with the session
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// GET /ws/customer — live events for the signed-in customer.
func (h *WSHandler) Customer(c *gin.Context) {
	client, ok := h.attach(c)
	if !ok {
		return
	}
	h.Hub.Join(client, notify.CustomerChannel(middleware.CurrentUserID(c)))
}

// GET /ws/orders/:id — joined while a client is viewing that order.
func (h *WSHandler) Order(c *gin.Context) {
	client, ok := h.attach(c)
	if !ok {
		return
	}
	h.Hub.Join(client, notify.OrderChannel(c.Param("id")))
}

// GET /admin/ws — the admin-wide channel.
func (h *WSHandler) Admin(c *gin.Context) {
	client, ok := h.attach(c)
	if !ok {
		return
	}
	h.Hub.Join(client, notify.ChannelAdmins)
}

func (h *WSHandler) attach(c *gin.Context) (*notify.Client, bool) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.Logger.Warn("ws upgrade failed", "err", err)
		return nil, false
	}
	return h.Hub.Attach(conn, h.Logger), true
}
