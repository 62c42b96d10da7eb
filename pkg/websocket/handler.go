package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridelink/internal/middleware"
	"ridelink/internal/models"
	"ridelink/pkg/logger"
)

type Handler struct {
	hub *Hub
}

func NewHandler(log *logger.Logger) *Handler {
	hub := NewHub(log)
	go hub.Run()

	return &Handler{hub: hub}
}

// HandleWebSocket upgrades an authenticated request and attaches the
// client to the hub. AuthRequired must run before this handler.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn, actor.ID, actor.Role == models.RoleDriver)
	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (h *Handler) GetHub() *Hub {
	return h.hub
}
