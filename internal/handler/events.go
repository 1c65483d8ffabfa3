package handler

import (
	"net/http"
	"strconv"

	"github.com/GoStableSwap/riskgate/internal/service"
	"github.com/GoStableSwap/riskgate/internal/stream"
	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	events *service.EventService
	hub    *stream.Hub
}

func NewEventHandler(events *service.EventService, hub *stream.Hub) *EventHandler {
	return &EventHandler{events: events, hub: hub}
}

// ListEvents returns recent emitted records, newest first.
// GET /v1/events?type=&limit=
func (h *EventHandler) ListEvents(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	events, err := h.events.List(c.Request.Context(), c.Query("type"), limit)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// StreamEvents upgrades to a websocket subscription on the live record feed.
// GET /v1/events/stream
func (h *EventHandler) StreamEvents(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}
