package handlers

import (
	"io"
	"time"

	"github.com/bhaskarRao-22/attendance-sync/internal/realtime"
	"github.com/gin-gonic/gin"
)

const (
	eventBuffer       = 32
	keepAliveInterval = 25 * time.Second
)

// EventHandler streams published events over Server-Sent Events.
type EventHandler struct {
	hub *realtime.Hub
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(hub *realtime.Hub) *EventHandler {
	return &EventHandler{hub: hub}
}

// Stream holds the connection open and forwards each event as it arrives.
func (h *EventHandler) Stream(c *gin.Context) {
	events, cancel := h.hub.Subscribe(eventBuffer)
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	c.SSEvent("ready", gin.H{"subscribers": h.hub.Subscribers()})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(event.Type, event)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().UTC().Unix())
			return true
		}
	})
}
