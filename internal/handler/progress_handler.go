package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"facturas/internal/progress"
)

// ProgressHandler streams batch progress events to observers.
type ProgressHandler struct {
	bus *progress.Bus
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(bus *progress.Bus) *ProgressHandler {
	return &ProgressHandler{bus: bus}
}

// Events handles GET /api/v1/progress/events. It streams progress events as
// server-sent events until the client disconnects.
func (h *ProgressHandler) Events(c *gin.Context) {
	events, cancel := h.bus.Subscribe()
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			return true
		}
	})
}
