package frontend

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sammcj/goose/internal/shared/id"
)

// Register mounts the frontend event stream and the confirmation reply route.
func (h *Hub) Register(r gin.IRouter) {
	r.GET("/api/events", h.stream)
	r.POST("/api/confirmations/:id", h.confirmReply)
}

// stream is the SSE endpoint the frontend holds open.
func (h *Hub) stream(c *gin.Context) {
	events, cancel := h.Subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Kind, ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

type confirmReplyBody struct {
	Accepted bool `json:"accepted"`
}

func (h *Hub) confirmReply(c *gin.Context) {
	var body confirmReplyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.Resolve(id.RequestID(c.Param("id")), body.Accepted) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown confirmation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolved": true})
}
