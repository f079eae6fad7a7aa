package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"barbershop-system/internal/events"
	"barbershop-system/internal/gateway/middleware"
)

const heartbeatInterval = 25 * time.Second

// EventsHTTPHandler streams company events to the browser as SSE.
type EventsHTTPHandler struct {
	subscriber events.Subscriber
}

func NewEventsHTTPHandler(subscriber events.Subscriber) *EventsHTTPHandler {
	return &EventsHTTPHandler{subscriber: subscriber}
}

func (h *EventsHTTPHandler) Stream(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("Authentication required"))
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	ch, err := h.subscriber.Subscribe(ctx, sess.CompanyID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse("Event stream unavailable"))
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, open := <-ch:
			if !open {
				return false
			}
			// Barbers only see events about their own sales.
			if !sess.CanManage() && ev.ActorID != sess.UserID && ev.Data["staff_id"] != sess.StaffID {
				return true
			}
			c.SSEvent(string(ev.Type), ev)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
}

func (h *EventsHTTPHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/events", h.Stream)
}
