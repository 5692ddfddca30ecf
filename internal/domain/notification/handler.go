package notification

import (
	"context"
	"log/slog"
	"net/http"

	"hookrelay/internal/common"

	"github.com/gin-gonic/gin"
)

// Sender is the part of the Dispatcher the HTTP handler needs.
type Sender interface {
	Send(ctx context.Context, msg *Message) *Outcome
}

// Handler handles HTTP requests for the notification domain.
type Handler struct {
	sender Sender
}

// NewHandler creates a new notification handler.
func NewHandler(sender Sender) *Handler {
	return &Handler{sender: sender}
}

// Notify handles POST /api/v1/notify
// Delivers the message synchronously and reports the webhook's answer.
func (h *Handler) Notify(c *gin.Context) {
	var msg Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	outcome := h.sender.Send(c.Request.Context(), &msg)
	if !outcome.Delivered {
		slog.Error("notify request failed",
			"error", outcome.Err,
			"template", msg.Template,
			"request_id", c.GetString(common.RequestIDKey),
		)
		common.HandleError(c, outcome.Err)
		return
	}

	common.Success(c, http.StatusOK, outcome.Text(), gin.H{
		"status_code": outcome.StatusCode,
	})
}

// RegisterRoutes registers notification routes to the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/notify", h.Notify)
}
