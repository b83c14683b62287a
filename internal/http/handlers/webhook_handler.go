// README: Payment-provider webhook endpoint (idempotent per reference).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resbot/internal/bot"
	"resbot/internal/modules/payment"
)

type WebhookHandler struct {
	engine *bot.Engine
}

func NewWebhookHandler(engine *bot.Engine) *WebhookHandler {
	return &WebhookHandler{engine: engine}
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	var ev payment.WebhookEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if ev.Reference == "" || ev.Status == "" {
		writeError(c, http.StatusBadRequest, "missing reference or status")
		return
	}

	if err := h.engine.ProcessPaymentEvent(c.Request.Context(), ev); err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			writeError(c, http.StatusNotFound, "unknown reference")
			return
		}
		writeError(c, http.StatusInternalServerError, "webhook processing failed")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}
