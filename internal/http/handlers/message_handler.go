// README: Inbound message endpoint.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resbot/internal/bot"
	"resbot/internal/types"
)

type MessageHandler struct {
	engine *bot.Engine
}

func NewMessageHandler(engine *bot.Engine) *MessageHandler {
	return &MessageHandler{engine: engine}
}

type messageReq struct {
	CompanyID string `json:"companyId"`
	UserID    string `json:"userId"`
	Phone     string `json:"phone"`
	Message   string `json:"message"`
}

func (h *MessageHandler) Handle(c *gin.Context) {
	var req messageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.CompanyID == "" || req.Message == "" {
		writeError(c, http.StatusBadRequest, "missing fields")
		return
	}
	if (req.UserID == "") == (req.Phone == "") {
		writeError(c, http.StatusBadRequest, "exactly one of userId or phone is required")
		return
	}

	resp, err := h.engine.HandleMessage(c.Request.Context(), bot.Request{
		CompanyID: types.ID(req.CompanyID),
		UserID:    types.ID(req.UserID),
		Phone:     req.Phone,
		Message:   req.Message,
	})
	if err != nil {
		// The user still gets a reply; the error already hit logs and metrics.
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		c.JSON(status, gin.H{
			"reply": h.engine.ErrorReply(c.Request.Context(), types.ID(req.CompanyID)),
		})
		return
	}
	writeJSON(c, http.StatusOK, resp)
}
