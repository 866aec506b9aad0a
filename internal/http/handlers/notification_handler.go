// README: Push notification handler.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridewave/internal/modules/notify"
)

type NotificationHandler struct {
	push notify.Sender
}

func NewNotificationHandler(push notify.Sender) *NotificationHandler {
	return &NotificationHandler{push: push}
}

type sendNotificationReq struct {
	Title  string          `json:"title"`
	Body   string          `json:"body"`
	Tokens json.RawMessage `json:"tokens"`
}

func (h *NotificationHandler) Send(c *gin.Context) {
	var req sendNotificationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	var tokens []string
	if err := json.Unmarshal(req.Tokens, &tokens); err != nil || tokens == nil {
		writeError(c, http.StatusBadRequest, notify.ErrNoTokens.Error())
		return
	}
	msg, err := notify.Message{Title: req.Title, Body: req.Body, Tokens: tokens}.Validate()
	if err != nil {
		writeDomainError(c, err)
		return
	}
	report, err := h.push.Send(c.Request.Context(), msg)
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusBadGateway, "push delivery failed")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"message": "Notifications sent", "response": report})
}
