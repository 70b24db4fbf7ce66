package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/healer-app/messaging/internal/chat"
	"github.com/healer-app/messaging/internal/common"
	"github.com/healer-app/messaging/internal/httpapi/middleware"
)

type Handler struct {
	ChatSvc *chat.Service
}

func NewHandler(chatSvc *chat.Service) *Handler {
	return &Handler{ChatSvc: chatSvc}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

func userIDFromContext(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
