package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/healer-app/messaging/internal/common"
)

// GetConversation returns the full ordered conversation between the caller
// and the counterpart user. Used for initial chat load and after a reconnect;
// there is no server-side replay buffer.
func (h *Handler) GetConversation(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	recipientID, err := strconv.ParseUint(c.Param("recipientId"), 10, 64)
	if err != nil || recipientID == 0 {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid recipient id")
		return
	}

	msgs, err := h.ChatSvc.FindConversation(c.Request.Context(), uid, recipientID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to fetch messages")
		return
	}

	common.OK(c, gin.H{"messages": msgs})
}
