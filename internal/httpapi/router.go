package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healer-app/messaging/internal/chat"
	"github.com/healer-app/messaging/internal/common"
	"github.com/healer-app/messaging/internal/config"
	"github.com/healer-app/messaging/internal/httpapi/handlers"
	"github.com/healer-app/messaging/internal/httpapi/middleware"
	"github.com/healer-app/messaging/internal/realtime"
)

func NewRouter(cfg config.Config, chatSvc *chat.Service, gateway *realtime.Gateway) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	h := handlers.NewHandler(chatSvc)

	r.GET("/ping", h.Ping)

	// realtime gateway; credential is verified inside the handshake
	r.GET("/ws", gateway.HandleWS)

	authGroup := r.Group("/api")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/messages/:recipientId", h.GetConversation)

	return r
}
