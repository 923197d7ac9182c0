package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/gopherchat/internal/common"
	"github.com/suPer8Hu/gopherchat/internal/config"
	"github.com/suPer8Hu/gopherchat/internal/httpapi/handlers"
	"github.com/suPer8Hu/gopherchat/internal/httpapi/middleware"
	"github.com/suPer8Hu/gopherchat/internal/logger"
)

func NewRouter(cfg config.Config, h *handlers.Handler, log *logger.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(log))
	r.Use(gin.Logger())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/ping", h.Ping)

	v1 := r.Group("/v1")

	// identity provider's write boundary, guarded by a shared secret
	v1.POST("/users/sync", h.SyncUser)

	authed := v1.Group("")
	authed.Use(middleware.AuthRequired(cfg.JWTSecret))

	authed.GET("/me", h.Me)
	authed.GET("/users/search", h.SearchUsers)
	authed.GET("/users/:id", h.GetUserByID)

	authed.POST("/conversations", h.OpenConversation)
	authed.GET("/conversations", h.ListConversations)
	authed.GET("/conversations/:conversation_id/messages", h.GetMessages)
	authed.POST("/conversations/:conversation_id/messages", h.SendMessage)
	authed.POST("/conversations/:conversation_id/read", h.MarkRead)

	authed.GET("/ws/conversations", h.SubscribeConversationsWS)
	authed.GET("/ws/conversations/:conversation_id", h.SubscribeMessagesWS)

	return r
}
