package api

import (
	"Lighthouse/internal/api/middleware"
	"Lighthouse/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		// WebSocket 自带 token 鉴权，不走 Header 中间件
		apiGroup.GET("/live", group.WSHandler.Connect)

		chatGroup := apiGroup.Group("/chat")
		chatGroup.Use(middleware.AuthMiddleware())
		{
			chatGroup.POST("/send", group.ChatHandler.SendMessage)
			chatGroup.POST("/read", group.ChatHandler.MarkAsRead)
			chatGroup.PUT("/message", group.ChatHandler.EditMessage)
			chatGroup.DELETE("/message", group.ChatHandler.DeleteMessage)
		}

		convGroup := apiGroup.Group("/conversations")
		convGroup.Use(middleware.AuthMiddleware())
		{
			convGroup.GET("/:conversation_id", group.ConversationHandler.GetConversation)
			convGroup.PUT("/:conversation_id/status", group.ConversationHandler.UpdateStatus)
			convGroup.PUT("/:conversation_id/panic", group.ConversationHandler.SetPanicRoom)
			convGroup.PUT("/:conversation_id/pushback", group.ConversationHandler.PushBack)
			convGroup.PUT("/:conversation_id/snooze", group.ConversationHandler.Snooze)
			convGroup.PUT("/:conversation_id/handled", group.ConversationHandler.MarkHandled)
		}

		queueGroup := apiGroup.Group("/queue")
		queueGroup.Use(middleware.AuthMiddleware())
		{
			queueGroup.GET("/live", group.QueueHandler.GetLiveQueue)
		}
	}

	return r
}
