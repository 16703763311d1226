// Package httpapi is the external surface: a REST API for state reads and
// writes, plus one websocket endpoint for push delivery.
package httpapi

import (
	"chat-hub/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires every route. Registration and login are open; everything
// else sits behind the token middleware, including the websocket upgrade.
func NewRouter(handlers *Handlers, ws *WSHandler, authService services.IAuthService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}
	r.Use(cors.New(corsConfig))

	api := r.Group("/api")
	api.POST("/register", handlers.Register)
	api.POST("/login", handlers.Login)

	protected := api.Group("")
	protected.Use(TokenAuthMiddleware(authService))
	{
		protected.GET("/user", handlers.CurrentUser)
		protected.GET("/users", handlers.ListUsers)
		protected.GET("/chats", handlers.ListChats)
		protected.POST("/chats", handlers.CreateChat)
		protected.POST("/chats/:chatId/members", handlers.AddMember)
		protected.GET("/chats/:chatId/messages", handlers.ListMessages)
		protected.POST("/chats/:chatId/messages", handlers.PostMessage)
		protected.GET("/chats/:chatId/messages/search", handlers.SearchMessages)
		protected.POST("/messages/:messageId/read", handlers.MarkRead)
		protected.GET("/stats", handlers.Stats)
	}

	wsRoute := r.Group("/ws")
	wsRoute.Use(TokenAuthMiddleware(authService))
	wsRoute.GET("", ws.Handle)

	return r
}
