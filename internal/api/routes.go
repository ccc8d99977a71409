package api

import (
	"net/http"

	"campus_chat/internal/api/handlers"
	"campus_chat/internal/middleware"
	"campus_chat/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, services *service.Services) {
	// 初始化 handlers
	authHandler := handlers.NewAuthHandler(services.User)
	roomHandler := handlers.NewRoomHandler(services.Room, services.Membership)
	messageHandler := handlers.NewMessageHandler(services.Message, services.ReadTracker)
	wsHandler := handlers.NewWebSocketHandler(services.WebSocketManager, services.Membership)

	// API 路由群組
	api := r.Group("/api")

	// 處理 404 錯誤
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "找不到該路徑",
		})
	})

	// 公開路由
	{
		// 用戶認證相關
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)

		// 基本的健康檢查
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})
	}

	// 需要驗證的路由
	authorized := api.Group("/")
	authorized.Use(middleware.AuthMiddleware())
	{
		// 聊天室相關
		rooms := authorized.Group("/rooms")
		{
			// 房間生命週期
			rooms.POST("", roomHandler.CreateGroupRoom)         // 建立群聊
			rooms.POST("/direct", roomHandler.CreateDirectRoom) // 查找或建立私聊
			rooms.GET("", roomHandler.ListMyRooms)              // 我加入的房間
			rooms.GET("/:id", roomHandler.GetRoom)              // 獲取房間信息

			// 成員管理
			rooms.GET("/:id/members", roomHandler.ListMembers)
			rooms.POST("/:id/invite", roomHandler.Invite)
			rooms.POST("/:id/kick", roomHandler.Kick)
			rooms.POST("/:id/leave", roomHandler.Leave)

			// 訊息
			rooms.POST("/:id/messages", messageHandler.Send)
			rooms.GET("/:id/messages", messageHandler.Fetch)
			rooms.POST("/:id/read", messageHandler.MarkRead)

			// WebSocket 連接（訂閱房間的即時訊息流）
			rooms.GET("/:id/ws", wsHandler.HandleWebSocket)
		}

		// 所有房間的未讀統計
		authorized.GET("/unread", messageHandler.UnreadCounts)
	}
}
