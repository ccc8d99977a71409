package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"campus_chat/internal/service"
)

// 定義 WebSocket 升級器
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 注意：在生產環境中，應該檢查 origin
	},
}

// WebSocketHandler 處理 WebSocket 連接
type WebSocketHandler struct {
	wsManager         *service.WebSocketManager
	membershipService *service.MembershipService
}

// NewWebSocketHandler 創建一個新的 WebSocketHandler 實例
func NewWebSocketHandler(wsManager *service.WebSocketManager, membershipService *service.MembershipService) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:         wsManager,
		membershipService: membershipService,
	}
}

// HandleWebSocket 處理訂閱房間訊息流的 WebSocket 連接請求。
// 成員資格檢查在升級連接之前完成；同一用戶可以開多個連接（多裝置），
// 每個連接都會收到完整的訊息流，包含自己發送的訊息。
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	roomID, err := parseRoomID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不存在的房間ID"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	// 非成員不能訂閱
	isMember, err := h.membershipService.IsMember(roomID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !isMember {
		c.JSON(http.StatusForbidden, gin.H{"error": "用戶未加入此房間"})
		return
	}

	// 升級 HTTP 連接為 WebSocket 連接
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "升級WebSocket失敗"})
		return
	}

	// 阻塞直到客戶端斷線，清理由管理器負責
	h.wsManager.HandleConnection(conn, roomID, userID)
}
