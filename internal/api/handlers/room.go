package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campus_chat/internal/service"
)

// RoomHandler 處理與聊天室相關的請求
type RoomHandler struct {
	roomService       *service.RoomService
	membershipService *service.MembershipService
}

// NewRoomHandler 創建一個新的 RoomHandler 實例
func NewRoomHandler(roomService *service.RoomService, membershipService *service.MembershipService) *RoomHandler {
	return &RoomHandler{
		roomService:       roomService,
		membershipService: membershipService,
	}
}

// CreateDirectRoom 查找或建立與指定用戶的私聊房間。
// 操作是冪等的：同一對用戶不論呼叫幾次、由哪一方發起，都回到同一個房間。
func (h *RoomHandler) CreateDirectRoom(c *gin.Context) {
	var input struct {
		TargetUserID uint `json:"target_user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	room, err := h.roomService.FindOrCreateDirectRoom(userID, input.TargetUserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

// CreateGroupRoom 處理建立群聊房間的請求
func (h *RoomHandler) CreateGroupRoom(c *gin.Context) {
	var input struct {
		Name      string `json:"name" binding:"required"`
		MemberIDs []uint `json:"member_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	room, err := h.roomService.CreateGroupRoom(userID, input.Name, input.MemberIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, room)
}

// ListMyRooms 回傳呼叫者目前加入的所有房間
func (h *RoomHandler) ListMyRooms(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	rooms, err := h.roomService.ListRoomsForUser(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// GetRoom 處理獲取房間訊息的請求
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID, err := parseRoomID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不存在的房間ID"})
		return
	}

	room, err := h.roomService.GetRoom(roomID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

// ListMembers 依加入時間回傳房間成員
func (h *RoomHandler) ListMembers(c *gin.Context) {
	roomID, err := parseRoomID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不存在的房間ID"})
		return
	}

	members, err := h.membershipService.ListMembers(roomID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// Invite 由管理員批次邀請用戶加入群聊，逐一回報每位受邀者的結果
func (h *RoomHandler) Invite(c *gin.Context) {
	roomID, err := parseRoomID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不存在的房間ID"})
		return
	}

	var input struct {
		UserIDs []uint `json:"user_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	results, err := h.membershipService.Invite(roomID, userID, input.UserIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// Kick 由管理員將成員踢出房間
func (h *RoomHandler) Kick(c *gin.Context) {
	roomID, err := parseRoomID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不存在的房間ID"})
		return
	}

	var input struct {
		UserID uint `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if err := h.membershipService.Kick(roomID, userID, input.UserID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "成員已被踢出"})
}

// Leave 處理離開房間的請求
func (h *RoomHandler) Leave(c *gin.Context) {
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

	if err := h.membershipService.Leave(roomID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "已離開房間"})
}

func parseRoomID(c *gin.Context) (uint, error) {
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(roomID), nil
}
