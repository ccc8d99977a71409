package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"campus_chat/internal/models"
	"campus_chat/internal/service"
)

// MessageHandler 處理訊息的發送、分頁讀取與已讀回報
type MessageHandler struct {
	messageService *service.MessageService
	readTracker    *service.ReadTrackerService
}

// NewMessageHandler 創建一個新的 MessageHandler 實例
func NewMessageHandler(messageService *service.MessageService, readTracker *service.ReadTrackerService) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		readTracker:    readTracker,
	}
}

// MessageResponse 是訊息的對外表示
type MessageResponse struct {
	ID            uint    `json:"id"`
	RoomID        uint    `json:"room_id"`
	SenderID      uint    `json:"sender_id"`
	Seq           int64   `json:"seq"`
	Kind          string  `json:"kind"`
	Content       string  `json:"content"`
	AttachmentRef *string `json:"attachment_ref,omitempty"`
	SentAt        string  `json:"sent_at"`
}

func toMessageResponse(m models.Message) MessageResponse {
	return MessageResponse{
		ID:            m.ID,
		RoomID:        m.RoomID,
		SenderID:      m.SenderID,
		Seq:           m.Seq,
		Kind:          string(m.Kind),
		Content:       m.Content,
		AttachmentRef: m.AttachmentRef,
		SentAt:        m.SentAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// Send 處理發送訊息的請求。
// 可選的 client_msg_id 讓客戶端在寫入逾時後安全地重送一次，不會造成重複訊息。
func (h *MessageHandler) Send(c *gin.Context) {
	roomID, err := parseRoomID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不存在的房間ID"})
		return
	}

	var input struct {
		Kind          string  `json:"kind" binding:"required"`
		Content       string  `json:"content"`
		AttachmentRef *string `json:"attachment_ref"`
		ClientMsgID   *string `json:"client_msg_id"`
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

	message, err := h.messageService.Append(service.SendMessageInput{
		RoomID:        roomID,
		SenderID:      userID,
		Kind:          models.MessageKind(input.Kind),
		Content:       input.Content,
		AttachmentRef: input.AttachmentRef,
		ClientMsgID:   input.ClientMsgID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toMessageResponse(*message))
}

// Fetch 以游標向歷史方向分頁讀取房間訊息
func (h *MessageHandler) Fetch(c *gin.Context) {
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

	var cursor *int64
	if raw := c.Query("cursor"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "無效的游標"})
			return
		}
		cursor = &parsed
	}

	pageSize := 0
	if raw := c.Query("page_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "無效的分頁大小"})
			return
		}
		pageSize = parsed
	}

	messages, nextCursor, err := h.messageService.FetchPage(roomID, userID, cursor, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	// 附上目前最大序號，讓客戶端能判斷是否已追上最新訊息並回報已讀
	latestSeq, err := h.messageService.LatestSeq(roomID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":    lo.Map(messages, func(m models.Message, _ int) MessageResponse { return toMessageResponse(m) }),
		"next_cursor": nextCursor,
		"latest_seq":  latestSeq,
	})
}

// MarkRead 處理已讀回報，指標只進不退
func (h *MessageHandler) MarkRead(c *gin.Context) {
	roomID, err := parseRoomID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不存在的房間ID"})
		return
	}

	// up_to_seq 允許為 0（冪等的 no-op），負值由服務層拒絕
	var input struct {
		UpToSeq int64 `json:"up_to_seq"`
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

	if err := h.readTracker.MarkRead(roomID, userID, input.UpToSeq); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "已更新已讀位置"})
}

// UnreadCounts 回傳呼叫者所有房間的未讀數，重連與輪詢時使用
func (h *MessageHandler) UnreadCounts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	counts, err := h.readTracker.UnreadCounts(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": counts})
}
