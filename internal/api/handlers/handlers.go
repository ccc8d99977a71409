package handlers

import (
	"campus_chat/internal/apperrors"

	"github.com/gin-gonic/gin"
)

// currentUserID 從中間件設置的上下文中取出呼叫者身份
func currentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("userID")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// respondError 統一將服務層錯誤轉換為 HTTP 回應
func respondError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
}
