package models

import (
	"fmt"

	"gorm.io/gorm"
)

// Room 表示一個聊天室，可以是一對一私聊（direct）或群聊（group）
type Room struct {
	gorm.Model
	Kind    RoomKind `gorm:"type:varchar(10);not null" json:"kind"`
	Name    string   `gorm:"type:varchar(100)" json:"name"` // 私聊房間沒有名稱
	PairKey *string  `gorm:"uniqueIndex" json:"-"`          // 私聊去重鍵："min:max"，群聊為 NULL
	LastSeq int64    `gorm:"not null;default:0" json:"-"`   // 房間內最後分配的訊息序號
}

// RoomKind 定義房間類型
type RoomKind string

const (
	RoomKindDirect RoomKind = "direct" // 一對一私聊
	RoomKindGroup  RoomKind = "group"  // 群組聊天
)

// DirectPairKey 以無序用戶對產生私聊房間的去重鍵。
// 同一對用戶不論誰發起，鍵值都相同，配合唯一索引保證最多只有一個私聊房間。
func DirectPairKey(userA, userB uint) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("%d:%d", userA, userB)
}
