package models

import (
	"time"

	"gorm.io/gorm"
)

// Message 表示房間內的一則訊息。
// 訊息寫入後不可修改；刪除只做 tombstone（gorm.Model 的 DeletedAt），不在核心範圍內。
type Message struct {
	gorm.Model
	RoomID        uint        `gorm:"uniqueIndex:idx_room_seq;not null" json:"room_id"`
	SenderID      uint        `gorm:"not null" json:"sender_id"`
	Seq           int64       `gorm:"uniqueIndex:idx_room_seq;not null" json:"seq"` // 房間內嚴格遞增的序號
	Kind          MessageKind `gorm:"type:varchar(10);not null" json:"kind"`
	Content       string      `gorm:"type:text" json:"content"`
	AttachmentRef *string     `gorm:"type:varchar(255)" json:"attachment_ref,omitempty"` // 附件只存外部參照，不存位元組
	ClientMsgID   *string     `gorm:"uniqueIndex" json:"client_msg_id,omitempty"`        // 客戶端提供的冪等鍵，重送時去重
	SentAt        time.Time   `gorm:"not null" json:"sent_at"`
}

// MessageKind 定義訊息類型
type MessageKind string

const (
	MessageKindText MessageKind = "text" // 文字訊息
	MessageKindFile MessageKind = "file" // 檔案訊息，content 為檔名
)
