package repository

import (
	"errors"

	"campus_chat/internal/models"
	"campus_chat/internal/storage"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoomUnread 是批次未讀查詢的一列結果
type RoomUnread struct {
	RoomID uint  `json:"room_id"`
	Count  int64 `json:"count"`
}

type ReadPointerRepository interface {
	// Advance 將已讀指標推進到 upToSeq，只進不退：
	// 帶著較小或過期的值呼叫是安全的 no-op
	Advance(roomID, userID uint, upToSeq int64) error
	Get(roomID, userID uint) (int64, error)
	// UnreadByUser 以單一聚合查詢回傳用戶所有房間的未讀數，
	// 重連或輪詢時呼叫，避免逐房間的 N+1 查詢
	UnreadByUser(userID uint) ([]RoomUnread, error)
}

type readPointerRepository struct {
	db *storage.PostgresDB
}

func NewReadPointerRepository(db *storage.PostgresDB) ReadPointerRepository {
	return &readPointerRepository{db: db}
}

func (r *readPointerRepository) Advance(roomID, userID uint, upToSeq int64) error {
	pointer := models.ReadPointer{
		RoomID:      roomID,
		UserID:      userID,
		LastReadSeq: upToSeq,
	}
	// upsert 的更新條件保證指標單調遞增，併發或亂序的 markRead 不會讓指標倒退
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"last_read_seq": upToSeq}),
		Where: clause.Where{
			Exprs: []clause.Expression{gorm.Expr("excluded.last_read_seq > read_pointers.last_read_seq")},
		},
	}).Create(&pointer).Error
}

func (r *readPointerRepository) Get(roomID, userID uint) (int64, error) {
	var pointer models.ReadPointer
	err := r.db.Where("room_id = ? AND user_id = ?", roomID, userID).First(&pointer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil // 尚未標記過已讀，指標視為 0
	}
	if err != nil {
		return 0, err
	}
	return pointer.LastReadSeq, nil
}

func (r *readPointerRepository) UnreadByUser(userID uint) ([]RoomUnread, error) {
	var results []RoomUnread
	err := r.db.Raw(`
		SELECT m.room_id AS room_id, COUNT(msg.id) AS count
		FROM memberships m
		LEFT JOIN read_pointers rp
			ON rp.room_id = m.room_id AND rp.user_id = m.user_id
		LEFT JOIN messages msg
			ON msg.room_id = m.room_id
			AND msg.seq > COALESCE(rp.last_read_seq, 0)
			AND msg.sender_id <> m.user_id
			AND msg.deleted_at IS NULL
		WHERE m.user_id = ?
		GROUP BY m.room_id
		ORDER BY m.room_id`, userID).Scan(&results).Error
	return results, err
}
