package repository

import (
	"campus_chat/internal/models"
	"campus_chat/internal/storage"

	"gorm.io/gorm"
)

type MessageRepository interface {
	// Append 在同一筆交易中分配序號並寫入訊息。
	// 序號來自 rooms.last_seq 的原子遞增，資料列鎖保證同房間的寫入序列化；
	// 不同房間互不影響。任何失敗都會整筆回滾，不會留下半成品訊息或序號空洞。
	Append(message *models.Message) error
	FindPage(roomID uint, cursor *int64, pageSize int) ([]models.Message, error)
	FindByClientMsgID(clientMsgID string) (*models.Message, error)
	LatestSeq(roomID uint) (int64, error)
	CountUnread(roomID, userID uint, afterSeq int64) (int64, error)
}

type messageRepository struct {
	db *storage.PostgresDB
}

func NewMessageRepository(db *storage.PostgresDB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Append(message *models.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var seq int64
		res := tx.Raw(
			"UPDATE rooms SET last_seq = last_seq + 1 WHERE id = ? AND deleted_at IS NULL RETURNING last_seq",
			message.RoomID,
		).Scan(&seq)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		message.Seq = seq
		return tx.Create(message).Error
	})
}

// FindPage 以序號由大到小回傳一頁訊息。
// cursor 為 nil 時從最新的訊息開始，否則只回傳序號小於 cursor 的訊息。
func (r *messageRepository) FindPage(roomID uint, cursor *int64, pageSize int) ([]models.Message, error) {
	query := r.db.Where("room_id = ?", roomID)
	if cursor != nil {
		query = query.Where("seq < ?", *cursor)
	}

	var messages []models.Message
	err := query.Order("seq desc").Limit(pageSize).Find(&messages).Error
	return messages, err
}

func (r *messageRepository) FindByClientMsgID(clientMsgID string) (*models.Message, error) {
	var message models.Message
	err := r.db.Where("client_msg_id = ?", clientMsgID).First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) LatestSeq(roomID uint) (int64, error) {
	var seq int64
	err := r.db.Model(&models.Message{}).
		Where("room_id = ?", roomID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&seq).Error
	return seq, err
}

// CountUnread 計算某用戶在房間內的未讀訊息數，排除自己發送的訊息
func (r *messageRepository) CountUnread(roomID, userID uint, afterSeq int64) (int64, error) {
	var count int64
	err := r.db.Model(&models.Message{}).
		Where("room_id = ? AND seq > ? AND sender_id <> ?", roomID, afterSeq, userID).
		Count(&count).Error
	return count, err
}
