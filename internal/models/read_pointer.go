package models

// ReadPointer 記錄用戶在某個房間已讀到的最高序號。
// LastReadSeq 只會單調遞增，首次讀取前視為 0。
type ReadPointer struct {
	ID          uint  `gorm:"primarykey" json:"-"`
	RoomID      uint  `gorm:"uniqueIndex:idx_read_room_user;not null" json:"room_id"`
	UserID      uint  `gorm:"uniqueIndex:idx_read_room_user;not null" json:"user_id"`
	LastReadSeq int64 `gorm:"not null;default:0" json:"last_read_seq"`
}
