package repository

import (
	"time"

	"campus_chat/internal/models"
	"campus_chat/internal/storage"

	"gorm.io/gorm"
)

type RoomRepository interface {
	FindByID(id uint) (*models.Room, error)
	FindByIDs(ids []uint) ([]models.Room, error)
	FindByPairKey(pairKey string) (*models.Room, error)
	// CreateWithMembers 在同一筆交易中建立房間與初始成員，
	// PairKey 唯一索引衝突時回傳 gorm.ErrDuplicatedKey，由服務層重查
	CreateWithMembers(room *models.Room, members []models.Membership) error
	// HardDelete 實體刪除房間紀錄（房間清空後呼叫），訊息保留供稽核
	HardDelete(id uint) error
}

type roomRepository struct {
	db *storage.PostgresDB
}

func NewRoomRepository(db *storage.PostgresDB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) FindByID(id uint) (*models.Room, error) {
	var room models.Room
	err := r.db.First(&room, id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) FindByIDs(ids []uint) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.Where("id IN ?", ids).Order("id asc").Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *roomRepository) FindByPairKey(pairKey string) (*models.Room, error) {
	var room models.Room
	err := r.db.Where("pair_key = ?", pairKey).First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) CreateWithMembers(room *models.Room, members []models.Membership) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		now := time.Now()
		for i := range members {
			members[i].RoomID = room.ID
			if members[i].JoinedAt.IsZero() {
				members[i].JoinedAt = now
			}
		}
		return tx.Create(&members).Error
	})
}

func (r *roomRepository) HardDelete(id uint) error {
	return r.db.Unscoped().Delete(&models.Room{}, id).Error
}
