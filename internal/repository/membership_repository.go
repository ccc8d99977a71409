package repository

import (
	"campus_chat/internal/models"
	"campus_chat/internal/storage"
)

type MembershipRepository interface {
	Create(m *models.Membership) error
	Find(roomID, userID uint) (*models.Membership, error)
	ListByRoom(roomID uint) ([]models.Membership, error)
	ListRoomIDsByUser(userID uint) ([]uint, error)
	Delete(roomID, userID uint) error
	CountByRoom(roomID uint) (int64, error)
	CountAdmins(roomID uint) (int64, error)
	// EarliestJoinedMember 回傳房間中最早加入的一般成員，用於管理員離開後的遞補
	EarliestJoinedMember(roomID uint) (*models.Membership, error)
	UpdateRole(roomID, userID uint, role models.Role) error
}

type membershipRepository struct {
	db *storage.PostgresDB
}

func NewMembershipRepository(db *storage.PostgresDB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) Create(m *models.Membership) error {
	return r.db.Create(m).Error
}

func (r *membershipRepository) Find(roomID, userID uint) (*models.Membership, error) {
	var m models.Membership
	err := r.db.Where("room_id = ? AND user_id = ?", roomID, userID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *membershipRepository) ListByRoom(roomID uint) ([]models.Membership, error) {
	var members []models.Membership
	err := r.db.Where("room_id = ?", roomID).Order("joined_at asc, id asc").Find(&members).Error
	return members, err
}

func (r *membershipRepository) ListRoomIDsByUser(userID uint) ([]uint, error) {
	var roomIDs []uint
	err := r.db.Model(&models.Membership{}).
		Where("user_id = ?", userID).
		Pluck("room_id", &roomIDs).Error
	return roomIDs, err
}

func (r *membershipRepository) Delete(roomID, userID uint) error {
	return r.db.Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&models.Membership{}).Error
}

func (r *membershipRepository) CountByRoom(roomID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Membership{}).Where("room_id = ?", roomID).Count(&count).Error
	return count, err
}

func (r *membershipRepository) CountAdmins(roomID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Membership{}).
		Where("room_id = ? AND role = ?", roomID, models.RoleAdmin).
		Count(&count).Error
	return count, err
}

func (r *membershipRepository) EarliestJoinedMember(roomID uint) (*models.Membership, error) {
	var m models.Membership
	err := r.db.Where("room_id = ?", roomID).Order("joined_at asc, id asc").First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *membershipRepository) UpdateRole(roomID, userID uint, role models.Role) error {
	return r.db.Model(&models.Membership{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("role", role).Error
}
