package service

import (
	"errors"
	"fmt"
	"time"

	"campus_chat/internal/apperrors"
	"campus_chat/internal/models"
	"campus_chat/internal/repository"

	"gorm.io/gorm"
)

// RoomService 負責房間的建立、查找與刪除，
// 包含私聊房間的去重：同一對用戶最多只會有一個私聊房間。
type RoomService struct {
	roomRepo       repository.RoomRepository
	membershipRepo repository.MembershipRepository
	userRepo       repository.UserRepository
}

func NewRoomService(roomRepo repository.RoomRepository,
	membershipRepo repository.MembershipRepository,
	userRepo repository.UserRepository) *RoomService {
	return &RoomService{
		roomRepo:       roomRepo,
		membershipRepo: membershipRepo,
		userRepo:       userRepo,
	}
}

func (s *RoomService) GetRoom(roomID uint) (*models.Room, error) {
	room, err := s.roomRepo.FindByID(roomID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("房間不存在: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	return room, nil
}

// CreateGroupRoom 建立群聊房間，建立者為管理員，其餘名單成員為一般成員。
// 名單中除了建立者以外至少要有一人。
func (s *RoomService) CreateGroupRoom(creatorID uint, name string, memberIDs []uint) (*models.Room, error) {
	if name == "" {
		return nil, fmt.Errorf("房間名稱不能為空: %w", apperrors.ErrInvalidArgument)
	}

	others := make([]uint, 0, len(memberIDs))
	seen := map[uint]bool{creatorID: true}
	for _, id := range memberIDs {
		if !seen[id] {
			seen[id] = true
			others = append(others, id)
		}
	}
	if len(others) == 0 {
		return nil, fmt.Errorf("群聊至少需要一位其他成員: %w", apperrors.ErrInvalidArgument)
	}

	if err := s.ensureUsersExist(append([]uint{creatorID}, others...)); err != nil {
		return nil, err
	}

	room := &models.Room{
		Kind: models.RoomKindGroup,
		Name: name,
	}
	now := time.Now()
	memberships := []models.Membership{
		{UserID: creatorID, Role: models.RoleAdmin, JoinedAt: now},
	}
	for _, id := range others {
		memberships = append(memberships, models.Membership{
			UserID: id, Role: models.RoleMember, JoinedAt: now,
		})
	}

	if err := s.roomRepo.CreateWithMembers(room, memberships); err != nil {
		return nil, fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	return room, nil
}

// FindOrCreateDirectRoom 查找或建立兩位用戶的私聊房間。
// 去重以無序用戶對的 PairKey 唯一索引保證：兩邊同時發起時，
// 輸的一方會撞到唯一索引衝突，重查一次後回傳贏家的房間。
// 不論併發呼叫多少次，所有呼叫方最後都會收斂到同一個房間。
func (s *RoomService) FindOrCreateDirectRoom(userA, userB uint) (*models.Room, error) {
	if userA == userB {
		return nil, fmt.Errorf("不能與自己建立私聊: %w", apperrors.ErrInvalidArgument)
	}
	if err := s.ensureUsersExist([]uint{userA, userB}); err != nil {
		return nil, err
	}

	pairKey := models.DirectPairKey(userA, userB)

	room, err := s.roomRepo.FindByPairKey(pairKey)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}

	now := time.Now()
	newRoom := &models.Room{
		Kind:    models.RoomKindDirect,
		PairKey: &pairKey,
	}
	memberships := []models.Membership{
		{UserID: userA, Role: models.RoleMember, JoinedAt: now},
		{UserID: userB, Role: models.RoleMember, JoinedAt: now},
	}

	err = s.roomRepo.CreateWithMembers(newRoom, memberships)
	if err == nil {
		return newRoom, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// 輸掉建立競賽，回傳贏家的房間
		room, err = s.roomRepo.FindByPairKey(pairKey)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
		}
		return room, nil
	}
	return nil, fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
}

// ListRoomsForUser 回傳用戶目前加入的所有房間
func (s *RoomService) ListRoomsForUser(userID uint) ([]models.Room, error) {
	roomIDs, err := s.membershipRepo.ListRoomIDsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	if len(roomIDs) == 0 {
		return []models.Room{}, nil
	}
	rooms, err := s.roomRepo.FindByIDs(roomIDs)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	return rooms, nil
}

// DeleteRoomIfEmpty 在房間沒有任何成員時刪除房間紀錄。
// 訊息依預設保留策略留存（孤兒化但無法存取），供稽核使用。
func (s *RoomService) DeleteRoomIfEmpty(roomID uint) error {
	count, err := s.membershipRepo.CountByRoom(roomID)
	if err != nil {
		return fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	if count > 0 {
		return fmt.Errorf("房間還有成員: %w", apperrors.ErrConflict)
	}
	if err := s.roomRepo.HardDelete(roomID); err != nil {
		return fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	return nil
}

func (s *RoomService) ensureUsersExist(ids []uint) error {
	count, err := s.userRepo.CountByIDs(ids)
	if err != nil {
		return fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	if count != int64(len(ids)) {
		return fmt.Errorf("用戶不存在: %w", apperrors.ErrNotFound)
	}
	return nil
}
