package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"campus_chat/internal/apperrors"
	"campus_chat/internal/models"
	"campus_chat/internal/repository"

	"gorm.io/gorm"
)

// MembershipService 管理房間成員資格與角色，
// 是訊息發送、讀取與訂閱的授權關卡：非成員的任何操作都會被拒絕。
type MembershipService struct {
	membershipRepo repository.MembershipRepository
	roomRepo       repository.RoomRepository
	userRepo       repository.UserRepository
	wsManager      *WebSocketManager
	log            *slog.Logger
}

func NewMembershipService(membershipRepo repository.MembershipRepository,
	roomRepo repository.RoomRepository,
	userRepo repository.UserRepository,
	wsManager *WebSocketManager,
	log *slog.Logger) *MembershipService {
	return &MembershipService{
		membershipRepo: membershipRepo,
		roomRepo:       roomRepo,
		userRepo:       userRepo,
		wsManager:      wsManager,
		log:            log,
	}
}

// IsMember 回報用戶是否為房間成員
func (s *MembershipService) IsMember(roomID, userID uint) (bool, error) {
	_, err := s.membershipRepo.Find(roomID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	return true, nil
}

// RoleOf 回傳用戶在房間中的角色，非成員回傳 NotFound
func (s *MembershipService) RoleOf(roomID, userID uint) (models.Role, error) {
	m, err := s.membershipRepo.Find(roomID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("不是房間成員: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	return m.Role, nil
}

// ListMembers 依加入時間排序回傳房間成員
func (s *MembershipService) ListMembers(roomID uint) ([]models.Membership, error) {
	if _, err := s.findRoom(roomID); err != nil {
		return nil, err
	}
	members, err := s.membershipRepo.ListByRoom(roomID)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	return members, nil
}

// Join 將用戶加入房間，重複加入是 no-op 而不是錯誤
func (s *MembershipService) Join(roomID, userID uint, role models.Role) error {
	room, err := s.findRoom(roomID)
	if err != nil {
		return err
	}
	if room.Kind == models.RoomKindDirect {
		return fmt.Errorf("私聊房間的成員在建立時就已固定: %w", apperrors.ErrInvalidArgument)
	}
	if role == "" {
		role = models.RoleMember
	}

	err = s.membershipRepo.Create(&models.Membership{
		RoomID:   roomID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now(),
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil // 已經是成員，冪等
	}
	if err != nil {
		return fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	return nil
}

// InviteResult 回報批次邀請中單一受邀者的結果
type InviteResult struct {
	UserID uint   `json:"user_id"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Invite 由管理員批次邀請用戶加入群聊。
// 個別受邀者的衝突（已是成員、用戶不存在）不會中斷整批操作，逐一回報。
func (s *MembershipService) Invite(roomID, actorID uint, inviteeIDs []uint) ([]InviteResult, error) {
	if len(inviteeIDs) == 0 {
		return nil, fmt.Errorf("邀請名單不能為空: %w", apperrors.ErrInvalidArgument)
	}

	room, err := s.findRoom(roomID)
	if err != nil {
		return nil, err
	}
	if room.Kind != models.RoomKindGroup {
		return nil, fmt.Errorf("私聊房間不能邀請成員: %w", apperrors.ErrInvalidArgument)
	}
	if err := s.requireAdmin(roomID, actorID); err != nil {
		return nil, err
	}

	results := make([]InviteResult, 0, len(inviteeIDs))
	for _, inviteeID := range inviteeIDs {
		if _, err := s.userRepo.FindByID(inviteeID); errors.Is(err, gorm.ErrRecordNotFound) {
			results = append(results, InviteResult{UserID: inviteeID, Reason: "用戶不存在"})
			continue
		} else if err != nil {
			return nil, fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
		}

		err := s.membershipRepo.Create(&models.Membership{
			RoomID:   roomID,
			UserID:   inviteeID,
			Role:     models.RoleMember,
			JoinedAt: time.Now(),
		})
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			results = append(results, InviteResult{UserID: inviteeID, Reason: "已經是房間成員"})
		case err != nil:
			return nil, fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
		default:
			results = append(results, InviteResult{UserID: inviteeID, OK: true})
		}
	}
	return results, nil
}

// Kick 由管理員將成員踢出房間。
// 不允許踢掉最後一位管理員，避免群聊失去管理能力。
// 被踢出的成員在該房間的即時連接會立刻斷開。
func (s *MembershipService) Kick(roomID, actorID, targetID uint) error {
	if _, err := s.findRoom(roomID); err != nil {
		return err
	}
	if err := s.requireAdmin(roomID, actorID); err != nil {
		return err
	}

	target, err := s.membershipRepo.Find(roomID, targetID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("對象不是房間成員: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}

	if target.Role.CanManage() {
		admins, err := s.membershipRepo.CountAdmins(roomID)
		if err != nil {
			return fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
		}
		if admins <= 1 {
			return fmt.Errorf("不能踢出最後一位管理員: %w", apperrors.ErrConflict)
		}
	}

	if err := s.membershipRepo.Delete(roomID, targetID); err != nil {
		return fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	s.wsManager.DisconnectUser(roomID, targetID)
	return nil
}

// Leave 讓用戶無條件離開房間。
// 若離開後房間沒有成員，刪除房間；
// 若最後一位管理員離開而還有其他成員，由最早加入者遞補為管理員。
func (s *MembershipService) Leave(roomID, userID uint) error {
	room, err := s.findRoom(roomID)
	if err != nil {
		return err
	}

	if _, err := s.membershipRepo.Find(roomID, userID); errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("不是房間成員: %w", apperrors.ErrNotFound)
	} else if err != nil {
		return fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}

	if err := s.membershipRepo.Delete(roomID, userID); err != nil {
		return fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	s.wsManager.DisconnectUser(roomID, userID)

	remaining, err := s.membershipRepo.CountByRoom(roomID)
	if err != nil {
		return fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	if remaining == 0 {
		// 最後一人離開，房間走入生命週期終點
		if err := s.roomRepo.HardDelete(roomID); err != nil {
			return fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
		}
		return nil
	}

	if room.Kind == models.RoomKindGroup {
		if err := s.promoteIfNoAdmin(roomID); err != nil {
			return err
		}
	}
	return nil
}

// promoteIfNoAdmin 在群聊失去所有管理員時，將最早加入的成員升為管理員
func (s *MembershipService) promoteIfNoAdmin(roomID uint) error {
	admins, err := s.membershipRepo.CountAdmins(roomID)
	if err != nil {
		return fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	if admins > 0 {
		return nil
	}

	earliest, err := s.membershipRepo.EarliestJoinedMember(roomID)
	if err != nil {
		return fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	if err := s.membershipRepo.UpdateRole(roomID, earliest.UserID, models.RoleAdmin); err != nil {
		return fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	s.log.Info("promoted new admin", "room_id", roomID, "user_id", earliest.UserID)
	return nil
}

func (s *MembershipService) requireAdmin(roomID, actorID uint) error {
	m, err := s.membershipRepo.Find(roomID, actorID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("不是房間成員: %w", apperrors.ErrUnauthorized)
	}
	if err != nil {
		return fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	if !m.Role.CanManage() {
		return fmt.Errorf("需要管理員權限: %w", apperrors.ErrUnauthorized)
	}
	return nil
}

func (s *MembershipService) findRoom(roomID uint) (*models.Room, error) {
	room, err := s.roomRepo.FindByID(roomID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("房間不存在: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	return room, nil
}
