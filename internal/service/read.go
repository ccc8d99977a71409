package service

import (
	"errors"
	"fmt"

	"campus_chat/internal/apperrors"
	"campus_chat/internal/repository"

	"gorm.io/gorm"
)

// ReadTrackerService 維護每位用戶在每個房間的已讀指標，
// 並由指標推導未讀數：比指標新、且不是自己發的訊息才算未讀。
type ReadTrackerService struct {
	readRepo       repository.ReadPointerRepository
	messageRepo    repository.MessageRepository
	membershipRepo repository.MembershipRepository
}

func NewReadTrackerService(readRepo repository.ReadPointerRepository,
	messageRepo repository.MessageRepository,
	membershipRepo repository.MembershipRepository) *ReadTrackerService {
	return &ReadTrackerService{
		readRepo:       readRepo,
		messageRepo:    messageRepo,
		membershipRepo: membershipRepo,
	}
}

// MarkRead 將已讀指標推進到 upToSeq。
// 指標只進不退：帶著過期的序號重複呼叫是冪等的 no-op。
func (s *ReadTrackerService) MarkRead(roomID, userID uint, upToSeq int64) error {
	if upToSeq < 0 {
		return fmt.Errorf("序號不能為負: %w", apperrors.ErrInvalidArgument)
	}
	if err := s.requireMember(roomID, userID); err != nil {
		return err
	}
	if err := s.readRepo.Advance(roomID, userID, upToSeq); err != nil {
		return fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	return nil
}

// UnreadCount 回傳單一房間的未讀數
func (s *ReadTrackerService) UnreadCount(roomID, userID uint) (int64, error) {
	if err := s.requireMember(roomID, userID); err != nil {
		return 0, err
	}
	pointer, err := s.readRepo.Get(roomID, userID)
	if err != nil {
		return 0, fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	count, err := s.messageRepo.CountUnread(roomID, userID, pointer)
	if err != nil {
		return 0, fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	return count, nil
}

// UnreadCounts 一次回傳用戶所有房間的未讀數。
// 客戶端每次重連或輪詢都會呼叫，底層是單一聚合查詢而不是逐房間掃描。
func (s *ReadTrackerService) UnreadCounts(userID uint) ([]repository.RoomUnread, error) {
	results, err := s.readRepo.UnreadByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	return results, nil
}

func (s *ReadTrackerService) requireMember(roomID, userID uint) error {
	_, err := s.membershipRepo.Find(roomID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("不是房間成員: %w", apperrors.ErrUnauthorized)
	}
	if err != nil {
		return fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	return nil
}
