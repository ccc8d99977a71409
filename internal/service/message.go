package service

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"campus_chat/internal/apperrors"
	"campus_chat/internal/models"
	"campus_chat/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageService 是訊息的唯一擁有者：負責序號分配、持久化、分頁讀取，
// 以及落盤後的即時推送與離線推播。
type MessageService struct {
	messageRepo    repository.MessageRepository
	membershipRepo repository.MembershipRepository
	roomRepo       repository.RoomRepository
	readRepo       repository.ReadPointerRepository
	wsManager      *WebSocketManager
	notifications  *NotificationDispatcher
	log            *slog.Logger

	defaultPageSize int
	maxPageSize     int

	// roomLocks 為每個房間維護一把輕量鎖，跨越「交易提交＋廣播入列」，
	// 保證同一房間的廣播順序與序號順序一致；不同房間完全平行。
	roomLocksMux sync.Mutex
	roomLocks    map[uint]*sync.Mutex
}

func NewMessageService(messageRepo repository.MessageRepository,
	membershipRepo repository.MembershipRepository,
	roomRepo repository.RoomRepository,
	readRepo repository.ReadPointerRepository,
	wsManager *WebSocketManager,
	notifications *NotificationDispatcher,
	log *slog.Logger,
	defaultPageSize, maxPageSize int) *MessageService {
	if defaultPageSize <= 0 {
		defaultPageSize = 50
	}
	if maxPageSize < defaultPageSize {
		maxPageSize = defaultPageSize
	}
	return &MessageService{
		messageRepo:     messageRepo,
		membershipRepo:  membershipRepo,
		roomRepo:        roomRepo,
		readRepo:        readRepo,
		wsManager:       wsManager,
		notifications:   notifications,
		log:             log,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		roomLocks:       make(map[uint]*sync.Mutex),
	}
}

// SendMessageInput 是一次發送請求的參數
type SendMessageInput struct {
	RoomID        uint
	SenderID      uint
	Kind          models.MessageKind
	Content       string
	AttachmentRef *string
	ClientMsgID   *string // 客戶端提供的冪等鍵，重送時避免重複寫入
}

// Append 發送一則訊息：授權檢查 → 驗證 → 序號分配與落盤 →
// 推進發送者的已讀指標 → 即時推送 → 離線成員的推播。
// 落盤成功即代表發送成功，之後的推送都是盡力而為。
func (s *MessageService) Append(input SendMessageInput) (*models.Message, error) {
	if err := s.requireMember(input.RoomID, input.SenderID); err != nil {
		return nil, err
	}
	if err := validateSendInput(input); err != nil {
		return nil, err
	}

	message := &models.Message{
		RoomID:        input.RoomID,
		SenderID:      input.SenderID,
		Kind:          input.Kind,
		Content:       input.Content,
		AttachmentRef: input.AttachmentRef,
		ClientMsgID:   input.ClientMsgID,
		SentAt:        time.Now(),
	}

	lock := s.lockForRoom(input.RoomID)
	lock.Lock()
	defer lock.Unlock()

	err := s.messageRepo.Append(message)
	if errors.Is(err, gorm.ErrDuplicatedKey) && input.ClientMsgID != nil {
		// 客戶端重送：回傳先前已寫入的那一筆，不分配新序號
		existing, findErr := s.messageRepo.FindByClientMsgID(*input.ClientMsgID)
		if findErr != nil {
			return nil, fmt.Errorf("%v: %w", findErr, apperrors.ErrInternal)
		}
		return existing, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("房間不存在: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}

	// 發送者顯然已讀到自己的訊息，直接推進指標
	if err := s.readRepo.Advance(input.RoomID, input.SenderID, message.Seq); err != nil {
		s.log.Warn("failed to advance sender read pointer",
			"room_id", input.RoomID, "user_id", input.SenderID, "error", err)
	}

	s.wsManager.BroadcastToRoom(input.RoomID, message)
	s.notifyOffline(message)

	return message, nil
}

// FetchPage 以游標向歷史方向分頁。
// cursor 為 nil 時回傳最新一頁；nextCursor 為本頁最小序號，
// 不足一頁時為 nil，表示已到歷史盡頭。
// 反覆跟隨 nextCursor 可以無重複、無缺漏地重建完整歷史，
// 分頁期間新寫入的訊息不會出現在向後走的游標裡。
func (s *MessageService) FetchPage(roomID, userID uint, cursor *int64, pageSize int) ([]models.Message, *int64, error) {
	if err := s.requireMember(roomID, userID); err != nil {
		return nil, nil, err
	}
	if cursor != nil && *cursor <= 0 {
		return nil, nil, fmt.Errorf("無效的游標: %w", apperrors.ErrInvalidArgument)
	}
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}

	messages, err := s.messageRepo.FindPage(roomID, cursor, pageSize)
	if err != nil {
		return nil, nil, fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}

	var nextCursor *int64
	if len(messages) == pageSize {
		smallest := messages[len(messages)-1].Seq
		nextCursor = &smallest
	}
	return messages, nextCursor, nil
}

// LatestSeq 回傳房間目前最大的訊息序號，空房間為 0
func (s *MessageService) LatestSeq(roomID uint) (int64, error) {
	seq, err := s.messageRepo.LatestSeq(roomID)
	if err != nil {
		return 0, fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	return seq, nil
}

// notifyOffline 為沒有即時連接的成員排入離線推播，發送者除外
func (s *MessageService) notifyOffline(message *models.Message) {
	members, err := s.membershipRepo.ListByRoom(message.RoomID)
	if err != nil {
		s.log.Warn("failed to list members for notification",
			"room_id", message.RoomID, "error", err)
		return
	}

	summary := summarize(message)
	for _, m := range members {
		if m.UserID == message.SenderID {
			continue
		}
		if s.wsManager.HasSubscriber(message.RoomID, m.UserID) {
			continue
		}
		s.notifications.Enqueue(Notification{UserID: m.UserID, Summary: summary})
	}
}

func summarize(message *models.Message) string {
	if message.Kind == models.MessageKindFile {
		return "收到一個檔案"
	}
	const maxSummary = 40
	runes := []rune(message.Content)
	if len(runes) > maxSummary {
		return string(runes[:maxSummary]) + "…"
	}
	return message.Content
}

func validateSendInput(input SendMessageInput) error {
	switch input.Kind {
	case models.MessageKindText:
		if input.Content == "" {
			return fmt.Errorf("文字訊息內容不能為空: %w", apperrors.ErrInvalidArgument)
		}
	case models.MessageKindFile:
		if input.AttachmentRef == nil || *input.AttachmentRef == "" {
			return fmt.Errorf("檔案訊息必須帶附件參照: %w", apperrors.ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("未知的訊息類型: %w", apperrors.ErrInvalidArgument)
	}

	if input.ClientMsgID != nil {
		if _, err := uuid.Parse(*input.ClientMsgID); err != nil {
			return fmt.Errorf("client_msg_id 必須是 UUID: %w", apperrors.ErrInvalidArgument)
		}
	}
	return nil
}

func (s *MessageService) requireMember(roomID, userID uint) error {
	_, err := s.membershipRepo.Find(roomID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("不是房間成員: %w", apperrors.ErrUnauthorized)
	}
	if err != nil {
		return fmt.Errorf("%v: %w", err, apperrors.ErrInternal)
	}
	return nil
}

// lockForRoom 取得房間的送出序列鎖。
// 鎖只增不減，數量以行程生命週期內活躍過的房間數為上界；
// 回收需要與刪房間路徑協調，目前不做。
func (s *MessageService) lockForRoom(roomID uint) *sync.Mutex {
	s.roomLocksMux.Lock()
	defer s.roomLocksMux.Unlock()

	lock, ok := s.roomLocks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		s.roomLocks[roomID] = lock
	}
	return lock
}
