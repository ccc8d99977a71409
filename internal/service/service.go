package service

import (
	"log/slog"

	"campus_chat/internal/repository"
	"campus_chat/pkg/config"
)

type Services struct {
	User             *UserService
	Room             *RoomService
	Membership       *MembershipService
	Message          *MessageService
	ReadTracker      *ReadTrackerService
	WebSocketManager *WebSocketManager
	Notifications    *NotificationDispatcher
}

func NewServices(repos *repository.Repositories, log *slog.Logger, cfg config.ChatConfig) *Services {
	wsManager := NewWebSocketManager(log, cfg.SendBufferSize)
	notifications := NewNotificationDispatcher(&LogNotifier{Log: log}, log, cfg.NotificationQueueSize)

	userService := NewUserService(repos.User)
	roomService := NewRoomService(repos.Room, repos.Membership, repos.User)
	membershipService := NewMembershipService(repos.Membership, repos.Room, repos.User, wsManager, log)
	messageService := NewMessageService(repos.Message, repos.Membership, repos.Room, repos.ReadPointer,
		wsManager, notifications, log, cfg.DefaultPageSize, cfg.MaxPageSize)
	readTracker := NewReadTrackerService(repos.ReadPointer, repos.Message, repos.Membership)

	return &Services{
		User:             userService,
		Room:             roomService,
		Membership:       membershipService,
		Message:          messageService,
		ReadTracker:      readTracker,
		WebSocketManager: wsManager,
		Notifications:    notifications,
	}
}
