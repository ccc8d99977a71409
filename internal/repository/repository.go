package repository

import "campus_chat/internal/storage"

type Repositories struct {
	User        UserRepository
	Room        RoomRepository
	Membership  MembershipRepository
	Message     MessageRepository
	ReadPointer ReadPointerRepository
}

func NewRepositories(db *storage.PostgresDB) *Repositories {
	return &Repositories{
		User:        NewUserRepository(db),
		Room:        NewRoomRepository(db),
		Membership:  NewMembershipRepository(db),
		Message:     NewMessageRepository(db),
		ReadPointer: NewReadPointerRepository(db),
	}
}
