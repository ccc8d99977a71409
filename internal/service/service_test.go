package service

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"campus_chat/internal/models"
	"campus_chat/internal/repository"
	"campus_chat/internal/storage"
	"campus_chat/pkg/config"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestServices 在 sqlite 上組出完整的服務層，結構與正式環境一致
func newTestServices(t *testing.T) (*Services, *repository.Repositories) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.Membership{},
		&models.Message{},
		&models.ReadPointer{},
	)
	require.NoError(t, err)

	repos := repository.NewRepositories(&storage.PostgresDB{DB: db})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	services := NewServices(repos, logger, config.ChatConfig{
		DefaultPageSize:       50,
		MaxPageSize:           100,
		SendBufferSize:        8,
		NotificationQueueSize: 16,
	})
	return services, repos
}

// createUsers 建立測試用戶並回傳他們的 ID
func createUsers(t *testing.T, repos *repository.Repositories, usernames ...string) []uint {
	t.Helper()
	ids := make([]uint, 0, len(usernames))
	for _, name := range usernames {
		user := &models.User{Username: name, Password: "hashed"}
		require.NoError(t, repos.User.Create(user))
		ids = append(ids, user.ID)
	}
	return ids
}

func sendText(t *testing.T, services *Services, roomID, senderID uint, content string) *models.Message {
	t.Helper()
	message, err := services.Message.Append(SendMessageInput{
		RoomID:   roomID,
		SenderID: senderID,
		Kind:     models.MessageKindText,
		Content:  content,
	})
	require.NoError(t, err)
	return message
}
