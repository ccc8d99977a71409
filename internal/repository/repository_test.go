package repository

import (
	"path/filepath"
	"testing"

	"campus_chat/internal/models"
	"campus_chat/internal/storage"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB 建立一個乾淨的 sqlite 測試資料庫，結構與正式環境相同
func newTestDB(t *testing.T) *storage.PostgresDB {
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

	return &storage.PostgresDB{DB: db}
}
