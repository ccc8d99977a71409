package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	"campus_chat/internal/api"
	"campus_chat/internal/models"
	"campus_chat/internal/repository"
	"campus_chat/internal/service"
	"campus_chat/internal/storage"
	"campus_chat/internal/utils"
	"campus_chat/pkg/config"
)

func main() {
	// 載入應用程式配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	utils.Init(cfg.Chat.JWTSecret)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 初始化資料庫連接
	db, err := storage.NewPostgresDB(cfg.DB.Host, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.Port)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	// 確保在程序結束時關閉數據庫連接
	defer db.Close()

	// 自動遷移資料庫結構
	// 唯一索引（成員、私聊去重鍵、房間序號、已讀指標）都在這裡建立
	if err := db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.Membership{},
		&models.Message{},
		&models.ReadPointer{},
	); err != nil {
		log.Fatalf("Failed to auto migrate database: %v", err)
	}

	// 初始化 repositories 與 services
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, logger, cfg.Chat)

	// 啟動離線推播的異步消化
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go services.Notifications.Run(ctx)

	// 設置 Gin 路由
	r := gin.Default()
	api.SetupRoutes(r, services)

	// 啟動伺服器
	if err := r.Run(cfg.Server.Address); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
