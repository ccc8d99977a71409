package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	DB     DBConfig
	Chat   ChatConfig
}

type ServerConfig struct {
	Address string
}

type DBConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     int
}

// ChatConfig 聊天子系統的調校參數
type ChatConfig struct {
	DefaultPageSize       int    // 訊息分頁的預設筆數
	MaxPageSize           int    // 單頁筆數上限
	SendBufferSize        int    // 每個 WebSocket 客戶端的送出緩衝大小
	NotificationQueueSize int    // 離線推播佇列大小
	JWTSecret             string // JWT 簽章密鑰
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./pkg/config")

	viper.SetDefault("chat.defaultpagesize", 50)
	viper.SetDefault("chat.maxpagesize", 100)
	viper.SetDefault("chat.sendbuffersize", 256)
	viper.SetDefault("chat.notificationqueuesize", 1024)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
