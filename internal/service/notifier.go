package service

import (
	"context"
	"log/slog"
)

// Notifier 是行動裝置離線推播的外部介面。
// 推播是盡力而為的副作用，任何失敗都不會影響訊息發送的結果。
type Notifier interface {
	Notify(ctx context.Context, userID uint, summary string) error
}

// LogNotifier 是預設實作，只記錄而不真正推播，部署時替換成實際的推播服務
type LogNotifier struct {
	Log *slog.Logger
}

func (n *LogNotifier) Notify(_ context.Context, userID uint, summary string) error {
	n.Log.Info("push notification", "user_id", userID, "summary", summary)
	return nil
}

// Notification 是一筆待送的推播
type Notification struct {
	UserID  uint
	Summary string
}

// NotificationDispatcher 在訊息成功落盤後異步地消化推播任務。
// 進佇列的動作不阻塞：佇列滿時直接丟棄並記錄，發送方完全不受影響。
type NotificationDispatcher struct {
	notifier Notifier
	queue    chan Notification
	log      *slog.Logger
}

func NewNotificationDispatcher(notifier Notifier, log *slog.Logger, queueSize int) *NotificationDispatcher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &NotificationDispatcher{
		notifier: notifier,
		queue:    make(chan Notification, queueSize),
		log:      log,
	}
}

// Enqueue 將推播放入佇列，永不阻塞呼叫方
func (d *NotificationDispatcher) Enqueue(n Notification) {
	select {
	case d.queue <- n:
	default:
		d.log.Warn("notification queue full, dropping", "user_id", n.UserID)
	}
}

// Run 持續消化推播佇列，直到 context 取消。
// 推播失敗只記錄，不重試也不回報給發送方。
func (d *NotificationDispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.log.Debug("notification dispatcher stopped")
			return
		case n := <-d.queue:
			if err := d.notifier.Notify(ctx, n.UserID, n.Summary); err != nil {
				d.log.Warn("notification delivery failed", "user_id", n.UserID, "error", err)
			}
		}
	}
}
