package service

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"campus_chat/internal/models"

	"github.com/gorilla/websocket"
)

// Client 代表一個 WebSocket 客戶端連接。
// 同一個用戶可以有多個 Client（多裝置），每個裝置各自收到完整的訊息流。
type Client struct {
	Conn     *websocket.Conn      // WebSocket 連接
	UserID   uint                 // 用戶 ID
	RoomID   uint                 // 房間 ID
	SendChan chan *models.Message // 消息發送通道，用於異步傳送消息

	done      chan struct{} // 關閉時通知 writePump 立即結束
	closeOnce sync.Once
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		if c.done != nil {
			close(c.done)
		}
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}

// WebSocketManager 管理所有的 WebSocket 連接並負責訊息的即時推送。
// 推送只是盡力而為：訊息的持久性由 MessageService 保證，
// 推送失敗（慢速或斷線的客戶端）只會記錄並斷開該連接，絕不影響發送方。
type WebSocketManager struct {
	clients    map[uint]map[*Client]bool // 兩層 map: roomID -> client -> bool
	clientsMux sync.RWMutex              // 用於保護 clients map 的讀寫鎖
	sendBuffer int
	log        *slog.Logger
}

// NewWebSocketManager 創建並初始化新的 WebSocket 管理器
func NewWebSocketManager(log *slog.Logger, sendBuffer int) *WebSocketManager {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &WebSocketManager{
		clients:    make(map[uint]map[*Client]bool),
		sendBuffer: sendBuffer,
		log:        log,
	}
}

// HandleConnection 處理新的 WebSocket 連接請求。
// 呼叫方必須先完成成員資格檢查，這裡只負責連接生命週期。
// 此方法會阻塞直到客戶端斷線。
func (s *WebSocketManager) HandleConnection(conn *websocket.Conn, roomID, userID uint) {
	client := &Client{
		Conn:     conn,
		UserID:   userID,
		RoomID:   roomID,
		SendChan: make(chan *models.Message, s.sendBuffer),
		done:     make(chan struct{}),
	}

	s.addClient(client)

	// 確保連接關閉時清理資源並結束 writePump
	defer func() {
		s.removeClient(client)
		client.close()
	}()

	go s.writePump(client)
	s.readPump(client)
}

// readPump 維持連接存活並偵測斷線。
// 客戶端透過 REST API 發送訊息，WebSocket 只是單向的推送流，
// 因此收到的訊息一律丟棄。
func (s *WebSocketManager) readPump(client *Client) {
	client.Conn.SetReadLimit(4096)
	client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Warn("websocket unexpected close", "room_id", client.RoomID, "user_id", client.UserID, "error", err)
			}
			return
		}
	}
}

// writePump 處理向客戶端發送消息的邏輯
func (s *WebSocketManager) writePump(client *Client) {
	// 設置心跳檢查計時器
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-client.done:
			return

		case message, ok := <-client.SendChan:
			// 設置寫入超時
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := client.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			messageBytes, err := json.Marshal(message)
			if err != nil {
				s.log.Warn("message encoding error", "error", err)
				continue
			}

			if _, err := w.Write(messageBytes); err != nil {
				return
			}
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			// 發送心跳包
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// BroadcastToRoom 向房間內的所有客戶端廣播訊息，包含發送者自己的其他裝置。
// 對單一客戶端的投遞最多一次：送出緩衝滿表示客戶端過慢，直接斷開，
// 由客戶端重連後透過分頁 API 補齊訊息。
func (s *WebSocketManager) BroadcastToRoom(roomID uint, message *models.Message) {
	s.clientsMux.RLock()
	clients := make([]*Client, 0, len(s.clients[roomID]))
	for client := range s.clients[roomID] {
		clients = append(clients, client)
	}
	s.clientsMux.RUnlock()

	for _, client := range clients {
		select {
		case client.SendChan <- message:
			// 消息成功加入發送隊列
		default:
			s.log.Warn("client send buffer full, dropping connection",
				"room_id", roomID, "user_id", client.UserID)
			s.removeClient(client)
			client.close()
		}
	}
}

// DisconnectUser 斷開某用戶在指定房間的所有連接。
// 成員被踢出或離開房間時呼叫，避免遺留失效的訂閱。
func (s *WebSocketManager) DisconnectUser(roomID, userID uint) {
	s.clientsMux.RLock()
	var targets []*Client
	for client := range s.clients[roomID] {
		if client.UserID == userID {
			targets = append(targets, client)
		}
	}
	s.clientsMux.RUnlock()

	for _, client := range targets {
		s.removeClient(client)
		client.close()
	}
}

// HasSubscriber 回報某用戶在房間內是否有存活的連接，用於判斷是否改走離線推播
func (s *WebSocketManager) HasSubscriber(roomID, userID uint) bool {
	s.clientsMux.RLock()
	defer s.clientsMux.RUnlock()

	for client := range s.clients[roomID] {
		if client.UserID == userID {
			return true
		}
	}
	return false
}

// RoomClientCount 獲取指定房間的在線客戶端數量
func (s *WebSocketManager) RoomClientCount(roomID uint) int {
	s.clientsMux.RLock()
	defer s.clientsMux.RUnlock()

	return len(s.clients[roomID])
}

// addClient 安全地添加新的客戶端連接
func (s *WebSocketManager) addClient(client *Client) {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	if s.clients[client.RoomID] == nil {
		s.clients[client.RoomID] = make(map[*Client]bool)
	}
	s.clients[client.RoomID][client] = true
}

// removeClient 安全地移除客戶端連接
func (s *WebSocketManager) removeClient(client *Client) {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	if clients, ok := s.clients[client.RoomID]; ok {
		delete(clients, client)
		// 如果房間沒有任何訂閱者，刪除房間的紀錄
		if len(clients) == 0 {
			delete(s.clients, client.RoomID)
		}
	}
}
