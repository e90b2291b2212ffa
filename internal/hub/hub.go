// Package hub WebSocket 傳輸層。
//
// 系統設計問題：
//   如何實現多人遊戲的實時狀態同步？
//
// 核心挑戰：
//   1. 實時通信：房間與大廳的狀態變更需要立即推送
//   2. 連接管理：斷線要即時轉成會話層的離開事件
//   3. 心跳機制：檢測死連接（網絡異常、客戶端崩潰）
//   4. 並發廣播：同時向多個客戶端發送消息
//
// 設計方案：
//   ✅ WebSocket - 全雙工通信（低延遲、服務器推送）
//   ✅ Hub 模式 - 集中管理所有連接
//   ✅ Ping/Pong 心跳 - 檢測死連接（54s/60s）
//   ✅ 緩衝 channel - 異步發送（不阻塞）
//
// 傳輸層只管連接與封包：身份在握手時驗一次，之後每條入站消息
// 解碼後交給會話註冊表，所有遊戲語義都在那邊。
package hub

import (
	"encoding/json"
	"net/http"
	"sync"

	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/koopa0/minigames-hub/internal/auth"
	"github.com/koopa0/minigames-hub/internal/session"
)

// Hub WebSocket 連接中心。
//
// 連接映射是扁平的 map[connID]*client：連線不屬於某個房間，
// 大廳廣播和房間廣播都由 Registry 決定收件人，Hub 只負責投遞。
type Hub struct {
	registry *session.Registry
	verifier *auth.Verifier
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*client
}

// New 創建 Hub。registry 之後以 SetRegistry 注入，
// 因為 Registry 建構時也需要 Hub 作為 Sender（雙向依賴只在組裝時解開）。
func New(verifier *auth.Verifier, logger *slog.Logger) *Hub {
	return &Hub{
		verifier: verifier,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// 在生產環境應該檢查來源
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns: make(map[string]*client),
	}
}

// SetRegistry 注入會話註冊表，必須在第一個連接到來前完成
func (hub *Hub) SetRegistry(registry *session.Registry) {
	hub.registry = registry
}

// ServeWS 處理 WebSocket 連接：驗 token、升級、啟動讀寫 goroutine
func (hub *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	identity, err := hub.verifier.Verify(tokenString)
	if err != nil {
		hub.logger.Warn("連接驗證失敗", "error", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("升級 WebSocket 失敗", "error", err)
		return
	}

	c := &client{
		id:       uuid.NewString(),
		username: identity.Username,
		conn:     conn,
		send:     make(chan []byte, 256),
		hub:      hub,
	}

	hub.register(c)
	hub.registry.Connect(c.id, c.username)

	go c.writePump()
	go c.readPump()

	hub.logger.Info("WebSocket 連接建立",
		"conn_id", c.id,
		"username", c.username)
}

// Send 實現 session.Sender：序列化事件並投遞給指定連接。
// 非阻塞：緩衝滿了丟棄並記日誌，慢客戶端不能拖住 Registry 的鎖。
func (hub *Hub) Send(connID string, event session.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		hub.logger.Error("序列化事件失敗", "event", event.Name, "error", err)
		return
	}

	hub.mu.RLock()
	c, exists := hub.conns[connID]
	hub.mu.RUnlock()
	if !exists {
		return
	}

	select {
	case c.send <- payload:
	default:
		hub.logger.Warn("連接緩衝區滿，丟棄事件",
			"conn_id", connID,
			"event", event.Name)
	}
}

// register 註冊連接
func (hub *Hub) register(c *client) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.conns[c.id] = c
}

// unregister 取消註冊連接並通知會話層
func (hub *Hub) unregister(c *client) {
	hub.mu.Lock()
	current, exists := hub.conns[c.id]
	if exists && current == c {
		delete(hub.conns, c.id)
		c.closeOnce.Do(func() {
			close(c.send)
		})
	}
	hub.mu.Unlock()

	if exists {
		hub.registry.Disconnect(c.id)
	}
}

// ConnectionCount 目前的連接數
func (hub *Hub) ConnectionCount() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.conns)
}

// Stop 關閉所有連接
func (hub *Hub) Stop() {
	hub.mu.Lock()
	for _, c := range hub.conns {
		// 先關閉 send channel，再關閉連接
		c.closeOnce.Do(func() {
			close(c.send)
		})
		c.conn.Close()
	}
	hub.conns = make(map[string]*client)
	hub.mu.Unlock()

	hub.logger.Info("WebSocket Hub 已停止")
}
