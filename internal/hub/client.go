package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/koopa0/minigames-hub/internal/game"
	"github.com/koopa0/minigames-hub/internal/session"
)

const (
	// 寫入單條消息的期限
	writeWait = 10 * time.Second

	// 讀取超時：如果 60 秒內沒有收到任何消息（包括 Pong），關閉連接
	pongWait = 60 * time.Second

	// Ping 間隔：54 秒，避開常見的 60 秒代理超時，留 6 秒余量
	pingPeriod = 54 * time.Second
)

// client 單一 WebSocket 連接
type client struct {
	id        string
	username  string
	conn      *websocket.Conn
	send      chan []byte
	hub       *Hub
	closeOnce sync.Once
}

// clientMessage 客戶端 → 服務端的消息封包。
// Data 依 Type 延遲解碼，未知類型記日誌後忽略。
type clientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// readPump 讀取客戶端消息
//
// 心跳機制（讀取端）：
//   writePump 每 54 秒發 Ping，客戶端自動回 Pong，
//   收到 Pong 重置 60 秒的讀取超時；54 秒未收到 Pong 即在
//   60 秒處超時並關閉連接，死連接不會佔著房間的座位。
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.hub.logger.Error("設置讀取期限失敗", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.hub.logger.Error("設置讀取期限失敗", "error", err)
		}
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("WebSocket 讀取錯誤",
					"error", err,
					"conn_id", c.id,
					"username", c.username)
			}
			break
		}

		if messageType == websocket.TextMessage {
			c.handleMessage(message)
		}
	}
}

// writePump 寫入消息到客戶端。
// 異步發送：send channel 緩衝消息，業務邏輯從不直接寫 socket。
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.hub.logger.Error("設置寫入期限失敗", "error", err)
			}
			if !ok {
				// Hub 關閉了通道，優雅關閉連接
				deadline := time.Now().Add(time.Second)
				if err := c.conn.SetWriteDeadline(deadline); err == nil {
					_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				}
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// 批量發送隊列中的消息
			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					c.hub.logger.Error("發送消息失敗", "error", err)
					return
				}
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.hub.logger.Error("設置寫入期限失敗", "error", err)
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 解碼入站消息並委派給會話註冊表。
// 封包格式錯誤只記日誌，不關連接：一條壞消息不該終止整個會話。
func (c *client) handleMessage(message []byte) {
	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.hub.logger.Error("解析客戶端消息失敗",
			"error", err,
			"conn_id", c.id)
		return
	}

	registry := c.hub.registry

	switch msg.Type {
	case "getRooms":
		registry.GetRooms(c.id)

	case "createRoom":
		var data struct {
			RoomName string `json:"roomName"`
			GameType string `json:"gameType"`
		}
		if !c.decode(msg, &data) {
			return
		}
		registry.CreateRoom(c.id, data.RoomName, data.GameType)

	case "joinRoom":
		var data struct {
			RoomID      string `json:"roomId"`
			AsSpectator bool   `json:"asSpectator"`
		}
		if !c.decode(msg, &data) {
			return
		}
		ack := registry.JoinRoom(c.id, data.RoomID, data.AsSpectator)
		c.hub.Send(c.id, session.Event{Name: session.EventJoinResult, Data: session.JoinResultData{
			RoomID: data.RoomID,
			Error:  ack,
		}})

	case "makeMove":
		var data struct {
			RoomID    string    `json:"roomId"`
			CellIndex int       `json:"cellIndex"`
			Role      game.Role `json:"role"`
		}
		if !c.decode(msg, &data) {
			return
		}
		registry.MakeMove(c.id, data.RoomID, data.CellIndex, data.Role)

	case "makeChoice":
		var data struct {
			RoomID string      `json:"roomId"`
			Choice game.Choice `json:"choice"`
		}
		if !c.decode(msg, &data) {
			return
		}
		registry.SubmitChoice(c.id, data.RoomID, data.Choice)

	case "flipCard":
		var data struct {
			RoomID string `json:"roomId"`
			CardID int    `json:"cardId"`
		}
		if !c.decode(msg, &data) {
			return
		}
		registry.FlipCard(c.id, data.RoomID, data.CardID)

	case "restartGame":
		var data struct {
			RoomID string `json:"roomId"`
		}
		if !c.decode(msg, &data) {
			return
		}
		registry.RequestRestart(c.id, data.RoomID)

	case "leaveRoom":
		var data struct {
			RoomID string `json:"roomId"`
		}
		if !c.decode(msg, &data) {
			return
		}
		registry.LeaveRoom(c.id, data.RoomID)

	case "lobbyMessage":
		var data struct {
			Message string `json:"message"`
		}
		if !c.decode(msg, &data) {
			return
		}
		registry.LobbyChat(c.id, data.Message)

	case "roomMessage":
		var data struct {
			RoomID  string `json:"roomId"`
			Message string `json:"message"`
		}
		if !c.decode(msg, &data) {
			return
		}
		registry.RoomChat(c.id, data.RoomID, data.Message)

	case "sendInvitation":
		var data struct {
			To       string `json:"to"`
			GameType string `json:"gameType"`
		}
		if !c.decode(msg, &data) {
			return
		}
		registry.SendInvitation(c.id, data.To, data.GameType)

	case "acceptInvitation":
		var data struct {
			From string `json:"from"`
		}
		if !c.decode(msg, &data) {
			return
		}
		registry.AcceptInvitation(c.id, data.From)

	case "declineInvitation":
		var data struct {
			From string `json:"from"`
		}
		if !c.decode(msg, &data) {
			return
		}
		registry.DeclineInvitation(c.id, data.From)

	case "getScoreboard":
		registry.GetScoreboard(c.id)

	default:
		c.hub.logger.Debug("收到未知消息類型",
			"type", msg.Type,
			"conn_id", c.id)
	}
}

// decode 解碼消息的 data 欄位，失敗記日誌並回報 false
func (c *client) decode(msg clientMessage, out any) bool {
	if err := json.Unmarshal(msg.Data, out); err != nil {
		c.hub.logger.Error("解析消息內容失敗",
			"type", msg.Type,
			"error", err,
			"conn_id", c.id)
		return false
	}
	return true
}
