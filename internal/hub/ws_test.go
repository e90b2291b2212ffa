package hub_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/minigames-hub/internal/auth"
	"github.com/koopa0/minigames-hub/internal/session"
)

// wireEvent 測試端收到的事件封包，Data 延遲解碼
type wireEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// dialWS 以指定身份建立 WebSocket 連線
func dialWS(t *testing.T, server *httptest.Server, verifier *auth.Verifier, username string) *websocket.Conn {
	t.Helper()

	token, err := verifier.Generate(username)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil 讀事件直到出現指定名稱（跳過途中的廣播）
func readUntil(t *testing.T, conn *websocket.Conn, name string) wireEvent {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		var ev wireEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("waiting for %q: %v", name, err)
		}
		if ev.Name == name {
			return ev
		}
	}
}

// sendMessage 送出一條客戶端消息
func sendMessage(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"type": msgType, "data": data})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}

// TestWebSocket_ConnectAndCreateRoom 連線後建房的完整來回
func TestWebSocket_ConnectAndCreateRoom(t *testing.T) {
	server, verifier := newTestServer(t)
	conn := dialWS(t, server, verifier, "alice")

	// 連線即收到聊天回放與大廳狀態
	readUntil(t, conn, session.EventLobbyMessages)
	readUntil(t, conn, session.EventLobbyUpdate)

	sendMessage(t, conn, "createRoom", map[string]any{
		"roomName": "測試房",
		"gameType": "tic-tac-toe",
	})

	ev := readUntil(t, conn, session.EventRoomCreated)
	var created struct {
		RoomID   string `json:"roomId"`
		RoomName string `json:"roomName"`
		Player   struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"player"`
	}
	require.NoError(t, json.Unmarshal(ev.Data, &created))
	assert.Len(t, created.RoomID, 6)
	assert.Equal(t, "測試房", created.RoomName)
	assert.Equal(t, "alice", created.Player.Username)
	assert.Equal(t, "X", created.Player.Role)
}

// TestWebSocket_TwoPlayersStartGame 第二位玩家加入即開局
func TestWebSocket_TwoPlayersStartGame(t *testing.T) {
	server, verifier := newTestServer(t)

	host := dialWS(t, server, verifier, "alice")
	guest := dialWS(t, server, verifier, "bob")

	sendMessage(t, host, "createRoom", map[string]any{
		"roomName": "",
		"gameType": "tic-tac-toe",
	})
	ev := readUntil(t, host, session.EventRoomCreated)
	var created struct {
		RoomID string `json:"roomId"`
	}
	require.NoError(t, json.Unmarshal(ev.Data, &created))

	sendMessage(t, guest, "joinRoom", map[string]any{
		"roomId":      created.RoomID,
		"asSpectator": false,
	})

	// 客人收到座位與 ack，雙方收到開局
	roleEv := readUntil(t, guest, session.EventPlayersRole)
	var role struct {
		Role string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(roleEv.Data, &role))
	assert.Equal(t, "O", role.Role)

	ackEv := readUntil(t, guest, session.EventJoinResult)
	var ack struct {
		RoomID string `json:"roomId"`
		Error  string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(ackEv.Data, &ack))
	assert.Equal(t, created.RoomID, ack.RoomID)
	assert.Empty(t, ack.Error)

	startEv := readUntil(t, host, session.EventStartGame)
	var start struct {
		FirstTurn string `json:"firstTurn"`
		GameType  string `json:"gameType"`
	}
	require.NoError(t, json.Unmarshal(startEv.Data, &start))
	assert.Equal(t, "X", start.FirstTurn)
	assert.Equal(t, "tic-tac-toe", start.GameType)

	// 主人落子，客人看到變更後的狀態
	sendMessage(t, host, "makeMove", map[string]any{
		"roomId":    created.RoomID,
		"cellIndex": 4,
		"role":      "X",
	})
	for {
		stateEv := readUntil(t, guest, session.EventGameStateUpdate)
		var state struct {
			Board []string `json:"board"`
		}
		require.NoError(t, json.Unmarshal(stateEv.Data, &state))
		if len(state.Board) == 9 && state.Board[4] == "X" {
			break
		}
	}
}

// TestWebSocket_DisconnectForfeits 斷線觸發判負通知
func TestWebSocket_DisconnectForfeits(t *testing.T) {
	server, verifier := newTestServer(t)

	host := dialWS(t, server, verifier, "alice")
	guest := dialWS(t, server, verifier, "bob")

	sendMessage(t, host, "createRoom", map[string]any{
		"roomName": "",
		"gameType": "rock-paper-scissors",
	})
	ev := readUntil(t, host, session.EventRoomCreated)
	var created struct {
		RoomID string `json:"roomId"`
	}
	require.NoError(t, json.Unmarshal(ev.Data, &created))

	sendMessage(t, guest, "joinRoom", map[string]any{"roomId": created.RoomID})
	readUntil(t, guest, session.EventStartGame)

	// 主人直接斷線，客人收到判負
	host.Close()

	disc := readUntil(t, guest, session.EventPlayerDisconnected)
	var data struct {
		Username   string `json:"username"`
		Winner     string `json:"winner"`
		ForceLeave bool   `json:"forceLeave"`
	}
	require.NoError(t, json.Unmarshal(disc.Data, &data))
	assert.Equal(t, "alice", data.Username)
	assert.Equal(t, "bob", data.Winner)
	assert.True(t, data.ForceLeave)
}
