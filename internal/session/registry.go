package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/koopa0/minigames-hub/internal/game"
	"github.com/koopa0/minigames-hub/internal/stats"
)

// Sender 把事件推給單一連線。
// 實現必須非阻塞且可併發呼叫（WebSocket hub 用緩衝 channel 實現，
// 緩衝滿了丟棄並記日誌，慢客戶端不能拖累整個房間）。
type Sender interface {
	Send(connID string, event Event)
}

// 大廳聊天保留的訊息上限
const maxLobbyMessages = 120

// Config Registry 的可調參數。
// 兩個延遲是測試縮短用的：正式值對應翻牌蓋回 1.2 秒、觀戰者清場 3 秒。
type Config struct {
	HideDelay     time.Duration
	EvictionDelay time.Duration
}

// DefaultConfig 正式環境的延遲設定
func DefaultConfig() Config {
	return Config{
		HideDelay:     1200 * time.Millisecond,
		EvictionDelay: 3 * time.Second,
	}
}

// invitation 待處理的對戰邀請，以受邀者為鍵、每人至多一筆
type invitation struct {
	From     string
	GameType game.Type
}

// Registry 進程級的會話註冊表：房間目錄、連線↔房間映射、
// 在線名單、大廳聊天、待處理邀請，以及廣播與計時器的編排。
//
// 並發模型：
//   - 單一互斥鎖序列化所有變更。任兩個事件處理不會在同一房間的
//     變更中途交錯，等價於原始設計的單線程事件分派
//   - 計時器（延遲蓋牌、延遲清場）觸發時重新取鎖，並重新驗證
//     房間/卡片仍然存在且處於預期狀態——房間可能早已被刪掉
//   - 統計寫入在鎖外以 goroutine 進行，失敗記日誌、不重試、
//     不阻塞廣播
type Registry struct {
	mu sync.Mutex

	rooms       map[string]*Room
	connRoom    map[string]string // connID -> roomID，與房間成員嚴格同步
	online      map[string]string // connID -> username
	lobby       []ChatMessage
	invitations map[string]invitation // 受邀者 username -> 邀請

	sender Sender
	store  stats.Store
	logger *slog.Logger
	cfg    Config
}

// NewRegistry 建立會話註冊表
func NewRegistry(cfg Config, sender Sender, store stats.Store, logger *slog.Logger) *Registry {
	return &Registry{
		rooms:       make(map[string]*Room),
		connRoom:    make(map[string]string),
		online:      make(map[string]string),
		invitations: make(map[string]invitation),
		sender:      sender,
		store:       store,
		logger:      logger,
		cfg:         cfg,
	}
}

// Connect 連線建立：登記在線名單、回放大廳聊天、廣播大廳狀態。
// 身份已在連線邊界驗證過，這裡無條件信任。
func (reg *Registry) Connect(connID, username string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.online[connID] = username
	reg.send(connID, Event{Name: EventLobbyMessages, Data: reg.lobbySnapshot()})
	reg.broadcastLobby()

	reg.logger.Info("連線加入", "conn_id", connID, "username", username)
}

// Disconnect 連線終止：進行中的 2 人局走判負，否則一般移除；
// 一律清掉 connRoom 與在線名單並重播大廳。
func (reg *Registry) Disconnect(connID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	username := reg.online[connID]
	if roomID, ok := reg.connRoom[connID]; ok {
		if room, exists := reg.rooms[roomID]; exists {
			reg.departRoom(connID, room, username, "opponent_disconnected")
		}
	}

	delete(reg.connRoom, connID)
	delete(reg.online, connID)
	reg.broadcastLobby()

	reg.logger.Info("連線離開", "conn_id", connID, "username", username)
}

// GetRooms 回傳未結束的房間列表給單一連線
func (reg *Registry) GetRooms(connID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.send(connID, Event{Name: EventRoomsList, Data: reg.roomsSnapshot()})
}

// CreateRoom 建立房間並以發起者為第一位玩家。
// 房間 ID 是保證不與現存鍵衝突的 6 位數字。
func (reg *Registry) CreateRoom(connID, roomName, gameType string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	username, ok := reg.online[connID]
	if !ok {
		reg.send(connID, Event{Name: EventMoveError, Data: "Authentication failed"})
		return
	}
	if _, inRoom := reg.connRoom[connID]; inRoom {
		reg.send(connID, Event{Name: EventMoveError, Data: "You are already in a game"})
		return
	}

	roomID := reg.newRoomID()
	room := NewRoom(roomID, strings.TrimSpace(roomName), game.ParseType(gameType))
	player, err := room.AddPlayer(connID, username)
	if err != nil {
		// 新房間加第一位玩家不可能失敗，防衛性保留
		reg.send(connID, Event{Name: EventMoveError, Data: err.Error()})
		return
	}

	reg.rooms[roomID] = room
	reg.connRoom[connID] = roomID

	reg.broadcastGameState(room)
	reg.send(connID, Event{Name: EventRoomCreated, Data: RoomCreatedData{
		RoomID:   roomID,
		RoomName: room.Name,
		Player:   PlayerInfo{Username: player.Username, Role: player.Role},
		GameType: room.GameType,
	}})
	reg.broadcastRoomsList()

	reg.logger.Info("房間已建立",
		"room_id", roomID,
		"room_name", room.Name,
		"game_type", room.GameType,
		"username", username)
}

// JoinRoom 以玩家或觀戰者身份加入。
// 所有檢查都在任何狀態變更之前完成，拒絕時不留下半套的加入。
// 回傳的錯誤字串是 ack：空字串表示成功。
func (reg *Registry) JoinRoom(connID, roomID string, asSpectator bool) string {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	username, ok := reg.online[connID]
	if !ok {
		return "Authentication failed"
	}
	room, exists := reg.rooms[roomID]
	if !exists {
		return "Room does not exist"
	}
	if room.Status == StatusFinished {
		return "Game has finished"
	}
	if room.IsMember(connID) {
		return "You are already in this room"
	}
	if current, inRoom := reg.connRoom[connID]; inRoom && current != roomID {
		return "You are already in a game"
	}
	if !asSpectator {
		if len(room.Players) >= 2 {
			return ErrRoomFull.Error()
		}
		if room.Status == StatusInProgress {
			return ErrGameStarted.Error()
		}
	}

	// 檢查全數通過，開始提交
	reg.connRoom[connID] = roomID

	if asSpectator {
		room.AddSpectator(connID, username)
		reg.send(connID, Event{Name: EventJoinedAsSpectator, Data: JoinedAsSpectatorData{
			Room:     room.Info(),
			GameType: room.GameType,
		}})
		reg.broadcastGameState(room)
		reg.broadcastRoomsList()
		return ""
	}

	player, err := room.AddPlayer(connID, username)
	if err != nil {
		// 前置檢查已涵蓋，防衛性回滾
		delete(reg.connRoom, connID)
		return err.Error()
	}

	reg.send(connID, Event{Name: EventPlayersRole, Data: PlayersRoleData{
		Role:     player.Role,
		RoomName: room.Name,
		Players:  room.playerInfos(),
		GameType: room.GameType,
	}})
	if len(room.Players) == 2 {
		reg.broadcastRoom(room, Event{Name: EventStartGame, Data: StartGameData{
			FirstTurn: room.FirstTurn(),
			Players:   room.playerInfos(),
			GameType:  room.GameType,
		}})
	}
	reg.broadcastGameState(room)
	reg.broadcastRoomsList()
	return ""
}

// MakeMove 井字棋落子：成功→廣播新狀態；回合結束→回合結果；
// 整局結束→寫統計一次並排程觀戰者清場。
func (reg *Registry) MakeMove(connID, roomID string, cell int, role game.Role) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, exists := reg.rooms[roomID]
	if !exists || room.GameType != game.TypeTicTacToe {
		return
	}

	res, err := room.MakeMove(connID, role, cell)
	if err != nil {
		reg.send(connID, Event{Name: EventMoveError, Data: err.Error()})
		return
	}

	reg.broadcastGameState(room)
	if res.RoundOver && !res.GameOver {
		reg.broadcastRoom(room, Event{Name: EventTTTRoundResult, Data: TTTRoundResultData{
			RoundWinner: res.RoundWinner,
			Scores:      res.Scores,
		}})
	}
	if res.GameOver {
		reg.recordResult(room, res.GameWinner)
		reg.broadcastRoomsList()
		reg.scheduleEviction(roomID)
	}
}

// SubmitChoice 猜拳出拳
func (reg *Registry) SubmitChoice(connID, roomID string, choice game.Choice) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, exists := reg.rooms[roomID]
	if !exists || room.GameType != game.TypeRockPaperScissors {
		return
	}

	res, err := room.SubmitChoice(connID, choice)
	if err != nil {
		reg.send(connID, Event{Name: EventMoveError, Data: err.Error()})
		return
	}
	if res.Waiting {
		reg.send(connID, Event{Name: EventRPSStatus, Data: map[string]bool{"waiting": true}})
		return
	}

	data := RPSResultData{
		Choices:    res.Choices,
		WinnerRole: res.RoundWinner,
		Round:      res.Round,
		Scores:     res.Scores,
		GameOver:   res.GameOver,
	}
	if role, ok := res.RoundWinner.Role(); ok {
		if p := room.PlayerByRole(role); p != nil {
			data.WinnerUsername = p.Username
		}
	}
	if role, ok := res.GameWinner.Role(); ok {
		if p := room.PlayerByRole(role); p != nil {
			data.GameWinner = p.Username
		}
	}
	reg.broadcastRoom(room, Event{Name: EventRPSResult, Data: data})

	if res.GameOver {
		reg.recordResult(room, res.GameWinner)
		reg.broadcastRoomsList()
		reg.scheduleEviction(roomID)
	}
	reg.broadcastGameState(room)
}

// FlipCard 翻牌配對翻牌：不配對時排程延遲蓋回（約 1.2 秒）
func (reg *Registry) FlipCard(connID, roomID string, cardID int) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, exists := reg.rooms[roomID]
	if !exists || room.GameType != game.TypeMemoryMatch {
		return
	}

	res, err := room.FlipCard(connID, cardID)
	if err != nil {
		reg.send(connID, Event{Name: EventMoveError, Data: err.Error()})
		return
	}

	reg.broadcastGameState(room)
	reg.broadcastRoom(room, Event{Name: EventMemoryResult, Data: MemoryResultData{
		RoomID: roomID,
		Result: res,
	}})

	if res.GameOver {
		reg.recordResult(room, res.GameWinner)
		reg.broadcastRoomsList()
		reg.scheduleEviction(roomID)
	}
	if len(res.Pending) > 0 {
		reg.scheduleHide(roomID, res.Pending)
	}
}

// RequestRestart 重賽投票：兩票到齊才重置並廣播重開
func (reg *Registry) RequestRestart(connID, roomID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, exists := reg.rooms[roomID]
	if !exists {
		return
	}

	res, err := room.RequestRestart(connID)
	if err != nil {
		reg.send(connID, Event{Name: EventMoveError, Data: err.Error()})
		return
	}
	if !res.Restarted {
		return
	}

	reg.broadcastRoom(room, Event{Name: EventRestartGame, Data: RestartGameData{
		FirstTurn: res.FirstTurn,
		Players:   room.playerInfos(),
		GameType:  room.GameType,
	}})
	reg.broadcastGameState(room)
	reg.broadcastRoomsList()
}

// SendInvitation 送出對戰邀請。受邀者離線、任一方已在房間中都會失敗；
// 同一受邀者的新邀請覆蓋舊邀請。
func (reg *Registry) SendInvitation(connID, to, gameType string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	from, ok := reg.online[connID]
	if !ok {
		reg.send(connID, Event{Name: EventInvitationError, Data: "Authentication failed"})
		return
	}

	targetConn, online := reg.connByUsername(to)
	if !online {
		reg.send(connID, Event{Name: EventInvitationError, Data: fmt.Sprintf("%s is not online", to)})
		return
	}
	if _, inRoom := reg.connRoom[targetConn]; inRoom {
		reg.send(connID, Event{Name: EventInvitationError, Data: fmt.Sprintf("%s is already in a game", to)})
		return
	}
	if _, inRoom := reg.connRoom[connID]; inRoom {
		reg.send(connID, Event{Name: EventInvitationError, Data: "You are already in a game"})
		return
	}

	inv := invitation{From: from, GameType: game.ParseType(gameType)}
	reg.invitations[to] = inv
	reg.send(targetConn, Event{Name: EventGameInvitation, Data: InvitationData{
		From:     inv.From,
		GameType: inv.GameType,
	}})
}

// AcceptInvitation 接受邀請：驗證存留的邀請確實來自 from、刪除它，
// 然後原子地建一間新房（發送方為第一位玩家、接受方為第二位）。
// 任何一步失敗整個操作放棄，不落任何狀態、不做任何廣播。
func (reg *Registry) AcceptInvitation(connID, from string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	to, ok := reg.online[connID]
	if !ok {
		reg.send(connID, Event{Name: EventInvitationError, Data: "Authentication failed"})
		return
	}

	inv, found := reg.invitations[to]
	if !found || inv.From != from {
		reg.send(connID, Event{Name: EventInvitationError, Data: "Invitation not found or expired"})
		return
	}
	delete(reg.invitations, to)

	senderConn, online := reg.connByUsername(from)
	if !online {
		reg.send(connID, Event{Name: EventInvitationError, Data: fmt.Sprintf("%s is no longer online", from)})
		return
	}

	roomID := reg.newRoomID()
	room := NewRoom(roomID, fmt.Sprintf("%s vs %s", from, to), inv.GameType)
	senderPlayer, err := room.AddPlayer(senderConn, from)
	if err != nil {
		reg.send(connID, Event{Name: EventInvitationError, Data: "Failed to create room"})
		return
	}
	acceptorPlayer, err := room.AddPlayer(connID, to)
	if err != nil {
		reg.send(connID, Event{Name: EventInvitationError, Data: "Failed to join room"})
		return
	}

	// 兩位都加入成功，才登記並廣播
	reg.rooms[roomID] = room
	reg.connRoom[senderConn] = roomID
	reg.connRoom[connID] = roomID

	reg.send(senderConn, Event{Name: EventRoomCreated, Data: RoomCreatedData{
		RoomID:   roomID,
		RoomName: room.Name,
		Player:   PlayerInfo{Username: senderPlayer.Username, Role: senderPlayer.Role},
		GameType: room.GameType,
	}})
	reg.send(connID, Event{Name: EventInvitationAccepted, Data: InvitationAcceptedData{
		RoomID:   roomID,
		RoomName: room.Name,
		GameType: room.GameType,
	}})
	reg.send(connID, Event{Name: EventPlayersRole, Data: PlayersRoleData{
		Role:     acceptorPlayer.Role,
		RoomName: room.Name,
		Players:  room.playerInfos(),
		GameType: room.GameType,
	}})
	reg.broadcastRoom(room, Event{Name: EventStartGame, Data: StartGameData{
		FirstTurn: room.FirstTurn(),
		Players:   room.playerInfos(),
		GameType:  room.GameType,
	}})
	reg.broadcastGameState(room)
	reg.broadcastRoomsList()
}

// DeclineInvitation 拒絕邀請並通知仍在線的發送方
func (reg *Registry) DeclineInvitation(connID, from string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	to, ok := reg.online[connID]
	if !ok {
		return
	}
	delete(reg.invitations, to)

	if senderConn, online := reg.connByUsername(from); online {
		reg.send(senderConn, Event{Name: EventInvitationDeclined, Data: InvitationDeclinedData{To: to}})
	}
}

// LeaveRoom 主動離開房間
func (reg *Registry) LeaveRoom(connID, roomID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, exists := reg.rooms[roomID]
	if !exists {
		return
	}
	// 只清除該連線真實所在房間的對映：拿別的 roomID 來離開
	// 不能把玩家從自己的房間踢掉
	if reg.connRoom[connID] != roomID {
		return
	}
	username := reg.online[connID]
	reg.departRoom(connID, room, username, "opponent_left")
	delete(reg.connRoom, connID)
}

// LobbyChat 大廳聊天：存入環形緩衝（上限 120）並廣播給所有人
func (reg *Registry) LobbyChat(connID, message string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	username, ok := reg.online[connID]
	message = strings.TrimSpace(message)
	if !ok || message == "" {
		return
	}

	msg := ChatMessage{
		Username:  username,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	}
	reg.lobby = append(reg.lobby, msg)
	if len(reg.lobby) > maxLobbyMessages {
		reg.lobby = reg.lobby[len(reg.lobby)-maxLobbyMessages:]
	}
	reg.broadcastAll(Event{Name: EventLobbyMessage, Data: msg})
}

// RoomChat 房間聊天：只廣播給該房間的成員
func (reg *Registry) RoomChat(connID, roomID, message string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	username, ok := reg.online[connID]
	message = strings.TrimSpace(message)
	if !ok || message == "" {
		return
	}
	room, exists := reg.rooms[roomID]
	if !exists || !room.IsMember(connID) {
		return
	}

	reg.broadcastRoom(room, Event{Name: EventRoomMessage, Data: ChatMessage{
		RoomID:    roomID,
		Username:  username,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	}})
}

// GetScoreboard 查排行榜。查詢在鎖外進行，失敗時回空列表。
func (reg *Registry) GetScoreboard(connID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		top, err := reg.store.TopPlayers(ctx, 20)
		if err != nil {
			reg.logger.Error("查詢排行榜失敗", "error", err)
			top = []stats.PlayerStats{}
		}
		reg.sender.Send(connID, Event{Name: EventScoreboardData, Data: top})
	}()
}

// Stats 註冊表目前的計數（/stats 端點用）
func (reg *Registry) Stats() map[string]any {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	statusCount := make(map[Status]int)
	typeCount := make(map[game.Type]int)
	for _, room := range reg.rooms {
		statusCount[room.Status]++
		typeCount[room.GameType]++
	}
	return map[string]any{
		"total_rooms":         len(reg.rooms),
		"online_users":        len(reg.online),
		"pending_invitations": len(reg.invitations),
		"by_status":           statusCount,
		"by_game_type":        typeCount,
	}
}

// --- 內部：離開/判負 ---

// departRoom 處理一位成員離開（主動離開與斷線共用）。
//
// 進行中的 2 人局玩家離開是「判負」：留下的玩家獲勝、結果只寫一次、
// 其餘所有人（留下的玩家與全部觀戰者）被強制請出並通知跳轉，
// 房間直接刪除——少了一方遊戲無法繼續，觀戰者還在也一樣。
// 呼叫方必須持有 reg.mu。
func (reg *Registry) departRoom(connID string, room *Room, username, reason string) {
	wasInProgress := room.Status == StatusInProgress
	hadTwoPlayers := len(room.Players) == 2
	leavingPlayer := room.PlayerByConn(connID)

	if wasInProgress && hadTwoPlayers && leavingPlayer != nil {
		reg.forfeit(connID, room, username, reason)
		return
	}

	if _, removed := room.RemoveConnection(connID); !removed {
		return
	}

	if room.IsEmpty() {
		delete(reg.rooms, room.ID)
		reg.broadcastRoomsList()
		return
	}
	reg.broadcastGameState(room)
	reg.broadcastRoomsList()
}

// forfeit 判負流程。呼叫方必須持有 reg.mu。
func (reg *Registry) forfeit(connID string, room *Room, username, reason string) {
	remaining := room.OtherPlayer(connID)
	if remaining == nil {
		room.RemoveConnection(connID)
		return
	}

	reg.recordResult(room, game.Outcome(remaining.Role))

	notice := Event{Name: EventPlayerDisconnected, Data: PlayerDisconnectedData{
		Username:   username,
		Winner:     remaining.Username,
		Reason:     reason,
		ForceLeave: true,
	}}

	room.RemoveConnection(remaining.ConnID)
	delete(reg.connRoom, remaining.ConnID)
	reg.send(remaining.ConnID, notice)

	for _, s := range room.Spectators {
		delete(reg.connRoom, s.ConnID)
		reg.send(s.ConnID, notice)
	}

	room.RemoveConnection(connID)
	delete(reg.rooms, room.ID)
	reg.broadcastRoomsList()

	reg.logger.Info("判負結束",
		"room_id", room.ID,
		"winner", remaining.Username,
		"leaver", username,
		"reason", reason)
}

// --- 內部：計時器 ---

// scheduleHide 排程蓋回未配對的牌。
// 計時器觸發時房間可能已被刪除或已換了一副牌，重新驗證後才動手。
func (reg *Registry) scheduleHide(roomID string, cardIDs []int) {
	ids := append([]int(nil), cardIDs...)
	time.AfterFunc(reg.cfg.HideDelay, func() {
		reg.mu.Lock()
		defer reg.mu.Unlock()

		room, exists := reg.rooms[roomID]
		if !exists || room.GameType != game.TypeMemoryMatch {
			return
		}
		room.HideCards(ids)
		reg.broadcastGameState(room)
	})
}

// scheduleEviction 終局後的延遲清場：讓觀戰者看完結果再請出去。
// 觸發時重新驗證房間存在；玩家可能早一步離開把房間清空了。
func (reg *Registry) scheduleEviction(roomID string) {
	time.AfterFunc(reg.cfg.EvictionDelay, func() {
		reg.mu.Lock()
		defer reg.mu.Unlock()

		room, exists := reg.rooms[roomID]
		if !exists {
			return
		}

		winnerDisplay := "Unknown"
		if role, ok := room.Winner.Role(); ok {
			if p := room.PlayerByRole(role); p != nil {
				winnerDisplay = p.Username
			} else {
				winnerDisplay = string(role)
			}
		} else if room.Winner == game.OutcomeDraw {
			winnerDisplay = "Draw"
		}

		spectators := append([]*Spectator(nil), room.Spectators...)
		for _, s := range spectators {
			delete(reg.connRoom, s.ConnID)
			room.RemoveConnection(s.ConnID)
			reg.send(s.ConnID, Event{Name: EventGameFinished, Data: GameFinishedData{
				RoomID:     roomID,
				Winner:     winnerDisplay,
				Reason:     "game_ended",
				ForceLeave: true,
			}})
		}

		if room.IsEmpty() {
			delete(reg.rooms, roomID)
		}
		reg.broadcastRoomsList()
	})
}

// --- 內部：統計 ---

// recordResult 把終局結果交給持久化閘道。
// 每場結束的遊戲恰好呼叫一次（終局的那一步或判負時），寫入在鎖外
// fire-and-forget：失敗記日誌，不阻塞也不回滾遊戲狀態。
func (reg *Registry) recordResult(room *Room, winner game.Outcome) {
	if len(room.Players) != 2 {
		return
	}
	players := [2]stats.Participant{
		{Username: room.Players[0].Username, Role: string(room.Players[0].Role)},
		{Username: room.Players[1].Username, Role: string(room.Players[1].Role)},
	}
	outcome := string(winner)
	gameType := string(room.GameType)
	roomID := room.ID

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := reg.store.RecordGameResult(ctx, outcome, players, gameType); err != nil {
			reg.logger.Error("寫入對局結果失敗",
				"room_id", roomID,
				"winner", outcome,
				"error", err)
		}
	}()
}

// --- 內部：廣播 ---

// send 推事件給單一連線。呼叫方持鎖也安全：Sender 不阻塞。
func (reg *Registry) send(connID string, ev Event) {
	reg.sender.Send(connID, ev)
}

// broadcastRoom 推給房間的所有玩家與觀戰者
func (reg *Registry) broadcastRoom(room *Room, ev Event) {
	for _, p := range room.Players {
		reg.send(p.ConnID, ev)
	}
	for _, s := range room.Spectators {
		reg.send(s.ConnID, ev)
	}
}

// broadcastAll 推給所有在線連線
func (reg *Registry) broadcastAll(ev Event) {
	for connID := range reg.online {
		reg.send(connID, ev)
	}
}

// broadcastGameState 廣播變更後的完整遊戲狀態。
// 快照在持鎖時產生，發出去的永遠是變更後的版本。
func (reg *Registry) broadcastGameState(room *Room) {
	reg.broadcastRoom(room, Event{Name: EventGameStateUpdate, Data: room.State()})
}

// broadcastRoomsList 廣播房間列表與大廳狀態
func (reg *Registry) broadcastRoomsList() {
	reg.broadcastAll(Event{Name: EventRoomsList, Data: reg.roomsSnapshot()})
	reg.broadcastLobby()
}

func (reg *Registry) broadcastLobby() {
	reg.broadcastAll(Event{Name: EventLobbyUpdate, Data: reg.lobbyState()})
}

// roomsSnapshot 未結束的房間列表（finished 的不對外列出）
func (reg *Registry) roomsSnapshot() []RoomInfo {
	infos := make([]RoomInfo, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		if room.Status == StatusFinished {
			continue
		}
		infos = append(infos, room.Info())
	}
	return infos
}

func (reg *Registry) lobbyState() LobbyState {
	users := make([]string, 0, len(reg.online))
	for _, username := range reg.online {
		users = append(users, username)
	}
	return LobbyState{Rooms: reg.roomsSnapshot(), Users: users}
}

func (reg *Registry) lobbySnapshot() []ChatMessage {
	return append([]ChatMessage(nil), reg.lobby...)
}

// connByUsername 以使用者名反查連線
func (reg *Registry) connByUsername(username string) (string, bool) {
	for connID, name := range reg.online {
		if name == username {
			return connID, true
		}
	}
	return "", false
}

// newRoomID 產生 6 位數字的房間 ID，重roll直到不與現存鍵衝突。
// 呼叫方持有 reg.mu，檢查與落鍵之間不會有並發建立插進來。
func (reg *Registry) newRoomID() string {
	for {
		id := fmt.Sprintf("%06d", 100000+randInt(900000))
		if _, exists := reg.rooms[id]; !exists {
			return id
		}
	}
}

// randInt 以 crypto/rand 產生 [0, max) 的隨機數
func randInt(max int) int {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return int(time.Now().UnixNano()) % max
	}
	n := int(b[0])<<24 | int(b[1])<<16 | int(b[2])<<8 | int(b[3])
	if n < 0 {
		n = -n
	}
	return n % max
}
