// Package session 實現遊戲房間與進程級的會話註冊表。
//
// 系統設計問題：
//   多條連線同時觸碰同一個房間（落子、加入、斷線、計時器），
//   如何保證狀態一致並讓所有人看到變更後的快照？
//
// 核心挑戰：
//   1. 狀態管理：房間有明確的狀態機（waiting → in-progress → finished）
//   2. 並發控制：所有房間變更都經由 Registry 的單一互斥鎖序列化
//   3. 實時同步：每次變更後立刻廣播「變更後」的狀態，絕不發舊快照
//   4. 部分失敗：玩家中途斷線、計時器對上已消失的房間都要能優雅處理
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/koopa0/minigames-hub/internal/game"
)

// Status 房間狀態
//
// 狀態機：
//
//	waiting --(第二位玩家加入)--> in-progress --(引擎回報整局結束)--> finished
//	                                  ↑                                  |
//	                                  +------(雙方都投重賽票)------------+
//
// 進行中有玩家離開時不在房間內部轉回 waiting：2 人局由 Registry
// 以「判負」處理並直接刪除房間（遊戲少了一方就沒有意義）。
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in-progress"
	StatusFinished   Status = "finished"
)

// 玩家可見的驗證錯誤
var (
	ErrRoomFull        = errors.New("Room is full")
	ErrGameStarted     = errors.New("Game has already started")
	ErrGameNotFinished = errors.New("Game is not finished")
	ErrNotInRoom       = errors.New("Player not in room")
)

// Player 房間內的玩家；ConnID 只在服務端使用，不得出現在任何快照裡
type Player struct {
	ConnID   string
	Username string
	Role     game.Role
}

// Spectator 觀戰者
type Spectator struct {
	ConnID   string
	Username string
}

// RemovalType 移除連線時它原本的身份
type RemovalType string

const (
	RemovedPlayer    RemovalType = "player"
	RemovedSpectator RemovalType = "spectator"
	RemovedNone      RemovalType = "none"
)

// Room 一場遊戲會話的容器：至多 2 位玩家、不限數量的觀戰者，
// 以及當前遊戲類型對應的規則引擎。
//
// Room 本身不加鎖：所有變更都由 Registry 在持鎖狀態下呼叫，
// 單元測試則在單一 goroutine 中直接操作。
type Room struct {
	ID           string
	Name         string
	GameType     game.Type
	Players      []*Player
	Spectators   []*Spectator
	Status       Status
	Winner       game.Outcome
	CreatedAt    time.Time
	engine       game.Engine
	restartVotes map[string]struct{}
}

// NewRoom 建立房間。名稱留空時使用 "Room <id>"。
func NewRoom(id, name string, gameType game.Type) *Room {
	if name == "" {
		name = fmt.Sprintf("Room %s", id)
	}
	return &Room{
		ID:           id,
		Name:         name,
		GameType:     gameType,
		Status:       StatusWaiting,
		CreatedAt:    time.Now(),
		engine:       game.New(gameType),
		restartVotes: make(map[string]struct{}),
	}
}

// AddPlayer 以玩家身份加入。座位依加入順序指派（第一位 X、第二位 O），
// 第二位到齊時開局並轉為 in-progress。
func (r *Room) AddPlayer(connID, username string) (*Player, error) {
	if len(r.Players) >= 2 {
		return nil, ErrRoomFull
	}
	if r.Status == StatusInProgress {
		return nil, ErrGameStarted
	}

	role := game.RoleX
	if len(r.Players) == 1 {
		role = game.RoleO
	}
	player := &Player{ConnID: connID, Username: username, Role: role}
	r.Players = append(r.Players, player)

	if len(r.Players) == 2 {
		r.Status = StatusInProgress
		r.Winner = ""
		// 任何新開局都作廢殘留的重賽投票
		r.restartVotes = make(map[string]struct{})
		r.engine.Start()
	}
	return player, nil
}

// AddSpectator 以觀戰者身份加入，沒有容量限制
func (r *Room) AddSpectator(connID, username string) *Spectator {
	spectator := &Spectator{ConnID: connID, Username: username}
	r.Spectators = append(r.Spectators, spectator)
	return spectator
}

// RemoveConnection 從玩家或觀戰者名單移除連線。
//
// 防衛路徑：進行中的 2 人局正常情況由 Registry 先攔截做判負，
// 不會走到這裡；萬一仍在進行中掉到只剩 1 位玩家，退回 waiting
// 並完整重置遊戲狀態，當作安全網。
func (r *Room) RemoveConnection(connID string) (RemovalType, bool) {
	for i, p := range r.Players {
		if p.ConnID == connID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			if r.Status == StatusInProgress {
				r.reset()
				r.Status = StatusWaiting
			}
			delete(r.restartVotes, connID)
			return RemovedPlayer, true
		}
	}
	for i, s := range r.Spectators {
		if s.ConnID == connID {
			r.Spectators = append(r.Spectators[:i], r.Spectators[i+1:]...)
			return RemovedSpectator, true
		}
	}
	return RemovedNone, false
}

// MakeMove 井字棋落子。成員資格與座位驗證在這一層，規則在引擎。
func (r *Room) MakeMove(connID string, role game.Role, cell int) (game.Result, error) {
	if r.GameType != game.TypeTicTacToe {
		return game.Result{}, errors.New("Room is not running Tic Tac Toe")
	}
	if r.Status != StatusInProgress {
		return game.Result{}, game.ErrNotInProgress
	}
	player := r.PlayerByConn(connID)
	if player == nil || player.Role != role {
		return game.Result{}, game.ErrInvalidMove
	}

	res, err := r.engine.Apply(player.Role, game.Input{Cell: cell})
	if err != nil {
		return game.Result{}, err
	}
	if res.GameOver {
		r.finish(res.GameWinner)
	}
	return res, nil
}

// SubmitChoice 猜拳出拳。開局前就提交會停在 waiting 結果；
// 終局後或非成員的提交是錯誤，不是靜默忽略。
func (r *Room) SubmitChoice(connID string, choice game.Choice) (game.Result, error) {
	if r.GameType != game.TypeRockPaperScissors {
		return game.Result{}, errors.New("Room is not running Rock Paper Scissors")
	}
	if r.Status == StatusFinished {
		return game.Result{}, game.ErrGameFinished
	}
	player := r.PlayerByConn(connID)
	if player == nil {
		return game.Result{}, errors.New("Player not found in room")
	}

	res, err := r.engine.Apply(player.Role, game.Input{Choice: choice})
	if err != nil {
		return game.Result{}, err
	}
	if res.GameOver {
		r.finish(res.GameWinner)
	}
	return res, nil
}

// FlipCard 翻牌配對翻一張牌
func (r *Room) FlipCard(connID string, cardID int) (game.Result, error) {
	if r.GameType != game.TypeMemoryMatch {
		return game.Result{}, errors.New("Wrong game")
	}
	player := r.PlayerByConn(connID)
	if player == nil {
		return game.Result{}, ErrNotInRoom
	}
	if len(r.Players) < 2 {
		return game.Result{}, errors.New("Waiting for second player to start the game")
	}
	if r.Status == StatusWaiting {
		return game.Result{}, errors.New("Game has not started yet")
	}
	if r.Status == StatusFinished {
		return game.Result{}, errors.New("Game finished")
	}

	res, err := r.engine.Apply(player.Role, game.Input{Card: cardID})
	if err != nil {
		return game.Result{}, err
	}
	if res.GameOver {
		r.finish(res.GameWinner)
	}
	return res, nil
}

// HideCards 蓋回未配對的牌（延遲計時器觸發時由 Registry 呼叫）
func (r *Room) HideCards(cardIDs []int) {
	if mm, ok := r.engine.(*game.MemoryMatch); ok {
		mm.Hide(cardIDs)
	}
}

// RestartResult 重賽投票的結果
type RestartResult struct {
	Restarted bool
	FirstTurn game.Role
}

// RequestRestart 投重賽票。只有終局狀態下的現任玩家可以投；
// 兩位玩家都投了才真正重置並回到 in-progress。
func (r *Room) RequestRestart(connID string) (RestartResult, error) {
	if r.Status != StatusFinished {
		return RestartResult{}, ErrGameNotFinished
	}
	if r.PlayerByConn(connID) == nil {
		return RestartResult{}, ErrNotInRoom
	}

	r.restartVotes[connID] = struct{}{}
	for _, p := range r.Players {
		if _, voted := r.restartVotes[p.ConnID]; !voted {
			return RestartResult{Restarted: false}, nil
		}
	}
	if len(r.Players) < 2 {
		return RestartResult{Restarted: false}, nil
	}

	r.engine.Rematch()
	r.restartVotes = make(map[string]struct{})
	r.Status = StatusInProgress
	r.Winner = ""
	return RestartResult{Restarted: true, FirstTurn: r.engine.FirstTurn()}, nil
}

// finish 引擎回報整局結束時的狀態轉移
func (r *Room) finish(winner game.Outcome) {
	r.Status = StatusFinished
	r.Winner = winner
}

// reset 完整重置遊戲狀態（防衛路徑與掉人後的清理用）
func (r *Room) reset() {
	r.engine.Start()
	r.restartVotes = make(map[string]struct{})
	r.Winner = ""
}

// FirstTurn 目前輪到的座位（開局廣播用）
func (r *Room) FirstTurn() game.Role { return r.engine.FirstTurn() }

// PlayerByConn 依連線找玩家
func (r *Room) PlayerByConn(connID string) *Player {
	for _, p := range r.Players {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

// PlayerByRole 依座位找玩家
func (r *Room) PlayerByRole(role game.Role) *Player {
	for _, p := range r.Players {
		if p.Role == role {
			return p
		}
	}
	return nil
}

// OtherPlayer 另一位玩家（判負流程用）
func (r *Room) OtherPlayer(connID string) *Player {
	for _, p := range r.Players {
		if p.ConnID != connID {
			return p
		}
	}
	return nil
}

// IsMember 連線是否已是玩家或觀戰者
func (r *Room) IsMember(connID string) bool {
	if r.PlayerByConn(connID) != nil {
		return true
	}
	for _, s := range r.Spectators {
		if s.ConnID == connID {
			return true
		}
	}
	return false
}

// IsEmpty 沒有任何玩家與觀戰者。空房間是垃圾，必須立刻刪除。
func (r *Room) IsEmpty() bool {
	return len(r.Players) == 0 && len(r.Spectators) == 0
}

// PlayerInfo 對外快照中的玩家（絕不含連線 ID）
type PlayerInfo struct {
	Username string    `json:"username"`
	Role     game.Role `json:"role"`
}

// SpectatorInfo 對外快照中的觀戰者
type SpectatorInfo struct {
	Username string `json:"username"`
}

// RoomInfo 房間列表用的摘要快照
type RoomInfo struct {
	RoomID         string          `json:"roomId"`
	RoomName       string          `json:"roomName"`
	PlayerCount    int             `json:"playerCount"`
	SpectatorCount int             `json:"spectatorCount"`
	GameStatus     Status          `json:"gameStatus"`
	GameType       game.Type       `json:"gameType"`
	Players        []PlayerInfo    `json:"players"`
	Spectators     []SpectatorInfo `json:"spectators"`
}

// Info 產生房間摘要
func (r *Room) Info() RoomInfo {
	return RoomInfo{
		RoomID:         r.ID,
		RoomName:       r.Name,
		PlayerCount:    len(r.Players),
		SpectatorCount: len(r.Spectators),
		GameStatus:     r.Status,
		GameType:       r.GameType,
		Players:        r.playerInfos(),
		Spectators:     r.spectatorInfos(),
	}
}

// GameState 廣播用的完整遊戲狀態
type GameState struct {
	game.Snapshot
	GameStatus Status       `json:"gameStatus"`
	Winner     game.Outcome `json:"winner,omitempty"`
	GameType   game.Type    `json:"gameType"`
	Players    []PlayerInfo `json:"players"`
}

// State 產生變更後的遊戲狀態快照
func (r *Room) State() GameState {
	return GameState{
		Snapshot:   r.engine.Snapshot(),
		GameStatus: r.Status,
		Winner:     r.Winner,
		GameType:   r.GameType,
		Players:    r.playerInfos(),
	}
}

func (r *Room) playerInfos() []PlayerInfo {
	infos := make([]PlayerInfo, 0, len(r.Players))
	for _, p := range r.Players {
		infos = append(infos, PlayerInfo{Username: p.Username, Role: p.Role})
	}
	return infos
}

func (r *Room) spectatorInfos() []SpectatorInfo {
	infos := make([]SpectatorInfo, 0, len(r.Spectators))
	for _, s := range r.Spectators {
		infos = append(infos, SpectatorInfo{Username: s.Username})
	}
	return infos
}
