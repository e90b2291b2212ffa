package session

import (
	"github.com/koopa0/minigames-hub/internal/game"
)

// Event 服務端推給客戶端的事件封包
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// 服務端 → 客戶端的事件名稱。名稱即協議，改動等同破壞相容性。
const (
	EventRoomsList          = "roomsList"
	EventLobbyUpdate        = "lobbyUpdate"
	EventLobbyMessages      = "lobbyMessages"
	EventLobbyMessage       = "lobbyMessage"
	EventRoomMessage        = "roomMessage"
	EventRoomCreated        = "roomCreated"
	EventPlayersRole        = "playersRole"
	EventJoinedAsSpectator  = "joinedAsSpectator"
	EventJoinResult         = "joinResult"
	EventStartGame          = "startGame"
	EventGameStateUpdate    = "gameStateUpdate"
	EventTTTRoundResult     = "tttRoundResult"
	EventRPSStatus          = "rpsStatus"
	EventRPSResult          = "rpsResult"
	EventMemoryResult       = "memoryResult"
	EventRestartGame        = "restartGame"
	EventMoveError          = "moveError"
	EventPlayerDisconnected = "playerDisconnected"
	EventGameFinished       = "gameFinished"
	EventGameInvitation     = "gameInvitation"
	EventInvitationAccepted = "invitationAccepted"
	EventInvitationDeclined = "invitationDeclined"
	EventInvitationError    = "invitationError"
	EventScoreboardData     = "scoreboardData"
)

// ChatMessage 大廳或房間聊天訊息
type ChatMessage struct {
	RoomID    string `json:"roomId,omitempty"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// LobbyState 大廳快照：未結束的房間列表 + 在線使用者
type LobbyState struct {
	Rooms []RoomInfo `json:"rooms"`
	Users []string   `json:"users"`
}

// RoomCreatedData 房間建立完成，發給建立者
type RoomCreatedData struct {
	RoomID   string     `json:"roomId"`
	RoomName string     `json:"roomName"`
	Player   PlayerInfo `json:"player"`
	GameType game.Type  `json:"gameType"`
}

// PlayersRoleData 座位指派，發給剛入座的玩家
type PlayersRoleData struct {
	Role     game.Role    `json:"role"`
	RoomName string       `json:"roomName"`
	Players  []PlayerInfo `json:"players"`
	GameType game.Type    `json:"gameType"`
}

// JoinedAsSpectatorData 以觀戰者身份入場
type JoinedAsSpectatorData struct {
	Room     RoomInfo  `json:"room"`
	GameType game.Type `json:"gameType"`
}

// JoinResultData 加入請求的 ack：Error 為空字串表示成功
type JoinResultData struct {
	RoomID string `json:"roomId"`
	Error  string `json:"error,omitempty"`
}

// StartGameData 開局廣播
type StartGameData struct {
	FirstTurn game.Role    `json:"firstTurn"`
	Players   []PlayerInfo `json:"players"`
	GameType  game.Type    `json:"gameType"`
}

// TTTRoundResultData 井字棋回合結束但整局未完
type TTTRoundResultData struct {
	RoundWinner game.Outcome      `json:"roundWinner"`
	Scores      map[game.Role]int `json:"scores"`
}

// RPSResultData 猜拳回合結算廣播
type RPSResultData struct {
	Choices        map[game.Role]game.Choice `json:"choices"`
	WinnerRole     game.Outcome              `json:"winnerRole"`
	WinnerUsername string                    `json:"winnerUsername,omitempty"`
	Round          int                       `json:"round"`
	Scores         map[game.Role]int         `json:"scores"`
	GameOver       bool                      `json:"gameOver"`
	GameWinner     string                    `json:"gameWinner,omitempty"`
}

// MemoryResultData 翻牌結果廣播
type MemoryResultData struct {
	RoomID string      `json:"roomId"`
	Result game.Result `json:"result"`
}

// RestartGameData 重賽成立廣播
type RestartGameData struct {
	FirstTurn game.Role    `json:"firstTurn"`
	Players   []PlayerInfo `json:"players"`
	GameType  game.Type    `json:"gameType"`
}

// PlayerDisconnectedData 對手離開/斷線導致的強制結束
type PlayerDisconnectedData struct {
	Username   string `json:"username"`
	Winner     string `json:"winner"`
	Reason     string `json:"reason"`
	ForceLeave bool   `json:"forceLeave"`
}

// GameFinishedData 終局後的延遲清場通知
type GameFinishedData struct {
	RoomID     string `json:"roomId"`
	Winner     string `json:"winner"`
	Reason     string `json:"reason"`
	ForceLeave bool   `json:"forceLeave"`
}

// InvitationData 對戰邀請
type InvitationData struct {
	From     string    `json:"from"`
	GameType game.Type `json:"gameType"`
}

// InvitationAcceptedData 邀請被接受，發給接受方
type InvitationAcceptedData struct {
	RoomID   string    `json:"roomId"`
	RoomName string    `json:"roomName"`
	GameType game.Type `json:"gameType"`
}

// InvitationDeclinedData 邀請被拒絕，發給原發送方
type InvitationDeclinedData struct {
	To string `json:"to"`
}
