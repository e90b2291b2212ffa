package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/minigames-hub/internal/game"
	"github.com/koopa0/minigames-hub/internal/session"
)

// TestNewRoom 測試建立房間
func TestNewRoom(t *testing.T) {
	tests := []struct {
		name     string
		roomID   string
		roomName string
		gameType game.Type
		validate func(t *testing.T, room *session.Room)
	}{
		{
			name:     "named tic-tac-toe room",
			roomID:   "123456",
			roomName: "測試房間",
			gameType: game.TypeTicTacToe,
			validate: func(t *testing.T, room *session.Room) {
				assert.Equal(t, "123456", room.ID)
				assert.Equal(t, "測試房間", room.Name)
				assert.Equal(t, game.TypeTicTacToe, room.GameType)
				assert.Equal(t, session.StatusWaiting, room.Status)
				assert.Empty(t, room.Players)
				assert.Empty(t, room.Spectators)
			},
		},
		{
			name:     "empty name falls back to room id",
			roomID:   "654321",
			roomName: "",
			gameType: game.TypeRockPaperScissors,
			validate: func(t *testing.T, room *session.Room) {
				assert.Equal(t, "Room 654321", room.Name)
				assert.Equal(t, game.TypeRockPaperScissors, room.GameType)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room := session.NewRoom(tt.roomID, tt.roomName, tt.gameType)
			require.NotNil(t, room)
			tt.validate(t, room)
		})
	}
}

// TestRoom_AddPlayer 座位指派與狀態轉移
func TestRoom_AddPlayer(t *testing.T) {
	room := session.NewRoom("100001", "", game.TypeTicTacToe)

	first, err := room.AddPlayer("conn-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, game.RoleX, first.Role)
	assert.Equal(t, session.StatusWaiting, room.Status)

	second, err := room.AddPlayer("conn-2", "bob")
	require.NoError(t, err)
	assert.Equal(t, game.RoleO, second.Role)
	assert.Equal(t, session.StatusInProgress, room.Status)

	// 第三位玩家被拒絕
	_, err = room.AddPlayer("conn-3", "carol")
	assert.ErrorIs(t, err, session.ErrRoomFull)
}

// TestRoom_AddSpectator 觀戰者不受人數與狀態限制
func TestRoom_AddSpectator(t *testing.T) {
	room := session.NewRoom("100002", "", game.TypeTicTacToe)
	_, err := room.AddPlayer("conn-1", "alice")
	require.NoError(t, err)
	_, err = room.AddPlayer("conn-2", "bob")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		spectator := room.AddSpectator("watcher-"+string(rune('a'+i)), "watcher")
		require.NotNil(t, spectator)
	}
	assert.Len(t, room.Spectators, 5)
	assert.True(t, room.IsMember("watcher-a"))
}

// TestRoom_MakeMove 落子的成員與座位驗證
func TestRoom_MakeMove(t *testing.T) {
	room := session.NewRoom("100003", "", game.TypeTicTacToe)
	_, err := room.AddPlayer("conn-x", "alice")
	require.NoError(t, err)

	// 只有一位玩家：遊戲還沒開始
	_, err = room.MakeMove("conn-x", game.RoleX, 0)
	assert.ErrorIs(t, err, game.ErrNotInProgress)

	_, err = room.AddPlayer("conn-o", "bob")
	require.NoError(t, err)

	// 座位與連線不符
	_, err = room.MakeMove("conn-x", game.RoleO, 0)
	assert.ErrorIs(t, err, game.ErrInvalidMove)

	// 非成員
	_, err = room.MakeMove("conn-ghost", game.RoleX, 0)
	assert.ErrorIs(t, err, game.ErrInvalidMove)

	// 正常落子
	res, err := room.MakeMove("conn-x", game.RoleX, 4)
	require.NoError(t, err)
	assert.False(t, res.GameOver)

	// 不是輪到 O 的格子衝突
	_, err = room.MakeMove("conn-o", game.RoleO, 4)
	assert.ErrorIs(t, err, game.ErrCellOccupied)
}

// TestRoom_FlipCardGuards 翻牌前的狀態把關
func TestRoom_FlipCardGuards(t *testing.T) {
	room := session.NewRoom("100004", "", game.TypeMemoryMatch)
	_, err := room.AddPlayer("conn-x", "alice")
	require.NoError(t, err)

	_, err = room.FlipCard("conn-ghost", 0)
	assert.ErrorIs(t, err, session.ErrNotInRoom)

	_, err = room.FlipCard("conn-x", 0)
	assert.EqualError(t, err, "Waiting for second player to start the game")

	_, err = room.AddPlayer("conn-o", "bob")
	require.NoError(t, err)

	res, err := room.FlipCard("conn-x", 0)
	require.NoError(t, err)
	assert.True(t, res.Flipped)
}

// TestRoom_WrongGameType 操作類型與房間遊戲不符
func TestRoom_WrongGameType(t *testing.T) {
	room := session.NewRoom("100005", "", game.TypeRockPaperScissors)
	_, err := room.AddPlayer("conn-x", "alice")
	require.NoError(t, err)
	_, err = room.AddPlayer("conn-o", "bob")
	require.NoError(t, err)

	_, err = room.MakeMove("conn-x", game.RoleX, 0)
	assert.EqualError(t, err, "Room is not running Tic Tac Toe")

	_, err = room.FlipCard("conn-x", 0)
	assert.EqualError(t, err, "Wrong game")
}

// TestRoom_FinishAndRestart 終局後的重賽投票
func TestRoom_FinishAndRestart(t *testing.T) {
	room := session.NewRoom("100006", "", game.TypeRockPaperScissors)
	_, err := room.AddPlayer("conn-x", "alice")
	require.NoError(t, err)
	_, err = room.AddPlayer("conn-o", "bob")
	require.NoError(t, err)

	// 終局前不能投重賽票
	_, err = room.RequestRestart("conn-x")
	assert.ErrorIs(t, err, session.ErrGameNotFinished)

	// X 連拿 5 回合
	for i := 0; i < 5; i++ {
		_, err = room.SubmitChoice("conn-x", game.ChoiceRock)
		require.NoError(t, err)
		_, err = room.SubmitChoice("conn-o", game.ChoiceScissors)
		require.NoError(t, err)
	}
	assert.Equal(t, session.StatusFinished, room.Status)
	assert.Equal(t, game.Outcome(game.RoleX), room.Winner)

	// 終局後再出拳是錯誤
	_, err = room.SubmitChoice("conn-x", game.ChoiceRock)
	assert.ErrorIs(t, err, game.ErrGameFinished)

	// 觀戰者不能投票
	room.AddSpectator("watcher-1", "watcher")
	_, err = room.RequestRestart("watcher-1")
	assert.ErrorIs(t, err, session.ErrNotInRoom)

	// 第一票不重開，第二票重開
	res, err := room.RequestRestart("conn-x")
	require.NoError(t, err)
	assert.False(t, res.Restarted)

	res, err = room.RequestRestart("conn-o")
	require.NoError(t, err)
	assert.True(t, res.Restarted)
	assert.Equal(t, session.StatusInProgress, room.Status)
	assert.Empty(t, room.Winner)

	snap := room.State()
	assert.Equal(t, 0, snap.RPSScores[game.RoleX])
}

// TestRoom_JoinStartClearsStaleVote 新玩家補位開局要作廢殘留的重賽投票，
// 否則留下的玩家那張舊票會讓下一局只需一票就重開
func TestRoom_JoinStartClearsStaleVote(t *testing.T) {
	room := session.NewRoom("100010", "", game.TypeRockPaperScissors)
	_, err := room.AddPlayer("conn-x", "alice")
	require.NoError(t, err)
	_, err = room.AddPlayer("conn-o", "bob")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = room.SubmitChoice("conn-x", game.ChoiceRock)
		require.NoError(t, err)
		_, err = room.SubmitChoice("conn-o", game.ChoiceScissors)
		require.NoError(t, err)
	}
	require.Equal(t, session.StatusFinished, room.Status)

	// alice 投了重賽票，bob 卻離開了
	res, err := room.RequestRestart("conn-x")
	require.NoError(t, err)
	require.False(t, res.Restarted)
	room.RemoveConnection("conn-o")

	// carol 補位，新局開始
	_, err = room.AddPlayer("conn-new", "carol")
	require.NoError(t, err)
	require.Equal(t, session.StatusInProgress, room.Status)

	for i := 0; i < 5; i++ {
		_, err = room.SubmitChoice("conn-x", game.ChoiceRock)
		require.NoError(t, err)
		_, err = room.SubmitChoice("conn-new", game.ChoiceScissors)
		require.NoError(t, err)
	}
	require.Equal(t, session.StatusFinished, room.Status)

	// carol 的第一票不能和 alice 上一局的舊票湊成兩票
	res, err = room.RequestRestart("conn-new")
	require.NoError(t, err)
	assert.False(t, res.Restarted)
}

// TestRoom_RemoveConnection 移除連線的身份判定與防衛重置
func TestRoom_RemoveConnection(t *testing.T) {
	room := session.NewRoom("100007", "", game.TypeTicTacToe)
	_, err := room.AddPlayer("conn-x", "alice")
	require.NoError(t, err)
	_, err = room.AddPlayer("conn-o", "bob")
	require.NoError(t, err)
	room.AddSpectator("watcher-1", "watcher")

	removal, removed := room.RemoveConnection("watcher-1")
	assert.True(t, removed)
	assert.Equal(t, session.RemovedSpectator, removal)

	removal, removed = room.RemoveConnection("conn-o")
	assert.True(t, removed)
	assert.Equal(t, session.RemovedPlayer, removal)
	// 防衛路徑：進行中掉到一人退回 waiting
	assert.Equal(t, session.StatusWaiting, room.Status)

	_, removed = room.RemoveConnection("conn-ghost")
	assert.False(t, removed)

	room.RemoveConnection("conn-x")
	assert.True(t, room.IsEmpty())
}

// TestRoom_Info 摘要快照不洩漏連線 ID
func TestRoom_Info(t *testing.T) {
	room := session.NewRoom("100008", "大廳展示", game.TypeMemoryMatch)
	_, err := room.AddPlayer("conn-x", "alice")
	require.NoError(t, err)
	room.AddSpectator("watcher-1", "watcher")

	info := room.Info()
	assert.Equal(t, "100008", info.RoomID)
	assert.Equal(t, "大廳展示", info.RoomName)
	assert.Equal(t, 1, info.PlayerCount)
	assert.Equal(t, 1, info.SpectatorCount)
	assert.Equal(t, session.StatusWaiting, info.GameStatus)
	require.Len(t, info.Players, 1)
	assert.Equal(t, "alice", info.Players[0].Username)
	assert.Equal(t, game.RoleX, info.Players[0].Role)
	require.Len(t, info.Spectators, 1)
	assert.Equal(t, "watcher", info.Spectators[0].Username)
}
