package game

import "errors"

// 驗證錯誤直接以玩家可讀的訊息回傳，上層原樣發給發起操作的連線
var (
	ErrNotInProgress = errors.New("Game is not in progress")
	ErrCellOccupied  = errors.New("Cell already occupied")
	ErrInvalidMove   = errors.New("Invalid move")
	ErrNotYourTurn   = errors.New("Not your turn")
)

const tttWinTarget = 3

// 8 條固定勝利線：三橫、三直、兩斜
var winPatterns = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// TicTacToe 井字棋引擎。
//
// 回合制設計：
//   - 一個回合 = 一盤 3×3 棋；回合勝者積 1 分，先到 3 分者贏整局
//   - 公平性：每個回合的先手輪替（lastStarter 在分出勝負的回合後翻面，
//     平手回合保留原先手）
type TicTacToe struct {
	board       [9]string
	current     Role
	lastStarter Role
	scores      map[Role]int
}

// NewTicTacToe 建立井字棋引擎
func NewTicTacToe() *TicTacToe {
	t := &TicTacToe{}
	t.Start()
	return t
}

func (t *TicTacToe) Type() Type { return TypeTicTacToe }

// Start 開新的一局：清空棋盤與計分，X 先手
func (t *TicTacToe) Start() {
	t.board = [9]string{}
	t.current = RoleX
	t.lastStarter = RoleX
	t.scores = newScores()
}

// Rematch 重賽：整局重置，先手翻面
func (t *TicTacToe) Rematch() {
	starter := t.lastStarter.Opponent()
	t.board = [9]string{}
	t.scores = newScores()
	t.lastStarter = starter
	t.current = starter
}

func (t *TicTacToe) FirstTurn() Role { return t.current }

// Apply 套用一步落子。
// 合法性：格子在範圍內且為空、輪到該座位。成員/狀態檢查由 Room 負責。
func (t *TicTacToe) Apply(actor Role, in Input) (Result, error) {
	if in.Cell < 0 || in.Cell >= len(t.board) {
		return Result{}, ErrInvalidMove
	}
	if t.board[in.Cell] != "" {
		return Result{}, ErrCellOccupied
	}
	if actor != t.current {
		return Result{}, ErrNotYourTurn
	}

	t.board[in.Cell] = string(actor)

	if winner, ok := t.checkWin(); ok {
		t.scores[winner]++
		res := Result{
			RoundOver:   true,
			RoundWinner: Outcome(winner),
			Scores:      copyScores(t.scores),
		}
		if t.scores[winner] >= tttWinTarget {
			res.GameOver = true
			res.GameWinner = Outcome(winner)
			return res, nil
		}
		// 回合結束但整局未完：清盤，先手輪替
		t.board = [9]string{}
		t.current = t.lastStarter.Opponent()
		t.lastStarter = t.current
		return res, nil
	}

	if t.full() {
		// 平手：清盤，保留原先手（最後落子的一方即本回合先手）
		t.board = [9]string{}
		return Result{
			RoundOver:   true,
			RoundWinner: OutcomeDraw,
			Scores:      copyScores(t.scores),
		}, nil
	}

	t.current = t.current.Opponent()
	return Result{Scores: copyScores(t.scores)}, nil
}

func (t *TicTacToe) checkWin() (Role, bool) {
	for _, p := range winPatterns {
		if t.board[p[0]] != "" && t.board[p[0]] == t.board[p[1]] && t.board[p[1]] == t.board[p[2]] {
			return Role(t.board[p[0]]), true
		}
	}
	return "", false
}

func (t *TicTacToe) full() bool {
	for _, cell := range t.board {
		if cell == "" {
			return false
		}
	}
	return true
}

func (t *TicTacToe) Snapshot() Snapshot {
	board := make([]string, len(t.board))
	copy(board, t.board[:])
	return Snapshot{
		Board:         board,
		CurrentPlayer: t.current,
		TTTScores:     copyScores(t.scores),
	}
}
