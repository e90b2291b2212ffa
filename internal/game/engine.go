// Package game 實現三種小遊戲的規則引擎。
//
// 系統設計問題：
//   同一個房間要能承載不同的遊戲（井字棋、猜拳、翻牌配對），
//   如何在不把狀態攪成一鍋粥的前提下切換規則？
//
// 設計方案：
//   ✅ 策略模式 - 每種遊戲一個獨立引擎，房間只依賴 Engine 接口
//   ✅ 標籤聯合 - 廣播快照依 Type 帶不同的欄位，而非一包可選欄位
//   ✅ 回合 vs 整局 - 引擎同時回報「回合結束」與「整局結束」，
//     由各自的先達標閾值（井字棋 3 勝、猜拳 5 勝）決定整局勝負
//
// 引擎只管規則：誰的回合、這步合不合法、誰贏了這回合/這局。
// 成員資格、房間狀態（waiting/in-progress/finished）由上層的 Room 把關。
package game

import "strings"

// Type 遊戲類型
type Type string

const (
	TypeTicTacToe         Type = "tic-tac-toe"
	TypeRockPaperScissors Type = "rock-paper-scissors"
	TypeMemoryMatch       Type = "memory-match"
)

// ParseType 正規化遊戲類型字串（小寫、底線轉連字號）。
// 未知類型回退為井字棋。
func ParseType(s string) Type {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	switch Type(normalized) {
	case TypeTicTacToe, TypeRockPaperScissors, TypeMemoryMatch:
		return Type(normalized)
	default:
		return TypeTicTacToe
	}
}

// Role 玩家座位，依加入順序指派：第一位 X、第二位 O。
type Role string

const (
	RoleX Role = "X"
	RoleO Role = "O"
)

// Opponent 回傳另一方的座位
func (r Role) Opponent() Role {
	if r == RoleX {
		return RoleO
	}
	return RoleX
}

// Outcome 一個回合或一整局的結果："X"、"O" 或 "draw"。
type Outcome string

const OutcomeDraw Outcome = "draw"

// Role 當結果是某一方獲勝時回傳該座位
func (o Outcome) Role() (Role, bool) {
	switch o {
	case Outcome(RoleX), Outcome(RoleO):
		return Role(o), true
	default:
		return "", false
	}
}

// Choice 猜拳的出拳
type Choice string

const (
	ChoiceRock     Choice = "rock"
	ChoicePaper    Choice = "paper"
	ChoiceScissors Choice = "scissors"
)

// Input 一步操作的輸入，依遊戲類型取用對應欄位
type Input struct {
	Cell   int    // 井字棋格子（0-8）
	Choice Choice // 猜拳出拳
	Card   int    // 翻牌配對的卡片編號
}

// Result 一步操作的結果。
//
// 通用欄位（所有引擎）：
//   - RoundOver / RoundWinner：這一回合是否分出勝負
//   - GameOver / GameWinner：整局是否結束（達到勝場閾值或翻完全部配對）
//   - Scores：各座位目前的回合勝場數
//
// 依遊戲類型附帶的欄位以 omitempty 序列化，未用到的保持零值。
type Result struct {
	RoundOver   bool         `json:"roundOver,omitempty"`
	RoundWinner Outcome      `json:"roundWinner,omitempty"`
	GameOver    bool         `json:"gameOver"`
	GameWinner  Outcome      `json:"gameWinner,omitempty"`
	Scores      map[Role]int `json:"scores,omitempty"`

	// 猜拳
	Waiting bool            `json:"waiting,omitempty"`
	Choices map[Role]Choice `json:"choices,omitempty"`
	Round   int             `json:"round,omitempty"`

	// 翻牌配對
	Flipped  bool  `json:"flip,omitempty"`
	Match    bool  `json:"match,omitempty"`
	Pending  []int `json:"pendingCards,omitempty"`
	NextTurn Role  `json:"turnRole,omitempty"`
}

// Snapshot 廣播用的遊戲狀態快照，依遊戲類型帶不同欄位
type Snapshot struct {
	Board         []string        `json:"board"`
	CurrentPlayer Role            `json:"currentPlayer"`
	TTTScores     map[Role]int    `json:"tttScores,omitempty"`
	RPSScores     map[Role]int    `json:"rpsScores,omitempty"`
	RPSRound      int             `json:"rpsRound,omitempty"`
	Memory        *MemorySnapshot `json:"memoryState,omitempty"`
}

// Engine 單一遊戲的規則引擎。
//
// Room 持有一個 Engine 並在成員/狀態驗證通過後委派：
//   - Start：第二位玩家到齊，開新的一局（清空計分、發牌）
//   - Rematch：雙方投票重賽後的整局重置（井字棋會翻轉先手）
//   - Apply：套用一步操作，原子地完成驗證與狀態變更
type Engine interface {
	Type() Type
	Start()
	Rematch()
	FirstTurn() Role
	Apply(actor Role, in Input) (Result, error)
	Snapshot() Snapshot
}

// New 依遊戲類型建立引擎
func New(t Type) Engine {
	switch t {
	case TypeRockPaperScissors:
		return NewRockPaperScissors()
	case TypeMemoryMatch:
		return NewMemoryMatch()
	default:
		return NewTicTacToe()
	}
}

func newScores() map[Role]int {
	return map[Role]int{RoleX: 0, RoleO: 0}
}

func copyScores(s map[Role]int) map[Role]int {
	return map[Role]int{RoleX: s[RoleX], RoleO: s[RoleO]}
}
