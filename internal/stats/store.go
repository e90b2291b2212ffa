// Package stats 實現持久化閘道：終局結果寫入每位玩家的勝敗統計、
// 重算徽章，並提供排行榜查詢。
//
// 對核心而言這一層是 fire-and-forget：寫入失敗記日誌、不重試、
// 絕不阻塞或回滾記憶體中的遊戲狀態。冪等性由呼叫方負責
// （每場結束的遊戲只呼叫一次）。
package stats

import "context"

// 終局結果的勝方標記："X"、"O" 或 "draw"
const (
	WinnerX    = "X"
	WinnerO    = "O"
	WinnerDraw = "draw"
)

// Participant 終局時的一位參與者
type Participant struct {
	Username string
	Role     string // "X" 或 "O"
}

// PlayerStats 排行榜上的一列
type PlayerStats struct {
	Username   string   `json:"username"`
	Wins       int      `json:"wins"`
	Losses     int      `json:"losses"`
	Draws      int      `json:"draws"`
	TotalGames int      `json:"totalGames"`
	WinRate    float64  `json:"winRate"`
	Badges     []string `json:"badges"`
}

// Store 統計存儲。
//
// RecordGameResult 依勝方座位把 players 兩位的勝/敗/和各加一
// （draw 時雙方都記和局），同時累計該遊戲類型的分項統計並重算徽章。
// TopPlayers 依勝場、勝率、總場次排序取前 limit 名。
type Store interface {
	RecordGameResult(ctx context.Context, winner string, players [2]Participant, gameType string) error
	TopPlayers(ctx context.Context, limit int) ([]PlayerStats, error)
}

// record 單一玩家的累計資料（記憶體實現與徽章計算共用）
type record struct {
	Username string
	Wins     int
	Losses   int
	Draws    int
	PerGame  map[string]*tally // gameType -> 分項統計
	Badges   []string
}

type tally struct {
	Wins   int
	Losses int
	Draws  int
}

func (r *record) total() int {
	return r.Wins + r.Losses + r.Draws
}

func (r *record) winRate() float64 {
	total := r.total()
	if total == 0 {
		return 0
	}
	return float64(r.Wins) / float64(total) * 100
}
