package stats

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory 記憶體統計存儲。
// 測試與未配置 Postgres 時的運行模式使用；進程重啟即歸零。
type Memory struct {
	mu      sync.RWMutex
	records map[string]*record
}

// NewMemory 建立記憶體存儲
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*record)}
}

// RecordGameResult 寫入一場終局結果並重算雙方徽章
func (m *Memory) RecordGameResult(ctx context.Context, winner string, players [2]Participant, gameType string) error {
	if players[0].Username == "" || players[1].Username == "" {
		return fmt.Errorf("incomplete participants")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range players {
		rec := m.ensure(p.Username)
		t := rec.ensureGame(gameType)
		switch {
		case winner == WinnerDraw:
			rec.Draws++
			t.Draws++
		case p.Role == winner:
			rec.Wins++
			t.Wins++
		default:
			rec.Losses++
			t.Losses++
		}
		rec.Badges = computeBadges(rec)
	}
	return nil
}

// TopPlayers 依勝場、勝率、總場次排序取前 limit 名
func (m *Memory) TopPlayers(ctx context.Context, limit int) ([]PlayerStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]PlayerStats, 0, len(m.records))
	for _, rec := range m.records {
		all = append(all, PlayerStats{
			Username:   rec.Username,
			Wins:       rec.Wins,
			Losses:     rec.Losses,
			Draws:      rec.Draws,
			TotalGames: rec.total(),
			WinRate:    rec.winRate(),
			Badges:     append([]string(nil), rec.Badges...),
		})
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Wins != all[j].Wins {
			return all[i].Wins > all[j].Wins
		}
		if all[i].WinRate != all[j].WinRate {
			return all[i].WinRate > all[j].WinRate
		}
		if all[i].TotalGames != all[j].TotalGames {
			return all[i].TotalGames > all[j].TotalGames
		}
		return all[i].Username < all[j].Username
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// PlayerStats 查詢單一玩家（測試用輔助）
func (m *Memory) PlayerStats(username string) (PlayerStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[strings.ToLower(username)]
	if !ok {
		return PlayerStats{}, false
	}
	return PlayerStats{
		Username:   rec.Username,
		Wins:       rec.Wins,
		Losses:     rec.Losses,
		Draws:      rec.Draws,
		TotalGames: rec.total(),
		WinRate:    rec.winRate(),
		Badges:     append([]string(nil), rec.Badges...),
	}, true
}

// ensure 以小寫使用者名為鍵，大小寫不同的同名玩家視為同一人
func (m *Memory) ensure(username string) *record {
	key := strings.ToLower(username)
	rec, ok := m.records[key]
	if !ok {
		rec = &record{Username: key, PerGame: make(map[string]*tally)}
		m.records[key] = rec
	}
	return rec
}

func (r *record) ensureGame(gameType string) *tally {
	t, ok := r.PerGame[gameType]
	if !ok {
		t = &tally{}
		r.PerGame[gameType] = t
	}
	return t
}
