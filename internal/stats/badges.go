package stats

// 徽章門檻。每次寫入統計後全量重算，而非增量累加：
// 規則改了只要重算就會收斂，不會留下發錯的徽章。
const (
	badgeFirstWin  = "first_win" // 第一場勝利
	badgeChampion  = "champion"  // 10 勝
	badgeLegend    = "legend"    // 25 勝
	badgeVeteran   = "veteran"   // 50 場
	specialistWins = 10          // 單一遊戲 10 勝 → 該遊戲的專精徽章
)

// 單一遊戲專精徽章，固定順序讓重算結果可重現
var specialistBadges = []struct {
	GameType string
	Badge    string
}{
	{"tic-tac-toe", "ttt_specialist"},
	{"rock-paper-scissors", "rps_specialist"},
	{"memory-match", "memory_specialist"},
}

// computeBadges 依目前統計重算一位玩家的全部徽章
func computeBadges(r *record) []string {
	badges := make([]string, 0, 4)
	if r.Wins >= 1 {
		badges = append(badges, badgeFirstWin)
	}
	if r.Wins >= 10 {
		badges = append(badges, badgeChampion)
	}
	if r.Wins >= 25 {
		badges = append(badges, badgeLegend)
	}
	if r.total() >= 50 {
		badges = append(badges, badgeVeteran)
	}
	for _, s := range specialistBadges {
		if t, ok := r.PerGame[s.GameType]; ok && t.Wins >= specialistWins {
			badges = append(badges, s.Badge)
		}
	}
	return badges
}
