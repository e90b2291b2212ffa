package stats

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres 以 PostgreSQL 持久化統計。
//
// 資料模型：
//   - 一位玩家一列（username 小寫正規化為主鍵）
//   - 總勝敗 + 各遊戲類型的分項欄位
//   - 徽章存 text[]，每次寫入後在交易內全量重算
//
// 寫入走單一交易：upsert 兩位玩家的計數、讀回累計值、重算徽章。
// 兩位玩家的更新要嘛都落地要嘛都不落地，不會出現只記了一半的對局。
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres 建立 PostgreSQL 統計存儲
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	return &Postgres{pool: pool, logger: logger}
}

// 各遊戲類型對應的分項欄位前綴
func gameColumnPrefix(gameType string) (string, error) {
	switch gameType {
	case "tic-tac-toe":
		return "ttt", nil
	case "rock-paper-scissors":
		return "rps", nil
	case "memory-match":
		return "memory", nil
	default:
		return "", fmt.Errorf("unknown game type: %s", gameType)
	}
}

// RecordGameResult 寫入一場終局
func (p *Postgres) RecordGameResult(ctx context.Context, winner string, players [2]Participant, gameType string) error {
	prefix, err := gameColumnPrefix(gameType)
	if err != nil {
		return err
	}

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("開始交易失敗: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, player := range players {
		if player.Username == "" {
			return fmt.Errorf("participant has no username")
		}

		var wins, losses, draws int
		switch {
		case winner == WinnerDraw:
			draws = 1
		case winner == player.Role:
			wins = 1
		default:
			losses = 1
		}

		if err := p.upsert(ctx, tx, strings.ToLower(player.Username), prefix, wins, losses, draws); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("提交交易失敗: %w", err)
	}
	return nil
}

// upsert 累加一位玩家的計數並重算徽章
func (p *Postgres) upsert(ctx context.Context, tx pgx.Tx, username, prefix string, wins, losses, draws int) error {
	// 欄位名來自固定的白名單前綴，不會注入
	query := fmt.Sprintf(`
		INSERT INTO game_stats (username, wins, losses, draws, %[1]s_wins, %[1]s_losses, %[1]s_draws)
		VALUES ($1, $2, $3, $4, $2, $3, $4)
		ON CONFLICT (username) DO UPDATE SET
			wins = game_stats.wins + $2,
			losses = game_stats.losses + $3,
			draws = game_stats.draws + $4,
			%[1]s_wins = game_stats.%[1]s_wins + $2,
			%[1]s_losses = game_stats.%[1]s_losses + $3,
			%[1]s_draws = game_stats.%[1]s_draws + $4,
			updated_at = NOW()
		RETURNING wins, losses, draws,
			ttt_wins, ttt_losses, ttt_draws,
			rps_wins, rps_losses, rps_draws,
			memory_wins, memory_losses, memory_draws`, prefix)

	rec := record{Username: username, PerGame: map[string]*tally{
		"tic-tac-toe":         {},
		"rock-paper-scissors": {},
		"memory-match":        {},
	}}
	ttt := rec.PerGame["tic-tac-toe"]
	rps := rec.PerGame["rock-paper-scissors"]
	mem := rec.PerGame["memory-match"]

	err := tx.QueryRow(ctx, query, username, wins, losses, draws).Scan(
		&rec.Wins, &rec.Losses, &rec.Draws,
		&ttt.Wins, &ttt.Losses, &ttt.Draws,
		&rps.Wins, &rps.Losses, &rps.Draws,
		&mem.Wins, &mem.Losses, &mem.Draws,
	)
	if err != nil {
		return fmt.Errorf("寫入玩家統計失敗 (%s): %w", username, err)
	}

	badges := computeBadges(&rec)
	if _, err := tx.Exec(ctx,
		`UPDATE game_stats SET badges = $2 WHERE username = $1`,
		username, badges); err != nil {
		return fmt.Errorf("更新徽章失敗 (%s): %w", username, err)
	}
	return nil
}

// TopPlayers 排行榜：勝場 → 勝率 → 總場次 → 名稱
func (p *Postgres) TopPlayers(ctx context.Context, limit int) ([]PlayerStats, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT username, wins, losses, draws,
			wins + losses + draws AS total_games,
			CASE WHEN wins + losses + draws = 0 THEN 0
				ELSE wins::float8 / (wins + losses + draws) * 100
			END AS win_rate,
			badges
		FROM game_stats
		ORDER BY wins DESC, win_rate DESC, total_games DESC, username ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("查詢排行榜失敗: %w", err)
	}
	defer rows.Close()

	result := make([]PlayerStats, 0, limit)
	for rows.Next() {
		var ps PlayerStats
		if err := rows.Scan(&ps.Username, &ps.Wins, &ps.Losses, &ps.Draws,
			&ps.TotalGames, &ps.WinRate, &ps.Badges); err != nil {
			return nil, fmt.Errorf("讀取排行榜列失敗: %w", err)
		}
		if ps.Badges == nil {
			ps.Badges = []string{}
		}
		result = append(result, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("排行榜查詢中斷: %w", err)
	}
	return result, nil
}
