package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/redis/go-redis/v9"
)

// 排行榜快取鍵與默認 TTL。
// 排行榜讀多寫少且容忍短暫過時，TTL 配合寫入時的主動失效就足夠。
const (
	scoreboardKey        = "scoreboard:top"
	defaultScoreboardTTL = 30 * time.Second

	// 快取固定存前 100 名，讀取時再按 limit 切片。
	// 鍵不含 limit，不同 limit 的查詢共用同一份快取。
	scoreboardCacheSize = 100
)

// RedisCache 排行榜的旁路快取（Cache-Aside）。
//
//   - 讀取：先查 Redis，miss 才打後端，回填快取
//   - 寫入：透傳給後端，成功後刪掉快取鍵（下一次讀取重建）
//
// 快取故障一律降級為直接打後端：Redis 掛了排行榜只是變慢，不是變壞。
type RedisCache struct {
	client  *redis.Client
	backend Store
	ttl     time.Duration
	logger  *slog.Logger
}

// NewRedisCache 包裝後端存儲，ttl 為 0 時用默認值
func NewRedisCache(client *redis.Client, backend Store, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if ttl == 0 {
		ttl = defaultScoreboardTTL
	}
	return &RedisCache{client: client, backend: backend, ttl: ttl, logger: logger}
}

// RecordGameResult 透傳寫入，成功後主動失效排行榜快取
func (c *RedisCache) RecordGameResult(ctx context.Context, winner string, players [2]Participant, gameType string) error {
	if err := c.backend.RecordGameResult(ctx, winner, players, gameType); err != nil {
		return err
	}

	if err := c.client.Del(ctx, scoreboardKey).Err(); err != nil {
		// 失效失敗只記日誌：TTL 到期後快取自然修復
		c.logger.Warn("排行榜快取失效失敗", "error", err)
	}
	return nil
}

// TopPlayers 先查快取，miss 才打後端並回填。
// 快取一律存前 scoreboardCacheSize 名，避免小 limit 的查詢
// 污染快取後讓大 limit 的查詢拿到被截斷的結果。
func (c *RedisCache) TopPlayers(ctx context.Context, limit int) ([]PlayerStats, error) {
	// 超出快取覆蓋範圍的查詢直接打後端
	if limit > scoreboardCacheSize {
		return c.backend.TopPlayers(ctx, limit)
	}

	cached, err := c.client.Get(ctx, scoreboardKey).Result()
	if err == nil {
		var all []PlayerStats
		if jsonErr := json.Unmarshal([]byte(cached), &all); jsonErr == nil {
			return clipPlayers(all, limit), nil
		}
		// 快取內容壞了，當作 miss 重建
		c.logger.Warn("排行榜快取內容無法解析，重建")
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("讀取排行榜快取失敗，降級直接查詢", "error", err)
	}

	top, err := c.backend.TopPlayers(ctx, scoreboardCacheSize)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(top); err == nil {
		if err := c.client.Set(ctx, scoreboardKey, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("回填排行榜快取失敗", "error", err)
		}
	}
	return clipPlayers(top, limit), nil
}

func clipPlayers(players []PlayerStats, limit int) []PlayerStats {
	if len(players) > limit {
		return players[:limit]
	}
	return players
}

// Ping 檢查 Redis 連線
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis 連線檢查失敗: %w", err)
	}
	return nil
}
