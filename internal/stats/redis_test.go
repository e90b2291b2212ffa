package stats_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/minigames-hub/internal/stats"
)

// recordingStore 記錄後端實際收到的 limit，回傳指定筆數的假資料
type recordingStore struct {
	requestedLimits []int
}

func (s *recordingStore) RecordGameResult(ctx context.Context, winner string, players [2]stats.Participant, gameType string) error {
	return nil
}

func (s *recordingStore) TopPlayers(ctx context.Context, limit int) ([]stats.PlayerStats, error) {
	s.requestedLimits = append(s.requestedLimits, limit)
	n := limit
	if n > 150 {
		n = 150
	}
	players := make([]stats.PlayerStats, n)
	for i := range players {
		players[i] = stats.PlayerStats{Username: fmt.Sprintf("player%03d", i), Badges: []string{}}
	}
	return players, nil
}

// unreachableRedis 指向沒人監聽的位址：所有快取操作立即失敗，
// 走的是降級路徑（直接打後端）。
func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

// TestRedisCache_TopPlayersBackendQueryUsesCacheSize
// 小 limit 的查詢不能讓後續大 limit 的查詢拿到被截斷的結果：
// 快取覆蓋範圍內的查詢一律以固定上限打後端，再切片給呼叫方。
func TestRedisCache_TopPlayersBackendQueryUsesCacheSize(t *testing.T) {
	backend := &recordingStore{}
	cache := stats.NewRedisCache(unreachableRedis(), backend, 0, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	small, err := cache.TopPlayers(ctx, 20)
	require.NoError(t, err)
	assert.Len(t, small, 20)

	large, err := cache.TopPlayers(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, large, 100, "larger query must not be clipped by a smaller earlier one")

	// 兩次都以快取上限打後端，而不是呼叫方的 limit
	assert.Equal(t, []int{100, 100}, backend.requestedLimits)
}

// TestRedisCache_TopPlayersBeyondCacheSize 超過快取上限的查詢直接透傳
func TestRedisCache_TopPlayersBeyondCacheSize(t *testing.T) {
	backend := &recordingStore{}
	cache := stats.NewRedisCache(unreachableRedis(), backend, 0, slog.New(slog.DiscardHandler))

	players, err := cache.TopPlayers(context.Background(), 120)
	require.NoError(t, err)
	assert.Len(t, players, 120)
	assert.Equal(t, []int{120}, backend.requestedLimits)
}
