package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/koopa0/minigames-hub/internal/auth"
	"github.com/koopa0/minigames-hub/internal/config"
	"github.com/koopa0/minigames-hub/internal/hub"
	"github.com/koopa0/minigames-hub/internal/session"
	"github.com/koopa0/minigames-hub/internal/stats"
	"github.com/koopa0/minigames-hub/internal/stats/migrations"
)

func main() {
	// 解析命令行參數
	configPath := flag.String("config", "config.yaml", "配置檔路徑")
	flag.Parse()

	// 載入配置（檔案不存在時用默認配置）
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg = config.Default()
		} else {
			fmt.Fprintf(os.Stderr, "載入配置失敗: %v\n", err)
			os.Exit(1)
		}
	}

	// 設置日誌
	logger := setupLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	ctx := context.Background()

	// 選擇統計存儲：配置了 PostgreSQL 就持久化，否則落在進程記憶體
	store, cleanup, err := setupStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("初始化統計存儲失敗", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// 組裝：Hub 是 Registry 的 Sender，Registry 是 Hub 的事件處理器
	verifier := auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	wsHub := hub.New(verifier, logger)
	registry := session.NewRegistry(session.Config{
		HideDelay:     cfg.Game.HideDelay,
		EvictionDelay: cfg.Game.EvictionDelay,
	}, wsHub, store, logger)
	wsHub.SetRegistry(registry)

	handler := hub.NewHandler(wsHub, registry, verifier, store, logger)

	// 創建 HTTP 服務器
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// 啟動服務器
	go func() {
		logger.Info("小遊戲中心服務器啟動",
			"port", cfg.Server.Port,
			"log_level", cfg.Log.Level,
			"log_format", cfg.Log.Format)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("服務器啟動失敗", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中斷信號
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("收到關閉信號，開始優雅關閉...")

	// 優雅關閉
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 停止接受新連接
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("服務器關閉失敗", "error", err)
	}

	// 停止 WebSocket Hub
	wsHub.Stop()

	logger.Info("服務器已關閉")
}

// setupStore 依配置組裝統計存儲鏈：
// PostgreSQL（先跑遷移）→ 可選的 Redis 排行榜快取 → 都沒配就用記憶體。
func setupStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (stats.Store, func(), error) {
	dsn := cfg.PostgresDSN()
	if dsn == "" {
		logger.Info("未配置 PostgreSQL，統計使用進程記憶體")
		return stats.NewMemory(), func() {}, nil
	}

	// 先執行資料庫遷移
	migrator, err := migrations.New(dsn, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("建立遷移管理器失敗: %w", err)
	}
	if err := migrator.Up(); err != nil {
		migrator.Close()
		return nil, nil, err
	}
	if err := migrator.Close(); err != nil {
		logger.Warn("關閉遷移管理器失敗", "error", err)
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("解析連線字串失敗: %w", err)
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("連接 PostgreSQL 失敗: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("PostgreSQL 連線檢查失敗: %w", err)
	}

	var store stats.Store = stats.NewPostgres(pool, logger)
	cleanup := func() { pool.Close() }

	// 配置了 Redis 就在前面掛排行榜快取
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("連接 Redis 失敗: %w", err)
		}

		store = stats.NewRedisCache(redisClient, store, 0, logger)
		cleanup = func() {
			redisClient.Close()
			pool.Close()
		}
		logger.Info("排行榜快取已啟用", "addr", cfg.Redis.Addr)
	}

	return store, cleanup, nil
}

// setupLogger 設置日誌
func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: level == "debug", // debug 模式顯示源碼位置
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
