package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/koopa0/minigames-hub/internal/auth"
	"github.com/koopa0/minigames-hub/internal/session"
	"github.com/koopa0/minigames-hub/internal/stats"
)

// Handler HTTP 請求處理器。
// 實時流量走 WebSocket；這裡只有入口（登入換 token、升級連接）
// 與旁路查詢（排行榜、健康檢查、運行統計）。
type Handler struct {
	hub      *Hub
	registry *session.Registry
	verifier *auth.Verifier
	store    stats.Store
	logger   *slog.Logger
}

// NewHandler 創建 HTTP 處理器
func NewHandler(hub *Hub, registry *session.Registry, verifier *auth.Verifier, store stats.Store, logger *slog.Logger) *Handler {
	return &Handler{
		hub:      hub,
		registry: registry,
		verifier: verifier,
		store:    store,
		logger:   logger,
	}
}

// Routes 設定路由
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// 中間件鏈
	wrap := func(handler http.HandlerFunc) http.HandlerFunc {
		return h.recoverer(h.loggerMiddleware(handler))
	}

	// WebSocket 升級不包日誌中間件：連接劫持後狀態碼沒有意義
	mux.HandleFunc("GET /ws", h.recoverer(h.hub.ServeWS))

	mux.HandleFunc("POST /api/v1/auth/login", wrap(h.login))
	mux.HandleFunc("GET /api/v1/scoreboard", wrap(h.requireAuth(h.scoreboard)))

	// 健康檢查
	mux.HandleFunc("GET /health", wrap(h.health))
	mux.HandleFunc("GET /stats", wrap(h.stats))

	return mux
}

type loginRequest struct {
	Username string `json:"username"`
}

// login 以使用者名換連接 token。
// 沒有帳號系統：名稱即身份，這裡只做基本的格式把關。
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, "無效的請求格式", http.StatusBadRequest)
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		h.errorResponse(w, "使用者名稱不能為空", http.StatusBadRequest)
		return
	}
	if len(username) > 32 {
		h.errorResponse(w, "使用者名稱過長", http.StatusBadRequest)
		return
	}

	token, err := h.verifier.Generate(username)
	if err != nil {
		h.errorResponse(w, "簽發 token 失敗", http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, map[string]any{
		"token":    token,
		"username": username,
	}, http.StatusOK)
}

// scoreboard 排行榜查詢
func (h *Handler) scoreboard(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 && val <= 100 {
			limit = val
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	top, err := h.store.TopPlayers(ctx, limit)
	if err != nil {
		h.logger.Error("查詢排行榜失敗", "error", err)
		h.errorResponse(w, "查詢排行榜失敗", http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, map[string]any{
		"players": top,
	}, http.StatusOK)
}

// health 健康檢查
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, map[string]any{
		"status": "healthy",
		"time":   time.Now().Unix(),
	}, http.StatusOK)
}

// stats 運行統計
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	data := h.registry.Stats()
	data["connections"] = h.hub.ConnectionCount()
	h.jsonResponse(w, data, http.StatusOK)
}

// requireAuth Bearer token 驗證中間件
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			h.errorResponse(w, "缺少認證", http.StatusUnauthorized)
			return
		}
		if _, err := h.verifier.Verify(tokenString); err != nil {
			h.errorResponse(w, "認證失敗", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// jsonResponse 返回 JSON 響應
func (h *Handler) jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("編碼 JSON 失敗", "error", err)
	}
}

// errorResponse 返回錯誤響應
func (h *Handler) errorResponse(w http.ResponseWriter, message string, status int) {
	h.jsonResponse(w, map[string]any{
		"error": message,
	}, status)
}

// loggerMiddleware 日誌中間件
func (h *Handler) loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// 包裝 ResponseWriter 以獲取狀態碼
		ww := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next(ww, r)

		h.logger.Info("HTTP 請求",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.statusCode,
			"duration", time.Since(start))
	}
}

// recoverer panic 恢復中間件
func (h *Handler) recoverer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.logger.Error("處理請求時發生 panic",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path)

				h.errorResponse(w, "內部伺服器錯誤", http.StatusInternalServerError)
			}
		}()

		next(w, r)
	}
}

// responseWriter 包裝 ResponseWriter 以獲取狀態碼
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
