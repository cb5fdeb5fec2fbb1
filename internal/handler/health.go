package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/okamyuji/skin-tone-analyzer/internal/analyzer"
	"github.com/okamyuji/skin-tone-analyzer/internal/interfaces"
	"github.com/okamyuji/skin-tone-analyzer/internal/response"
	"github.com/okamyuji/skin-tone-analyzer/internal/worker"
)

// 検出器の状態を返す
type StatusProvider interface {
	GetStatus() analyzer.Status
}

// ヘルスチェックのレスポンス
type HealthResponse struct {
	Status   string          `json:"status"`
	Uptime   string          `json:"uptime"`
	Detector analyzer.Status `json:"detector"`
	Workers  *worker.Stats   `json:"workers,omitempty"`
}

// ヘルスチェックエンドポイントのハンドラー
type HealthHandler struct {
	detector StatusProvider
	pool     interfaces.WorkerPool
	started  time.Time
	logger   *slog.Logger
}

// 新しいHealthHandlerを作成します
func NewHealthHandler(detector StatusProvider, pool interfaces.WorkerPool, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		detector: detector,
		pool:     pool,
		started:  time.Now(),
		logger:   logger,
	}
}

// ヘルスチェックリクエストを処理します
// 検出器が解放済みなら503を返す
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Uptime: time.Since(h.started).Truncate(time.Second).String(),
	}

	if h.detector != nil {
		resp.Detector = h.detector.GetStatus()
	}
	if h.pool != nil {
		stats := h.pool.GetStats()
		resp.Workers = &stats
	}

	status := http.StatusOK
	if h.detector == nil || resp.Detector.IsClosed {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
		h.logger.Warn("ヘルスチェック失敗", "detector", resp.Detector)
	}

	response.JSON(w, status, resp)
}

// サービス情報
type InfoResponse struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Env       string   `json:"env"`
	Detector  string   `json:"detector"`
	Endpoints []string `json:"endpoints"`
}

// GET / のハンドラ
func InfoHandler(info InfoResponse) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, info)
	}
}
