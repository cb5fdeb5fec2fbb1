package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/okamyuji/skin-tone-analyzer/internal/interfaces"
)

// リクエストIDのヘッダー名
const RequestIDHeader = "X-Request-ID"

type contextKey string

const (
	requestIDKey contextKey = "request-id"
	loggerKey    contextKey = "logger"
)

// 処理中リクエスト数を追跡できるメトリクス
type activeTracker interface {
	TrackActive(delta float64)
}

// リクエストIDを付与
// クライアントが送ったIDが正しいUUIDならそれを引き継ぐ
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// コンテキストからリクエストIDを取得
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// コンテキストからリクエスト単位のロガーを取得
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// アクセスログとリクエストメトリクス
type AccessLog struct {
	logger  *slog.Logger
	metrics interfaces.MetricsRecorder
}

// 新しいAccessLogを作成
func NewAccessLog(logger *slog.Logger, metrics interfaces.MetricsRecorder) *AccessLog {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = interfaces.NopMetrics{}
	}
	return &AccessLog{logger: logger, metrics: metrics}
}

// ミドルウェア
func (a *AccessLog) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqLogger := a.logger.With("request_id", RequestIDFromContext(r.Context()))
		ctx := context.WithValue(r.Context(), loggerKey, reqLogger)

		if t, ok := a.metrics.(activeTracker); ok {
			t.TrackActive(1)
			defer t.TrackActive(-1)
		}

		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)

		a.metrics.ObserveRequest(r.Context(), r.Method, routePattern(r), duration, status)

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		reqLogger.Log(r.Context(), level, "リクエスト処理完了",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", duration.Milliseconds(),
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)
	})
}

// メトリクスのラベル用にルートパターンを返す
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
