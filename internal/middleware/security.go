package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/okamyuji/skin-tone-analyzer/config"
	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
	"github.com/okamyuji/skin-tone-analyzer/internal/response"
	"github.com/okamyuji/skin-tone-analyzer/pkg/validator"
)

// セキュリティミドルウェア
type SecurityMiddleware struct {
	config    *config.SecurityConfig
	limiter   *rate.Limiter
	validator *validator.RequestValidator
}

// 新しいセキュリティミドルウェアを作成
func NewSecurityMiddleware(cfg *config.SecurityConfig) *SecurityMiddleware {
	if cfg == nil {
		def := config.Default().Security
		cfg = &def
	}

	return &SecurityMiddleware{
		config:    cfg,
		limiter:   newLimiter(cfg.RateLimit),
		validator: validator.NewRequestValidator(cfg),
	}
}

// 1分あたりのリクエスト数からリミッターを作成
// 0以下なら無制限
func newLimiter(cfg config.RateLimitConfig) *rate.Limiter {
	if cfg.RequestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), burst)
}

// ミドルウェアチェーン
func (sm *SecurityMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. セキュリティヘッダー
		sm.setSecurityHeaders(w)

		// 2. CORS
		if err := sm.handleCORS(w, r); err != nil {
			response.Error(w, errors.InvalidInput(err.Error(), nil).WithCode(errors.ErrCodeForbidden), RequestIDFromContext(r.Context()))
			return
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// 3. レート制限
		if !sm.limiter.Allow() {
			w.Header().Set("Retry-After", "60")
			response.Error(w, errors.InvalidInput(errors.MsgRateLimitExceeded, nil).
				WithCode(errors.ErrCodeRateLimitExceeded), RequestIDFromContext(r.Context()))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// セキュリティヘッダーの設定
func (sm *SecurityMiddleware) setSecurityHeaders(w http.ResponseWriter) {
	headers := map[string]string{
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"Referrer-Policy":           "strict-origin-when-cross-origin",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
	}
	for header, value := range headers {
		w.Header().Set(header, value)
	}

	// 設定ファイルからのカスタムヘッダー
	for header, value := range sm.config.Headers {
		w.Header().Set(header, value)
	}
}

// CORS処理
func (sm *SecurityMiddleware) handleCORS(w http.ResponseWriter, r *http.Request) error {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return nil
	}

	if err := sm.validator.ValidateOrigin(origin); err != nil {
		return err
	}

	cors := sm.config.CORS
	methods := cors.AllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	allowHeaders := cors.AllowedHeaders
	if len(allowHeaders) == 0 {
		allowHeaders = []string{"Content-Type", "X-Request-ID"}
	}

	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", strings.Join(methods, ", "))
	w.Header().Set("Access-Control-Allow-Headers", strings.Join(allowHeaders, ", "))
	w.Header().Add("Vary", "Origin")
	if cors.MaxAge > 0 {
		w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cors.MaxAge))
	}
	return nil
}
