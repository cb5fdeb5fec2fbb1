package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/okamyuji/skin-tone-analyzer/config"
	"github.com/okamyuji/skin-tone-analyzer/internal/analyzer"
	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
	"github.com/okamyuji/skin-tone-analyzer/internal/interfaces"
	"github.com/okamyuji/skin-tone-analyzer/internal/middleware"
	"github.com/okamyuji/skin-tone-analyzer/internal/palette"
	"github.com/okamyuji/skin-tone-analyzer/internal/response"
)

// ルーターの依存関係
type Dependencies struct {
	Config         *config.Config
	Analyzer       analyzer.SkinAnalyzerInterface
	Palettes       *palette.Table
	Detector       StatusProvider
	DetectorName   string
	Pool           interfaces.WorkerPool
	Metrics        interfaces.MetricsRecorder
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// ルーティングを構築
func NewRouter(d Dependencies) *chi.Mux {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.NewAccessLog(d.Logger, d.Metrics).Middleware)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.NewSecurityMiddleware(&d.Config.Security).Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, errors.InvalidInput(r.URL.Path, nil).WithCode(errors.ErrCodeNotFound),
			middleware.RequestIDFromContext(r.Context()))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})

	analyzeHandler := NewAnalyzeHandler(d.Analyzer, d.Pool, d.Config.Image, d.Config.Worker.Timeout)
	paletteHandler := NewPaletteHandler(d.Palettes)
	healthHandler := NewHealthHandler(d.Detector, d.Pool, d.Logger)

	r.Get("/", InfoHandler(InfoResponse{
		Name:     d.Config.App.Name,
		Version:  d.Config.App.Version,
		Env:      d.Config.App.Env,
		Detector: d.DetectorName,
		Endpoints: []string{
			"POST /api/v1/analyze",
			"GET /api/v1/palettes/{depth}/{undertone}",
			"GET /health",
			"GET /metrics",
		},
	}))
	r.Get("/health", healthHandler.Handle)
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", analyzeHandler.HandleAnalyze)
		r.Get("/palettes/{depth}/{undertone}", paletteHandler.HandleGet)
	})

	return r
}
