package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/autoblog/internal/metrics"
	"github.com/hitoshi/autoblog/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	APIToken          string
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector

	// 設定
	ConfigService ConfigServiceInterface

	// 投稿
	PostService PostServiceInterface

	// スケジューラ
	Generator      ManualGenerator
	SchedulerState SchedulerStateReader

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
}

// NewRouter はControl APIのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Metrics → TokenAuth → Logging → RateLimit(General)
//
// /health と /metrics は認証とレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.NopCollector{}
	}

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewMetricsMiddleware(collector))

	configHandler := NewConfigHandler(deps.ConfigService)
	generateHandler := NewGenerateHandler(deps.ConfigService, deps.Generator)
	postHandler := NewPostHandler(deps.PostService)
	schedulerHandler := NewSchedulerHandler(deps.SchedulerState)
	healthHandler := NewHealthHandler(deps.HealthChecker)

	// --- 認証不要のルート ---
	r.With(middleware.NewLoggingMiddleware(logger, middleware.WithSuccessLevel(slog.LevelDebug))).Get("/health", healthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- Control API ---
	// ミドルウェアスタック: TokenAuth → Logging → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewTokenAuthMiddleware(deps.APIToken))
		r.Use(middleware.NewLoggingMiddleware(logger))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		r.Get("/config", configHandler.GetConfig)
		r.Post("/config", configHandler.UpdateConfig)
		r.Post("/schedule", configHandler.UpdateSchedule)

		// POST /generate - 即時生成（生成専用レート制限を追加）
		if deps.RateLimiter != nil {
			r.With(deps.RateLimiter.GenerateMiddleware()).Post("/generate", generateHandler.Generate)
		} else {
			r.Post("/generate", generateHandler.Generate)
		}

		r.Get("/posts", postHandler.ListPosts)
		r.Get("/scheduler", schedulerHandler.GetState)
	})

	return r
}
