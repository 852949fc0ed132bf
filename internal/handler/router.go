package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/storyhub/internal/metrics"
	"github.com/hitoshi/storyhub/internal/middleware"
)

// HealthChecker はヘルスチェックで疎通確認する依存のインターフェース。
// *sql.DB を受け付けることができる。
type HealthChecker interface {
	Ping() error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	GuardConfig       middleware.GuardConfig
	CSRFConfig        middleware.CSRFConfig
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ストーリー
	StoryService StoryServiceInterface

	// ユーザー
	AvatarService AvatarServiceInterface

	// メトリクス
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics
//
// 認証ガード（RequireAuth / RequireAnonymous）はルートグループごとに適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.Metrics != nil {
		r.Use(metrics.NewHTTPMiddleware(deps.Metrics))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.Metrics, deps.AuthConfig)
	storyHandler := NewStoryHandler(deps.StoryService, deps.Metrics)
	userHandler := NewUserHandler(deps.AvatarService)

	requireAuth := middleware.NewRequireAuthMiddleware(deps.SessionFinder, deps.GuardConfig)
	requireAnonymous := middleware.NewRequireAnonymousMiddleware(deps.SessionFinder, deps.GuardConfig)

	// --- 認証ルート（OAuthフロー） ---
	r.Route("/auth", func(r chi.Router) {
		// ログイン入口は認証済みユーザーをダッシュボードへ戻す
		r.With(requireAnonymous).Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)

		// CSRFトークン払い出し
		r.Method(http.MethodGet, "/csrf", middleware.NewCSRFTokenHandler(deps.CSRFConfig))
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: RequireAuth → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		// ストーリー管理
		// 公開一覧・単体取得も認証を要求する（匿名閲覧は提供しない）
		r.Get("/api/stories", storyHandler.ListMine)
		r.Get("/api/stories/public", storyHandler.ListPublic)
		r.Get("/api/stories/{storyID}", storyHandler.Get)
		r.Put("/api/stories/{storyID}", storyHandler.Update)
		r.Delete("/api/stories/{storyID}", storyHandler.Delete)

		// POST /api/stories - ストーリー作成（作成専用レート制限を追加）
		if deps.RateLimiter != nil {
			r.With(deps.RateLimiter.StoryCreationMiddleware()).Post("/api/stories", storyHandler.Create)
		} else {
			r.Post("/api/stories", storyHandler.Create)
		}

		// ユーザープロフィール
		r.Get("/api/users/me/avatar", userHandler.GetAvatar)
	})

	// --- 運用ルート ---
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.Ping(); err != nil {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	return r
}
