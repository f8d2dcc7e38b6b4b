// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/feedline/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authenticator     middleware.TokenAuthenticator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// サービス
	AuthService  AuthServiceInterface
	FeedService  FeedServiceInterface
	EntryService EntryServiceInterface

	// ヘルスチェック
	DB *sql.DB
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → Auth → RateLimit(General)
//
// ユーザー登録・ログインとヘルスチェックは認証チェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	userHandler := NewUserHandler(deps.AuthService)
	feedHandler := NewFeedHandler(deps.FeedService)
	entryHandler := NewEntryHandler(deps.EntryService)
	healthHandler := NewHealthHandler(deps.DB)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler.Health)

	r.Route("/users", func(r chi.Router) {
		r.Post("/", userHandler.Signup)
		r.Post("/login", userHandler.Login)
		r.Post("/refresh", userHandler.Refresh)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.Authenticator))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// フィード購読管理
		r.Route("/feeds", func(r chi.Router) {
			// POST /feeds - 購読（購読専用レート制限を追加）
			r.With(deps.RateLimiter.SubscribeMiddleware()).Post("/", feedHandler.Subscribe)

			r.Get("/", feedHandler.ListFeeds)
			r.Delete("/{id}", feedHandler.Unsubscribe)
		})

		// 記事管理
		r.Route("/entries", func(r chi.Router) {
			r.Get("/", entryHandler.ListUnread)
			r.Post("/read", entryHandler.MarkManyRead)

			r.Route("/{id}", func(r chi.Router) {
				r.Post("/read", entryHandler.MarkRead)
				r.Delete("/read", entryHandler.MarkUnread)
			})
		})
	})

	return r
}
