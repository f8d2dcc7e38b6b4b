// Package app はアプリケーションの初期化・起動・依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/feedline/internal/auth"
	"github.com/hitoshi/feedline/internal/config"
	"github.com/hitoshi/feedline/internal/database"
	"github.com/hitoshi/feedline/internal/entry"
	"github.com/hitoshi/feedline/internal/feed"
	"github.com/hitoshi/feedline/internal/handler"
	"github.com/hitoshi/feedline/internal/ingest"
	"github.com/hitoshi/feedline/internal/logger"
	"github.com/hitoshi/feedline/internal/metrics"
	"github.com/hitoshi/feedline/internal/middleware"
	"github.com/hitoshi/feedline/internal/repository"
	"github.com/hitoshi/feedline/internal/security"
	"github.com/hitoshi/feedline/internal/worker/cleanup"
	"github.com/hitoshi/feedline/internal/worker/refresh"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("初期化に失敗しました: %w", err)
	}

	slog.Info("アプリケーションを起動します",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandFetch:
		return runFetch(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("データベース接続のオープンに失敗しました: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("データベースへの接続に失敗しました: %w", err)
	}

	slog.Info("データベース接続を確立しました")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	tokenRepo := repository.NewPostgresAuthTokenRepo(db)
	feedRepo := repository.NewPostgresFeedRepo(db)
	userFeedRepo := repository.NewPostgresUserFeedRepo(db)
	entryRepo := repository.NewPostgresEntryRepo(db)
	userEntryRepo := repository.NewPostgresUserEntryRepo(db)

	// 3. インジェストパイプラインの初期化
	ssrfGuard := security.NewSSRFGuard()
	fetcher := ingest.NewFetcher(ssrfGuard, cfg.FetchTimeout, cfg.FetchMaxRedirects, cfg.FetchMaxSize)
	parser := ingest.NewParser()
	resolver := ingest.NewResolver(feedRepo, fetcher, parser)

	// 4. ドメインサービスの初期化
	authService := auth.NewService(userRepo, tokenRepo, auth.ServiceConfig{
		RegularTTL: cfg.TokenRegularTTL,
		RefreshTTL: cfg.TokenRefreshTTL,
	})
	feedService := feed.NewFeedService(feedRepo, userFeedRepo, resolver)
	entryService := entry.NewEntryService(entryRepo, userEntryRepo)

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitSubscribe),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Authenticator:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),

		AuthService:  authService,
		FeedService:  feedService,
		EntryService: entryService,

		DB: db,
	})

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("APIサーバーを起動します", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("サーバーのリッスンでエラー", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("APIサーバーをシャットダウンしています...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗しました: %w", err)
	}

	slog.Info("APIサーバーを停止しました")
	return nil
}

// runFetch は全フィードのリコンサイルバッチを1回実行して終了する。
// 実行周期は外部のスケジューラ（cron等）が管理する。
// バッチ実行中は/metricsエンドポイントをメトリクスポートで公開する。
func runFetch(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("データベース接続のオープンに失敗しました: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("データベースへの接続に失敗しました: %w", err)
	}

	slog.Info("データベース接続を確立しました（バッチ）")

	// 2. リポジトリの初期化
	feedRepo := repository.NewPostgresFeedRepo(db)
	entryRepo := repository.NewPostgresEntryRepo(db)
	tokenRepo := repository.NewPostgresAuthTokenRepo(db)

	// 3. インジェストパイプラインの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()
	fetcher := ingest.NewFetcher(ssrfGuard, cfg.FetchTimeout, cfg.FetchMaxRedirects, cfg.FetchMaxSize)
	parser := ingest.NewParser()
	reconciler := ingest.NewReconciler(entryRepo, fetcher, parser, sanitizer, slog.Default())

	// 4. メトリクスの初期化と公開
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metrics.SetupMetricsRoute(registry),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("メトリクスサーバーのリッスンでエラー", slog.String("error", err.Error()))
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		metricsServer.Shutdown(ctx)
	}()

	// 5. バッチの実行（シグナルで中断可能）
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner := refresh.NewRunner(feedRepo, reconciler, collector, slog.Default())

	summary, err := runner.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("リコンサイルバッチの実行に失敗しました: %w", err)
	}

	// 6. 期限切れトークンのクリーンアップ
	cleanupJob := cleanup.NewCleanupJob(tokenRepo, slog.Default())
	if err := cleanupJob.Run(ctx); err != nil {
		slog.Error("トークンクリーンアップに失敗しました", slog.String("error", err.Error()))
	}

	slog.Info("バッチ実行を終了します",
		slog.Int("feeds_processed", summary.FeedsProcessed),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
		slog.Int("new_entries", summary.NewEntries),
	)

	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("データベースマイグレーションを実行します",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("マイグレーションに失敗しました: %w", err)
	}

	slog.Info("データベースマイグレーションが完了しました")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("ヘルスチェックに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ヘルスチェックがステータス %d を返しました", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
