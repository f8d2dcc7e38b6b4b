// Package refresh は全フィードの定期リコンサイルを実行するバッチドライバを提供する。
package refresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/feedline/internal/ingest"
	"github.com/hitoshi/feedline/internal/metrics"
	"github.com/hitoshi/feedline/internal/model"
	"github.com/hitoshi/feedline/internal/repository"
)

// FeedReconciler はフィードリコンサイルの実行インターフェース。
type FeedReconciler interface {
	// Reconcile はフィードをフェッチし、新規記事を取り込む。
	Reconcile(ctx context.Context, feed *model.Feed) (*ingest.ReconcileResult, error)
}

// RunSummary は1回のバッチ実行の集計結果を表す。
type RunSummary struct {
	FeedsProcessed int // 処理対象となったフィード数
	Succeeded      int // リコンサイルに成功したフィード数
	Failed         int // リコンサイルに失敗したフィード数
	TotalEntries   int // フィードドキュメントから取得した記事の総数
	NewEntries     int // 新規挿入された記事の総数
}

// Runner は全フィードを順次リコンサイルするバッチドライバ。
// フィードは1件ずつ直列に処理し、個別の失敗は記録して処理を継続する。
type Runner struct {
	feedRepo   repository.FeedRepository
	reconciler FeedReconciler
	collector  metrics.MetricsCollector
	logger     *slog.Logger
}

// NewRunner はRunnerの新しいインスタンスを生成する。
// collectorはnilでもよい（メトリクスを記録しない）。
func NewRunner(
	feedRepo repository.FeedRepository,
	reconciler FeedReconciler,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		feedRepo:   feedRepo,
		reconciler: reconciler,
		collector:  collector,
		logger:     logger,
	}
}

// RunOnce は全フィードを1回リコンサイルし、集計結果を返す。
// 個別フィードの失敗はバッチ全体を中断しない。
// コンテキストがキャンセルされた場合はその時点までの集計を返す。
func (r *Runner) RunOnce(ctx context.Context) (*RunSummary, error) {
	start := time.Now()

	feeds, err := r.feedRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{FeedsProcessed: len(feeds)}

	if len(feeds) == 0 {
		r.logger.Info("リコンサイル対象のフィードはありません")
		return summary, nil
	}

	r.logger.Info("リコンサイルバッチを開始します",
		slog.Int("feed_count", len(feeds)),
	)

	for _, feed := range feeds {
		if ctx.Err() != nil {
			r.logger.Warn("コンテキストのキャンセルによりバッチを中断します",
				slog.Int("processed", summary.Succeeded+summary.Failed),
			)
			return summary, ctx.Err()
		}

		r.reconcileOne(ctx, feed, summary)
	}

	r.logger.Info("リコンサイルバッチが完了しました",
		slog.Int("feeds_processed", summary.FeedsProcessed),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
		slog.Int("total_entries", summary.TotalEntries),
		slog.Int("new_entries", summary.NewEntries),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return summary, nil
}

// reconcileOne は1フィードをリコンサイルし、結果をsummaryに集計する。
func (r *Runner) reconcileOne(ctx context.Context, feed *model.Feed, summary *RunSummary) {
	feedStart := time.Now()

	result, err := r.reconciler.Reconcile(ctx, feed)

	if r.collector != nil {
		r.collector.RecordReconcileLatency(time.Since(feedStart))
	}

	if err != nil {
		summary.Failed++
		if r.collector != nil {
			r.collector.RecordReconcileFailure()
		}
		r.logger.Error("フィードのリコンサイルに失敗しました",
			slog.String("feed_id", feed.ID),
			slog.String("feed_url", feed.URL),
			slog.String("error", err.Error()),
		)
		return
	}

	summary.Succeeded++
	summary.TotalEntries += result.TotalEntries
	summary.NewEntries += result.NewEntries

	if r.collector != nil {
		r.collector.RecordReconcileSuccess()
		r.collector.RecordEntriesSeen(result.TotalEntries)
		r.collector.RecordEntriesInserted(result.NewEntries)
	}
}
