package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/feedline/internal/model"
	"github.com/hitoshi/feedline/internal/repository"
	"github.com/hitoshi/feedline/internal/security"
)

// ReconcileResult はリコンサイル1回分の結果カウントを表す。
type ReconcileResult struct {
	NewEntries   int
	TotalEntries int
}

// Reconciler は登録済みフィードの現在のドキュメントを取得し、
// 未保存の記事のみをストアへマージする。
// 記事の更新・削除は一切行わない（取り込み後の記事は不変）。
// フィードのタイトル・アイコンもリコンサイルでは更新しない。
type Reconciler struct {
	entryRepo repository.EntryRepository
	fetcher   DocumentFetcher
	parser    FeedParser
	sanitizer security.ContentSanitizerService
	logger    *slog.Logger
}

// NewReconciler はReconcilerの新しいインスタンスを生成する。
func NewReconciler(
	entryRepo repository.EntryRepository,
	fetcher DocumentFetcher,
	parser FeedParser,
	sanitizer security.ContentSanitizerService,
	logger *slog.Logger,
) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		entryRepo: entryRepo,
		fetcher:   fetcher,
		parser:    parser,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// Reconcile はフィードの登録URLを取得・パースし、
// (feed_id, entry_id) で未保存の記事のみを挿入する。
// フェッチ失敗・パース失敗はそのまま失敗として返り、部分結果は生成されない。
// リモートドキュメントが変化していなければ2回目の呼び出しはNewEntries = 0となる（冪等）。
func (r *Reconciler) Reconcile(ctx context.Context, feed *model.Feed) (*ReconcileResult, error) {
	start := time.Now()

	result, err := r.fetcher.Fetch(ctx, feed.URL)
	if err != nil {
		return nil, err
	}

	parsed, err := r.parser.ParseWithEntries(result.Body, start)
	if err != nil {
		return nil, err
	}

	newCount := 0

	for _, entry := range parsed.Entries {
		existing, findErr := r.entryRepo.FindByFeedAndEntryID(ctx, feed.ID, entry.EntryID)
		if findErr != nil {
			return nil, findErr
		}
		if existing != nil {
			continue
		}

		if createErr := r.createEntry(ctx, feed.ID, entry); createErr != nil {
			return nil, createErr
		}
		newCount++
	}

	res := &ReconcileResult{
		NewEntries:   newCount,
		TotalEntries: len(parsed.Entries),
	}

	r.logger.Info("フィードのリコンサイルが完了しました",
		slog.String("feed_id", feed.ID),
		slog.String("feed_url", feed.URL),
		slog.Int("total_entries", res.TotalEntries),
		slog.Int("new_entries", res.NewEntries),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return res, nil
}

// createEntry はパース済み記事を新規Entryとして保存する。
// サマリーは保存前にサニタイズする。
func (r *Reconciler) createEntry(ctx context.Context, feedID string, parsed model.ParsedEntry) error {
	now := time.Now()

	summary := parsed.Summary
	if r.sanitizer != nil {
		summary = r.sanitizer.Sanitize(summary)
	}

	entry := &model.Entry{
		ID:        uuid.New().String(),
		FeedID:    feedID,
		EntryID:   parsed.EntryID,
		Title:     parsed.Title,
		URL:       parsed.URL,
		Author:    parsed.Author,
		Summary:   summary,
		Published: parsed.Published,
		CreatedAt: now,
		UpdatedAt: now,
	}

	return r.entryRepo.Create(ctx, entry)
}
