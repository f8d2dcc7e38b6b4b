// Package feed はフィード購読・管理のドメインロジックを提供する。
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/feedline/internal/ingest"
	"github.com/hitoshi/feedline/internal/model"
	"github.com/hitoshi/feedline/internal/repository"
)

// FeedResolver はフィード解決のインターフェース。
// テスタビリティのためingest.Resolverを抽象化する。
type FeedResolver interface {
	Resolve(ctx context.Context, userURL string) (*ingest.Resolution, error)
}

// SubscribeResult は購読操作の結果を表す。
// 解決に成功した場合はFeedが、複数候補がある場合はOptionsが設定される。
type SubscribeResult struct {
	Feed    *model.Feed
	Options []model.FeedOption
}

// FeedService はフィード購読・管理のサービス層。
// 解決 → フィード保存（重複チェック） → 購読作成のフローを統括する。
type FeedService struct {
	feedRepo     repository.FeedRepository
	userFeedRepo repository.UserFeedRepository
	resolver     FeedResolver
}

// NewFeedService はFeedServiceの新しいインスタンスを生成する。
func NewFeedService(
	feedRepo repository.FeedRepository,
	userFeedRepo repository.UserFeedRepository,
	resolver FeedResolver,
) *FeedService {
	return &FeedService{
		feedRepo:     feedRepo,
		userFeedRepo: userFeedRepo,
		resolver:     resolver,
	}
}

// Subscribe はURLからフィードを解決してユーザーの購読を作成する。
// 解決結果に応じた処理:
//   - 登録済みフィード: 購読関係のみを冪等に作成
//   - 新規フィード: フィード行を作成してから購読を作成
//   - 複数候補: 永続化せずOptionsを返す（呼び出し側が選択URLで再実行）
//   - 解決不能: 原因のAPIErrorをそのまま返す（フィード行は作成されない）
func (s *FeedService) Subscribe(ctx context.Context, userID, inputURL string) (*SubscribeResult, error) {
	resolution, err := s.resolver.Resolve(ctx, inputURL)
	if err != nil {
		return nil, err
	}

	switch resolution.Status {
	case ingest.StatusExistingFeed:
		if err := s.attachSubscription(ctx, userID, resolution.Feed.ID); err != nil {
			return nil, err
		}
		return &SubscribeResult{Feed: resolution.Feed}, nil

	case ingest.StatusNewFeed:
		created, err := s.createFeed(ctx, resolution)
		if err != nil {
			return nil, err
		}
		if err := s.attachSubscription(ctx, userID, created.ID); err != nil {
			return nil, err
		}
		return &SubscribeResult{Feed: created}, nil

	case ingest.StatusAmbiguous:
		return &SubscribeResult{Options: resolution.Options}, nil

	case ingest.StatusUnresolvable:
		return nil, resolution.Cause

	default:
		return nil, fmt.Errorf("未知の解決状態です: %s", resolution.Status)
	}
}

// ListFeeds はユーザーが購読中のフィード一覧を返す。
func (s *FeedService) ListFeeds(ctx context.Context, userID string) ([]*model.Feed, error) {
	return s.feedRepo.ListByUser(ctx, userID)
}

// Unsubscribe はフィードの購読を解除する。フィード行と記事は残す。
func (s *FeedService) Unsubscribe(ctx context.Context, userID, feedID string) error {
	feed, err := s.feedRepo.FindByID(ctx, feedID)
	if err != nil {
		return err
	}
	if feed == nil {
		return model.NewFeedNotFoundError(feedID)
	}

	return s.userFeedRepo.Delete(ctx, userID, feedID)
}

// createFeed は解決結果から新規フィード行を作成する。
// タイトルとアイコンはこの時点の値で固定され、以後更新されない。
func (s *FeedService) createFeed(ctx context.Context, resolution *ingest.Resolution) (*model.Feed, error) {
	now := time.Now()
	feed := &model.Feed{
		ID:        uuid.New().String(),
		Title:     resolution.Parsed.Title,
		IconURL:   resolution.Parsed.IconURL,
		URL:       resolution.FeedURL,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.feedRepo.Create(ctx, feed); err != nil {
		return nil, fmt.Errorf("フィードの保存に失敗しました: %w", err)
	}

	slog.Info("新規フィードを登録しました",
		slog.String("feed_id", feed.ID),
		slog.String("feed_url", feed.URL),
		slog.String("title", feed.Title),
	)

	return feed, nil
}

// attachSubscription は購読関係を冪等に作成する。
func (s *FeedService) attachSubscription(ctx context.Context, userID, feedID string) error {
	if _, err := s.userFeedRepo.FindOrCreate(ctx, userID, feedID); err != nil {
		return fmt.Errorf("購読の作成に失敗しました: %w", err)
	}
	return nil
}
