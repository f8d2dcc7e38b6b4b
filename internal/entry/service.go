// Package entry は記事一覧と既読管理のドメインロジックを提供する。
package entry

import (
	"context"

	"github.com/hitoshi/feedline/internal/model"
	"github.com/hitoshi/feedline/internal/repository"
)

// デフォルトの未読一覧取得件数上限
const defaultUnreadLimit = 200

// EntryService は記事一覧・既読管理のサービス層。
type EntryService struct {
	entryRepo     repository.EntryRepository
	userEntryRepo repository.UserEntryRepository
}

// NewEntryService はEntryServiceの新しいインスタンスを生成する。
func NewEntryService(
	entryRepo repository.EntryRepository,
	userEntryRepo repository.UserEntryRepository,
) *EntryService {
	return &EntryService{
		entryRepo:     entryRepo,
		userEntryRepo: userEntryRepo,
	}
}

// ListUnread はユーザーが購読中のフィードの未読記事を新しい順で返す。
// limitが0以下の場合はデフォルト上限を適用する。
func (s *EntryService) ListUnread(ctx context.Context, userID string, limit int) ([]model.EntryWithFeed, error) {
	if limit <= 0 {
		limit = defaultUnreadLimit
	}
	return s.entryRepo.ListUnreadForUser(ctx, userID, limit)
}

// MarkRead は記事を既読にする。存在しない記事IDはエラー。
func (s *EntryService) MarkRead(ctx context.Context, userID, entryID string) error {
	if err := s.ensureEntryExists(ctx, entryID); err != nil {
		return err
	}
	if _, err := s.userEntryRepo.Upsert(ctx, userID, entryID, true); err != nil {
		return err
	}
	return nil
}

// MarkUnread は記事を未読に戻す。既読レコードがなければ何もしない。
func (s *EntryService) MarkUnread(ctx context.Context, userID, entryID string) error {
	if err := s.ensureEntryExists(ctx, entryID); err != nil {
		return err
	}
	return s.userEntryRepo.Delete(ctx, userID, entryID)
}

// MarkManyRead は複数記事を一括で既読にする。
// 存在しないIDの検証は行わず、外部キー制約に委ねる。
func (s *EntryService) MarkManyRead(ctx context.Context, userID string, entryIDs []string) error {
	if len(entryIDs) == 0 {
		return nil
	}
	return s.userEntryRepo.MarkManyRead(ctx, userID, entryIDs)
}

func (s *EntryService) ensureEntryExists(ctx context.Context, entryID string) error {
	entry, err := s.entryRepo.FindByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry == nil {
		return model.NewEntryNotFoundError(entryID)
	}
	return nil
}
