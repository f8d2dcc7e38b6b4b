package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/feedline/internal/model"
)

// PostgresUserFeedRepo はPostgreSQLを使用した購読関係リポジトリ。
type PostgresUserFeedRepo struct {
	db *sql.DB
}

// NewPostgresUserFeedRepo はPostgresUserFeedRepoを生成する。
func NewPostgresUserFeedRepo(db *sql.DB) *PostgresUserFeedRepo {
	return &PostgresUserFeedRepo{db: db}
}

// Find はユーザーIDとフィードIDで購読関係を検索する。見つからない場合はnilを返す。
func (r *PostgresUserFeedRepo) Find(ctx context.Context, userID, feedID string) (*model.UserFeed, error) {
	uf := &model.UserFeed{}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, feed_id, created_at
		 FROM user_feeds WHERE user_id = $1 AND feed_id = $2`,
		userID, feedID,
	).Scan(&uf.ID, &uf.UserID, &uf.FeedID, &uf.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("購読関係の検索に失敗しました: %w", err)
	}

	return uf, nil
}

// FindOrCreate は購読関係を冪等に取得または作成する。
// 同一の(user_id, feed_id)に対して複数回呼び出しても1レコードのみ存在する。
func (r *PostgresUserFeedRepo) FindOrCreate(ctx context.Context, userID, feedID string) (*model.UserFeed, error) {
	existing, err := r.Find(ctx, userID, feedID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	uf := &model.UserFeed{
		ID:        uuid.New().String(),
		UserID:    userID,
		FeedID:    feedID,
		CreatedAt: time.Now(),
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO user_feeds (id, user_id, feed_id, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, feed_id) DO NOTHING`,
		uf.ID, uf.UserID, uf.FeedID, uf.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("購読関係の作成に失敗しました: %w", err)
	}

	// ON CONFLICTで挿入がスキップされた場合も既存レコードを返す
	created, err := r.Find(ctx, userID, feedID)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("購読関係の作成結果を取得できませんでした")
	}
	return created, nil
}

// Delete は購読関係を削除する（購読解除）。フィード行は残す。
func (r *PostgresUserFeedRepo) Delete(ctx context.Context, userID, feedID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_feeds WHERE user_id = $1 AND feed_id = $2`,
		userID, feedID,
	)
	if err != nil {
		return fmt.Errorf("購読関係の削除に失敗しました: %w", err)
	}
	return nil
}
