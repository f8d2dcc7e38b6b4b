package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/feedline/internal/model"
)

// PostgresFeedRepo はPostgreSQLを使用したフィードリポジトリ。
type PostgresFeedRepo struct {
	db *sql.DB
}

// NewPostgresFeedRepo はPostgresFeedRepoを生成する。
func NewPostgresFeedRepo(db *sql.DB) *PostgresFeedRepo {
	return &PostgresFeedRepo{db: db}
}

// scanFeed は1行分のフィードをスキャンする。
func scanFeed(row *sql.Row) (*model.Feed, error) {
	feed := &model.Feed{}
	var iconURL sql.NullString

	err := row.Scan(
		&feed.ID, &feed.Title, &iconURL, &feed.URL,
		&feed.CreatedAt, &feed.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	feed.IconURL = nullStringValue(iconURL)
	return feed, nil
}

// FindByID は指定IDのフィードを取得する。見つからない場合はnilを返す。
func (r *PostgresFeedRepo) FindByID(ctx context.Context, id string) (*model.Feed, error) {
	feed, err := scanFeed(r.db.QueryRowContext(ctx,
		`SELECT id, title, icon_url, url, created_at, updated_at
		 FROM feeds WHERE id = $1`,
		id,
	))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("フィードの取得に失敗しました: %w", err)
	}

	return feed, nil
}

// FindByURL はフィードURLの完全一致でフィードを検索する。見つからない場合はnilを返す。
func (r *PostgresFeedRepo) FindByURL(ctx context.Context, url string) (*model.Feed, error) {
	feed, err := scanFeed(r.db.QueryRowContext(ctx,
		`SELECT id, title, icon_url, url, created_at, updated_at
		 FROM feeds WHERE url = $1`,
		url,
	))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("URLによるフィードの検索に失敗しました: %w", err)
	}

	return feed, nil
}

// Create はフィードを作成する。
func (r *PostgresFeedRepo) Create(ctx context.Context, feed *model.Feed) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO feeds (id, title, icon_url, url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		feed.ID, feed.Title, nullString(feed.IconURL), feed.URL,
		feed.CreatedAt, feed.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("フィードの作成に失敗しました: %w", err)
	}
	return nil
}

// ListAll は全フィードをid順で返す。バッチリコンサイルで使用する。
func (r *PostgresFeedRepo) ListAll(ctx context.Context) ([]*model.Feed, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, icon_url, url, created_at, updated_at
		 FROM feeds ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("フィード一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectFeeds(rows)
}

// ListByUser はユーザーが購読中のフィードを購読日時の降順で返す。
func (r *PostgresFeedRepo) ListByUser(ctx context.Context, userID string) ([]*model.Feed, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT feeds.id, feeds.title, feeds.icon_url, feeds.url,
		        feeds.created_at, feeds.updated_at
		 FROM feeds
		 INNER JOIN user_feeds ON user_feeds.feed_id = feeds.id
		 WHERE user_feeds.user_id = $1
		 ORDER BY user_feeds.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("購読フィード一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectFeeds(rows)
}

// collectFeeds は結果セットからフィードスライスを構築する。
func collectFeeds(rows *sql.Rows) ([]*model.Feed, error) {
	var feeds []*model.Feed

	for rows.Next() {
		feed := &model.Feed{}
		var iconURL sql.NullString

		if err := rows.Scan(
			&feed.ID, &feed.Title, &iconURL, &feed.URL,
			&feed.CreatedAt, &feed.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("フィード行のスキャンに失敗しました: %w", err)
		}

		feed.IconURL = nullStringValue(iconURL)
		feeds = append(feeds, feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("フィード一覧の読み取りに失敗しました: %w", err)
	}

	return feeds, nil
}
