package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/feedline/internal/model"
)

// PostgresEntryRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresEntryRepo struct {
	db *sql.DB
}

// NewPostgresEntryRepo はPostgresEntryRepoを生成する。
func NewPostgresEntryRepo(db *sql.DB) *PostgresEntryRepo {
	return &PostgresEntryRepo{db: db}
}

// scanEntry は1行分の記事をスキャンする。
func scanEntry(row *sql.Row) (*model.Entry, error) {
	entry := &model.Entry{}
	var author, summary sql.NullString

	err := row.Scan(
		&entry.ID, &entry.FeedID, &entry.EntryID, &entry.Title, &entry.URL,
		&author, &summary, &entry.Published,
		&entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Author = nullStringValue(author)
	entry.Summary = nullStringValue(summary)
	return entry, nil
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresEntryRepo) FindByID(ctx context.Context, id string) (*model.Entry, error) {
	entry, err := scanEntry(r.db.QueryRowContext(ctx,
		`SELECT id, feed_id, entry_id, title, url, author, summary, published,
		        created_at, updated_at
		 FROM entries WHERE id = $1`,
		id,
	))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}

	return entry, nil
}

// FindByFeedAndEntryID はfeed_idとentry_idの組で記事を検索する。
// リコンサイルの重複判定に使用する。見つからない場合はnilを返す。
func (r *PostgresEntryRepo) FindByFeedAndEntryID(ctx context.Context, feedID, entryID string) (*model.Entry, error) {
	entry, err := scanEntry(r.db.QueryRowContext(ctx,
		`SELECT id, feed_id, entry_id, title, url, author, summary, published,
		        created_at, updated_at
		 FROM entries WHERE feed_id = $1 AND entry_id = $2`,
		feedID, entryID,
	))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("記事の重複判定検索に失敗しました: %w", err)
	}

	return entry, nil
}

// Create は新規記事を作成する。
func (r *PostgresEntryRepo) Create(ctx context.Context, entry *model.Entry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO entries (id, feed_id, entry_id, title, url, author, summary,
		                      published, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.FeedID, entry.EntryID, entry.Title, entry.URL,
		nullString(entry.Author), nullString(entry.Summary),
		entry.Published, entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("記事の作成に失敗しました: %w", err)
	}
	return nil
}

// ListUnreadForUser はユーザーが購読中のフィードの未読記事を
// published降順・limit件まで、フィード表示情報付きで返す。
// user_entriesにレコードがない、またはread = falseの記事が未読。
func (r *PostgresEntryRepo) ListUnreadForUser(ctx context.Context, userID string, limit int) ([]model.EntryWithFeed, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT entries.id, entries.feed_id, entries.entry_id, entries.title,
		        entries.url, entries.author, entries.summary, entries.published,
		        entries.created_at, entries.updated_at,
		        feeds.title, feeds.icon_url
		 FROM entries
		 LEFT JOIN user_entries
		   ON user_entries.entry_id = entries.id AND user_entries.user_id = $1
		 INNER JOIN feeds ON feeds.id = entries.feed_id
		 INNER JOIN user_feeds ON user_feeds.feed_id = feeds.id
		 WHERE user_feeds.user_id = $1
		   AND (user_entries.id IS NULL OR user_entries.read = FALSE)
		 ORDER BY entries.published DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("未読記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var results []model.EntryWithFeed

	for rows.Next() {
		var e model.EntryWithFeed
		var author, summary, feedIconURL sql.NullString

		if err := rows.Scan(
			&e.ID, &e.FeedID, &e.EntryID, &e.Title,
			&e.URL, &author, &summary, &e.Published,
			&e.CreatedAt, &e.UpdatedAt,
			&e.FeedTitle, &feedIconURL,
		); err != nil {
			return nil, fmt.Errorf("未読記事行のスキャンに失敗しました: %w", err)
		}

		e.Author = nullStringValue(author)
		e.Summary = nullStringValue(summary)
		e.FeedIconURL = nullStringValue(feedIconURL)
		results = append(results, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("未読記事一覧の読み取りに失敗しました: %w", err)
	}

	return results, nil
}
