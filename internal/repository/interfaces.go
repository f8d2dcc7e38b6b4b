// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/feedline/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error
}

// AuthTokenRepository は認証トークンの永続化インターフェース。
type AuthTokenRepository interface {
	// Create はトークンを作成する。
	Create(ctx context.Context, token *model.AuthToken) error

	// FindByToken はトークン文字列でトークンを検索する。見つからない場合はnilを返す。
	// 期限切れ判定は呼び出し側が行う。
	FindByToken(ctx context.Context, token string) (*model.AuthToken, error)

	// DeleteByToken はトークン文字列でトークンを削除する。
	DeleteByToken(ctx context.Context, token string) error

	// DeleteExpired は指定時刻より前に期限切れとなったトークンを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// FeedRepository はフィードデータの永続化インターフェース。
type FeedRepository interface {
	// FindByID は指定IDのフィードを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Feed, error)

	// FindByURL はフィードURLの完全一致でフィードを検索する。見つからない場合はnilを返す。
	FindByURL(ctx context.Context, url string) (*model.Feed, error)

	// Create はフィードを作成する。
	Create(ctx context.Context, feed *model.Feed) error

	// ListAll は全フィードをid順で返す。バッチリコンサイルで使用する。
	ListAll(ctx context.Context) ([]*model.Feed, error)

	// ListByUser はユーザーが購読中のフィードを購読日時の降順で返す。
	ListByUser(ctx context.Context, userID string) ([]*model.Feed, error)
}

// UserFeedRepository は購読関係の永続化インターフェース。
type UserFeedRepository interface {
	// FindOrCreate は購読関係を冪等に取得または作成する。
	FindOrCreate(ctx context.Context, userID, feedID string) (*model.UserFeed, error)

	// Find はユーザーIDとフィードIDで購読関係を検索する。見つからない場合はnilを返す。
	Find(ctx context.Context, userID, feedID string) (*model.UserFeed, error)

	// Delete は購読関係を削除する（購読解除）。フィード行は残す。
	Delete(ctx context.Context, userID, feedID string) error
}

// EntryRepository は記事データの永続化インターフェース。
// リコンサイルエンジンからは挿入専用で使用される。
type EntryRepository interface {
	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Entry, error)

	// FindByFeedAndEntryID はfeed_idとentry_idの組で記事を検索する。
	// リコンサイルの重複判定に使用する唯一のキー。見つからない場合はnilを返す。
	FindByFeedAndEntryID(ctx context.Context, feedID, entryID string) (*model.Entry, error)

	// Create は新規記事を作成する。
	Create(ctx context.Context, entry *model.Entry) error

	// ListUnreadForUser はユーザーが購読中のフィードの未読記事を
	// published降順・limit件まで、フィード表示情報付きで返す。
	ListUnreadForUser(ctx context.Context, userID string, limit int) ([]model.EntryWithFeed, error)
}

// UserEntryRepository はユーザーごとの既読状態の永続化インターフェース。
type UserEntryRepository interface {
	// Upsert は既読状態を冪等にUPSERTする。
	Upsert(ctx context.Context, userID, entryID string, read bool) (*model.UserEntry, error)

	// Delete は既読レコードを削除する（未読に戻す）。
	Delete(ctx context.Context, userID, entryID string) error

	// MarkManyRead は複数記事を一括で既読にする。空スライスは何もしない。
	MarkManyRead(ctx context.Context, userID string, entryIDs []string) error
}
