// Package model はドメインモデルを定義する。
package model

import "time"

// Entry はフィードから取り込んだ記事を表す。
// (feed_id, entry_id) の組で一意。リコンサイルエンジンによる挿入専用で、
// 取り込み後に更新・削除されることはない。
type Entry struct {
	ID        string
	FeedID    string
	EntryID   string
	Title     string
	URL       string
	Author    string
	Summary   string
	Published time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserEntry はユーザーごとの記事既読状態を表す。
// レコードが存在しない記事は未読として扱う。
type UserEntry struct {
	ID        string
	UserID    string
	EntryID   string
	Read      bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntryWithFeed は記事と所属フィードの表示用情報を結合したモデル。
// 未読一覧APIのレスポンス構築に使用する。
type EntryWithFeed struct {
	Entry
	FeedTitle   string
	FeedIconURL string
}
