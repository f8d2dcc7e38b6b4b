// Package model はドメインモデルを定義する。
package model

import "time"

// Feed は購読対象のRSS/Atomフィードを表す。
// urlで一意に識別され、タイトルとアイコンは登録時に1回だけ取得される
// （リコンサイル時には更新しない。表示名の安定性を優先する）。
type Feed struct {
	ID        string
	Title     string
	IconURL   string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserFeed はユーザーとフィードの購読関係を表す。
type UserFeed struct {
	ID        string
	UserID    string
	FeedID    string
	CreatedAt time.Time
}

// FeedOption はHTMLページから検出されたフィード候補を表す。
// 永続化されない一時的な値で、複数候補がある場合に
// ユーザーへの選択肢として返却される。
// Titleはlink要素にtitle属性が無い場合nilとなり、JSONではnullとして
// シリアライズされる（空文字列のタイトルと区別する）。
type FeedOption struct {
	Title *string `json:"title"`
	URL   string  `json:"url"`
}

// ParsedFeed はパーサーが生成したフィードドキュメントの要約を表す。
// Entriesは要約のみのパース（ParseSummary）では常に空。
type ParsedFeed struct {
	Title   string
	IconURL string
	Entries []ParsedEntry
}

// ParsedEntry はパーサーが正規化した1件の記事データを表す。
// EntryIDはguid→link→空文字列の優先順位で決定される永続化前の値。
type ParsedEntry struct {
	EntryID   string
	Title     string
	URL       string
	Author    string
	Summary   string
	Published time.Time
}
