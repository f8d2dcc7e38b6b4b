package ingest

import (
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/feedline/internal/model"
)

// defaultTitle はフィード・記事がタイトルを持たない場合の既定値。
const defaultTitle = "Untitled"

// FeedParser はRSS/Atomドキュメントのパースインターフェース。
// テスタビリティのためParserを抽象化する。
type FeedParser interface {
	// ParseSummary はフィードの要約（タイトル・アイコン）のみをパースする。
	ParseSummary(body []byte) (*model.ParsedFeed, error)

	// ParseWithEntries は要約に加えて全記事を正規化してパースする。
	// nowは公開日時が欠落した記事の既定値として使用される。
	ParseWithEntries(body []byte, now time.Time) (*model.ParsedFeed, error)
}

// Parser はgofeedによるRSS/Atomパーサー。
// RSS 2.0、RSS 1.0 (RDF)、Atom 1.0を透過的に扱う。
type Parser struct{}

// NewParser はParserの新しいインスタンスを生成する。
func NewParser() *Parser {
	return &Parser{}
}

// ParseSummary はフィードの要約（タイトル・アイコン）のみをパースする。
// ルート要素がRSS/Atomでない、または構造的に壊れたXMLはPARSE_FAILEDを返す。
func (p *Parser) ParseSummary(body []byte) (*model.ParsedFeed, error) {
	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, model.NewParseFailedError()
	}

	return &model.ParsedFeed{
		Title:   feedTitle(parsed),
		IconURL: feedIconURL(parsed),
	}, nil
}

// ParseWithEntries は要約に加えて全記事を正規化してパースする。
// 記事が1件もないフィードは失敗ではなく空のEntriesとして返す。
func (p *Parser) ParseWithEntries(body []byte, now time.Time) (*model.ParsedFeed, error) {
	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, model.NewParseFailedError()
	}

	entries := make([]model.ParsedEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, convertItem(item, now))
	}

	return &model.ParsedFeed{
		Title:   feedTitle(parsed),
		IconURL: feedIconURL(parsed),
		Entries: entries,
	}, nil
}

// feedTitle はフィードタイトルを返す。未設定の場合は既定値。
func feedTitle(feed *gofeed.Feed) string {
	if feed.Title == "" {
		return defaultTitle
	}
	return feed.Title
}

// feedIconURL はフィードのアイコンURLを返す。
// RSSのimage要素・Atomのlogo要素はgofeedがImageに正規化する。未設定の場合は空文字列。
func feedIconURL(feed *gofeed.Feed) string {
	if feed.Image != nil {
		return feed.Image.URL
	}
	return ""
}

// convertItem はgofeedの記事を正規化されたParsedEntryに変換する。
// フィールドのフォールバック規則:
//   - EntryID: guid → link → 空文字列
//   - Title: 記事タイトル → "Untitled"
//   - Published: published → updated → now（フェッチ時刻）
//   - Summary: description（スニペット） → 本文content → 空文字列
func convertItem(item *gofeed.Item, now time.Time) model.ParsedEntry {
	entry := model.ParsedEntry{
		Title: item.Title,
		URL:   item.Link,
	}

	if entry.Title == "" {
		entry.Title = defaultTitle
	}

	// 安定識別子: guid優先、なければlink、どちらもなければ空文字列
	if item.GUID != "" {
		entry.EntryID = item.GUID
	} else {
		entry.EntryID = item.Link
	}

	// 著者情報
	if item.Author != nil {
		entry.Author = item.Author.Name
	}
	if entry.Author == "" && len(item.Authors) > 0 && item.Authors[0] != nil {
		entry.Author = item.Authors[0].Name
	}

	// 公開日時: ドキュメントが提供しない場合はフェッチ時刻を使用
	switch {
	case item.PublishedParsed != nil:
		entry.Published = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		entry.Published = *item.UpdatedParsed
	default:
		entry.Published = now
	}

	// サマリー: スニペット（description）を本文より優先する
	if item.Description != "" {
		entry.Summary = item.Description
	} else if item.Content != "" {
		entry.Summary = item.Content
	}

	return entry
}
