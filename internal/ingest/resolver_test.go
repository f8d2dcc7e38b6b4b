package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/feedline/internal/model"
)

// --- ingestパッケージ共通のテスト用モック ---

// stubFetcher はテスト用のDocumentFetcherモック。
// URLごとの結果を返し、呼び出し回数を記録する。
type stubFetcher struct {
	results    map[string]*FetchResult
	errs       map[string]error
	fetchCalls int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		results: make(map[string]*FetchResult),
		errs:    make(map[string]error),
	}
}

func (s *stubFetcher) Fetch(_ context.Context, url string) (*FetchResult, error) {
	s.fetchCalls++
	if err, ok := s.errs[url]; ok {
		return nil, err
	}
	if result, ok := s.results[url]; ok {
		return result, nil
	}
	return nil, model.NewFetchFailedError(url)
}

func (s *stubFetcher) setHTML(url, body string) {
	s.results[url] = &FetchResult{
		StatusCode:  200,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(body),
	}
}

func (s *stubFetcher) setFeed(url, body string) {
	s.results[url] = &FetchResult{
		StatusCode:  200,
		ContentType: "application/rss+xml",
		Body:        []byte(body),
	}
}

// stubFeedRepo はテスト用のFeedRepositoryモック。
type stubFeedRepo struct {
	byID  map[string]*model.Feed
	byURL map[string]*model.Feed
	err   error
}

func newStubFeedRepo() *stubFeedRepo {
	return &stubFeedRepo{
		byID:  make(map[string]*model.Feed),
		byURL: make(map[string]*model.Feed),
	}
}

func (s *stubFeedRepo) add(feed *model.Feed) {
	s.byID[feed.ID] = feed
	s.byURL[feed.URL] = feed
}

func (s *stubFeedRepo) FindByID(_ context.Context, id string) (*model.Feed, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byID[id], nil
}

func (s *stubFeedRepo) FindByURL(_ context.Context, url string) (*model.Feed, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byURL[url], nil
}

func (s *stubFeedRepo) Create(_ context.Context, feed *model.Feed) error {
	s.add(feed)
	return nil
}

func (s *stubFeedRepo) ListAll(_ context.Context) ([]*model.Feed, error) {
	var feeds []*model.Feed
	for _, f := range s.byID {
		feeds = append(feeds, f)
	}
	return feeds, nil
}

func (s *stubFeedRepo) ListByUser(_ context.Context, _ string) ([]*model.Feed, error) {
	return nil, nil
}

// --- Resolver テスト ---

// TestResolver_Resolve_InvalidURL は不正URLがネットワークアクセスなしで
// 拒否されることをテストする。
func TestResolver_Resolve_InvalidURL(t *testing.T) {
	inputs := []string{
		"",
		"ftp://example.com/feed.xml",
		"javascript:alert(1)",
		"http://",
		"相対パスのようなもの",
	}

	for _, input := range inputs {
		fetcher := newStubFetcher()
		resolver := NewResolver(newStubFeedRepo(), fetcher, NewParser())

		_, err := resolver.Resolve(context.Background(), input)
		if err == nil {
			t.Errorf("%q: エラーになるべき", input)
			continue
		}
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidURL {
			t.Errorf("%q: err = %v, want INVALID_URL", input, err)
		}
		if fetcher.fetchCalls != 0 {
			t.Errorf("%q: 不正URLではフェッチャーが呼ばれないべき。calls = %d", input, fetcher.fetchCalls)
		}
	}
}

// TestResolver_Resolve_ExistingFeed は登録済みURLがフェッチなしで
// ショートサーキットされることをテストする。
func TestResolver_Resolve_ExistingFeed(t *testing.T) {
	feedRepo := newStubFeedRepo()
	existing := &model.Feed{ID: "feed-1", URL: "https://example.com/feed.xml", Title: "既存"}
	feedRepo.add(existing)

	fetcher := newStubFetcher()
	resolver := NewResolver(feedRepo, fetcher, NewParser())

	resolution, err := resolver.Resolve(context.Background(), "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolution.Status != StatusExistingFeed {
		t.Errorf("resolution.Status = %q, want %q", resolution.Status, StatusExistingFeed)
	}
	if resolution.Feed == nil || resolution.Feed.ID != "feed-1" {
		t.Error("登録済みフィードが返されるべき")
	}
	if fetcher.fetchCalls != 0 {
		t.Errorf("登録済みURLではフェッチャーが呼ばれないべき。calls = %d", fetcher.fetchCalls)
	}
}

// TestResolver_Resolve_DirectFeedDocument はフィードドキュメントへの直接URLが
// 新規フィードとして解決されることをテストする。
func TestResolver_Resolve_DirectFeedDocument(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.setFeed("https://example.com/feed.xml", rssSample)

	resolver := NewResolver(newStubFeedRepo(), fetcher, NewParser())

	resolution, err := resolver.Resolve(context.Background(), "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolution.Status != StatusNewFeed {
		t.Fatalf("resolution.Status = %q, want %q", resolution.Status, StatusNewFeed)
	}
	if resolution.FeedURL != "https://example.com/feed.xml" {
		t.Errorf("resolution.FeedURL = %q, want %q", resolution.FeedURL, "https://example.com/feed.xml")
	}
	if resolution.Parsed == nil || resolution.Parsed.Title != "テストブログ" {
		t.Error("パース済み要約が返されるべき")
	}
}

// TestResolver_Resolve_FetchFailure はフェッチ失敗が解決不能（エラーではない）として
// 返ることをテストする。
func TestResolver_Resolve_FetchFailure(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.errs["https://example.com/feed.xml"] = model.NewFetchFailedError("https://example.com/feed.xml")

	resolver := NewResolver(newStubFeedRepo(), fetcher, NewParser())

	resolution, err := resolver.Resolve(context.Background(), "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("フェッチ失敗はerrorではなくResolutionで返すべき: %v", err)
	}
	if resolution.Status != StatusUnresolvable {
		t.Fatalf("resolution.Status = %q, want %q", resolution.Status, StatusUnresolvable)
	}
	if resolution.Cause == nil || resolution.Cause.Code != model.ErrCodeFetchFailed {
		t.Errorf("resolution.Cause = %v, want FETCH_FAILED", resolution.Cause)
	}
}

// TestResolver_Resolve_ParseFailure は非HTMLかつ非フィードのボディが
// 解決不能になることをテストする。
func TestResolver_Resolve_ParseFailure(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.results["https://example.com/data.json"] = &FetchResult{
		StatusCode:  200,
		ContentType: "application/json",
		Body:        []byte(`{"not": "a feed"}`),
	}

	resolver := NewResolver(newStubFeedRepo(), fetcher, NewParser())

	resolution, err := resolver.Resolve(context.Background(), "https://example.com/data.json")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolution.Status != StatusUnresolvable {
		t.Fatalf("resolution.Status = %q, want %q", resolution.Status, StatusUnresolvable)
	}
	if resolution.Cause == nil || resolution.Cause.Code != model.ErrCodeParseFailed {
		t.Errorf("resolution.Cause = %v, want PARSE_FAILED", resolution.Cause)
	}
}

// TestResolver_Resolve_HTMLNoFeeds はフィードリンク0件のHTMLが
// NO_FEEDS_FOUNDになることをテストする。
func TestResolver_Resolve_HTMLNoFeeds(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.setHTML("https://example.com/", `<html><head></head><body>リンクなし</body></html>`)

	resolver := NewResolver(newStubFeedRepo(), fetcher, NewParser())

	resolution, err := resolver.Resolve(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolution.Status != StatusUnresolvable {
		t.Fatalf("resolution.Status = %q, want %q", resolution.Status, StatusUnresolvable)
	}
	if resolution.Cause == nil || resolution.Cause.Code != model.ErrCodeNoFeedsFound {
		t.Errorf("resolution.Cause = %v, want NO_FEEDS_FOUND", resolution.Cause)
	}
}

// TestResolver_Resolve_HTMLSingleLink はフィードリンク1件のHTMLが
// そのURLのフィードとして解決されることをテストする。
func TestResolver_Resolve_HTMLSingleLink(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.setHTML("https://example.com/", `<html><head>
<link rel="alternate" type="application/rss+xml" href="/feed.xml">
</head></html>`)
	fetcher.setFeed("https://example.com/feed.xml", rssSample)

	resolver := NewResolver(newStubFeedRepo(), fetcher, NewParser())

	resolution, err := resolver.Resolve(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolution.Status != StatusNewFeed {
		t.Fatalf("resolution.Status = %q, want %q", resolution.Status, StatusNewFeed)
	}
	// フィードURLは入力URLではなく検出されたリンクのURL
	if resolution.FeedURL != "https://example.com/feed.xml" {
		t.Errorf("resolution.FeedURL = %q, want %q", resolution.FeedURL, "https://example.com/feed.xml")
	}
	if fetcher.fetchCalls != 2 {
		t.Errorf("fetchCalls = %d, want 2（ページ + フィード）", fetcher.fetchCalls)
	}
}

// TestResolver_Resolve_HTMLSingleLink_ExistingFeed は検出された唯一の候補URLが
// 登録済みの場合に既存フィードへショートサーキットすることをテストする。
func TestResolver_Resolve_HTMLSingleLink_ExistingFeed(t *testing.T) {
	feedRepo := newStubFeedRepo()
	existing := &model.Feed{ID: "feed-1", URL: "https://example.com/feed.xml"}
	feedRepo.add(existing)

	fetcher := newStubFetcher()
	fetcher.setHTML("https://example.com/", `<html><head>
<link type="application/rss+xml" href="https://example.com/feed.xml">
</head></html>`)

	resolver := NewResolver(feedRepo, fetcher, NewParser())

	resolution, err := resolver.Resolve(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolution.Status != StatusExistingFeed {
		t.Fatalf("resolution.Status = %q, want %q", resolution.Status, StatusExistingFeed)
	}
	if fetcher.fetchCalls != 1 {
		t.Errorf("fetchCalls = %d, want 1（候補URLはフェッチしない）", fetcher.fetchCalls)
	}
}

// TestResolver_Resolve_HTMLMultipleLinks はフィードリンク2件以上のHTMLが
// 要選択（ドキュメント順の候補付き）になることをテストする。
func TestResolver_Resolve_HTMLMultipleLinks(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.setHTML("https://example.com/", `<html><head>
<link type="application/rss+xml" href="/rss.xml" title="RSS">
<link type="application/atom+xml" href="/atom.xml" title="Atom">
</head></html>`)

	resolver := NewResolver(newStubFeedRepo(), fetcher, NewParser())

	resolution, err := resolver.Resolve(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolution.Status != StatusAmbiguous {
		t.Fatalf("resolution.Status = %q, want %q", resolution.Status, StatusAmbiguous)
	}
	if len(resolution.Options) != 2 {
		t.Fatalf("len(resolution.Options) = %d, want 2", len(resolution.Options))
	}
	if resolution.Options[0].URL != "https://example.com/rss.xml" {
		t.Errorf("候補はドキュメント順であるべき。Options[0].URL = %q", resolution.Options[0].URL)
	}
	// 候補提示の時点では追加フェッチを行わない
	if fetcher.fetchCalls != 1 {
		t.Errorf("fetchCalls = %d, want 1", fetcher.fetchCalls)
	}
}

// TestResolver_Resolve_RepositoryError はリポジトリ障害がerrorとして
// 伝播することをテストする。
func TestResolver_Resolve_RepositoryError(t *testing.T) {
	feedRepo := newStubFeedRepo()
	feedRepo.err = errors.New("接続が切断されました")

	resolver := NewResolver(feedRepo, newStubFetcher(), NewParser())

	_, err := resolver.Resolve(context.Background(), "https://example.com/feed.xml")
	if err == nil {
		t.Fatal("リポジトリ障害はerrorとして返すべき")
	}
}

// TestResolver_Resolve_SingleOptionFetchFailure は唯一の候補のフェッチ失敗が
// 解決不能になることをテストする。
func TestResolver_Resolve_SingleOptionFetchFailure(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.setHTML("https://example.com/", `<html><head>
<link type="application/rss+xml" href="/dead.xml">
</head></html>`)
	fetcher.errs["https://example.com/dead.xml"] = model.NewFetchFailedError("https://example.com/dead.xml")

	resolver := NewResolver(newStubFeedRepo(), fetcher, NewParser())

	resolution, err := resolver.Resolve(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolution.Status != StatusUnresolvable {
		t.Fatalf("resolution.Status = %q, want %q", resolution.Status, StatusUnresolvable)
	}
	if resolution.Cause == nil || resolution.Cause.Code != model.ErrCodeFetchFailed {
		t.Errorf("resolution.Cause = %v, want FETCH_FAILED", resolution.Cause)
	}
}

// TestResolver_Resolve_SSRFBlockedPropagates はSSRF防止で拒否されたURLが
// 解決不能のResolutionとして原因付きで返ることをテストする。
func TestResolver_Resolve_SSRFBlockedPropagates(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.errs["http://10.0.0.5/feed.xml"] = model.NewSSRFBlockedError()

	resolver := NewResolver(newStubFeedRepo(), fetcher, NewParser())

	resolution, err := resolver.Resolve(context.Background(), "http://10.0.0.5/feed.xml")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolution.Status != StatusUnresolvable {
		t.Fatalf("resolution.Status = %q, want %q", resolution.Status, StatusUnresolvable)
	}
	if resolution.Cause == nil || resolution.Cause.Code != model.ErrCodeSSRFBlocked {
		t.Errorf("resolution.Cause = %v, want SSRF_BLOCKED", resolution.Cause)
	}
}
