// Package ingest はフィード取り込みのコアロジックを提供する。
// ドキュメント取得、HTMLからのフィードリンク検出、RSS/Atomパース、
// フィード解決、記事リコンサイルを含む。
package ingest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/feedline/internal/model"
	"github.com/hitoshi/feedline/internal/security"
)

// FetchResult はHTTPフェッチの成功結果を表す。
// ステータスが200以外の場合、結果は生成されずエラーになる。
type FetchResult struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// DocumentFetcher はドキュメント取得のインターフェース。
// テスタビリティのためFetcherを抽象化する。
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// Fetcher はSSRF防止付きのHTTPドキュメント取得を行う。
// タイムアウト・リダイレクト回数・レスポンスサイズに上限を持つ。
// ネットワークエラー・タイムアウト・リダイレクト超過・非200ステータスは
// すべて単一のFETCH_FAILEDに集約され、呼び出し側は原因を区別できない。
type Fetcher struct {
	ssrfGuard    security.SSRFGuardService
	timeout      time.Duration
	maxRedirects int
	maxBodySize  int64
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
// timeoutが0以下の場合は10秒、maxRedirectsが0以下の場合は5回、
// maxBodySizeが0以下の場合は5MiBを使用する。
func NewFetcher(ssrfGuard security.SSRFGuardService, timeout time.Duration, maxRedirects int, maxBodySize int64) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxRedirects <= 0 {
		maxRedirects = 5
	}
	if maxBodySize <= 0 {
		maxBodySize = 5 * 1024 * 1024
	}
	return &Fetcher{
		ssrfGuard:    ssrfGuard,
		timeout:      timeout,
		maxRedirects: maxRedirects,
		maxBodySize:  maxBodySize,
	}
}

// Fetch はURLをGETし、最終ステータスが200の場合のみ結果を返す。
// リクエスト送信前にSSRF防止の静的検証を行い、拒否されたURLには
// ネットワークアクセスを一切行わずSSRF_BLOCKEDを返す。
// リトライは行わない。それ以外の失敗はすべてFETCH_FAILEDとして返す。
func (f *Fetcher) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	if f.ssrfGuard != nil {
		if err := f.ssrfGuard.ValidateURL(url); err != nil {
			slog.Warn("SSRF防止によりURLを拒否しました",
				slog.String("url", url),
				slog.String("error", err.Error()),
			)
			return nil, model.NewSSRFBlockedError()
		}
	}

	client := f.httpClient()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, model.NewInvalidURLError(err.Error())
	}
	req.Header.Set("User-Agent", "Feedline/1.0 RSS Reader")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html, */*")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("HTTPリクエストに失敗しました",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		return nil, model.NewFetchFailedError(url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("非200ステータスを受信しました",
			slog.String("url", url),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, model.NewFetchFailedError(url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		slog.Warn("レスポンスボディの読み取りに失敗しました",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		return nil, model.NewFetchFailedError(url)
	}

	return &FetchResult{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// httpClient はHTTPクライアントを取得する。
// SSRFGuardが設定されている場合はSSRF防止付きクライアントを返す。
func (f *Fetcher) httpClient() *http.Client {
	if f.ssrfGuard != nil {
		return f.ssrfGuard.NewSafeClient(f.timeout, f.maxRedirects)
	}
	client := &http.Client{Timeout: f.timeout}
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= f.maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}
	return client
}
