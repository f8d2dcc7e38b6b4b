package ingest

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/hitoshi/feedline/internal/model"
	"github.com/hitoshi/feedline/internal/repository"
)

// ResolutionStatus はフィード解決の終端状態を表す。
// 4つの終端状態を網羅的に扱えるよう明示的なタグ付きユニオンとする。
type ResolutionStatus string

const (
	// StatusExistingFeed はURLが登録済みフィードに完全一致した状態。
	StatusExistingFeed ResolutionStatus = "existing_feed"
	// StatusNewFeed はURLがパース可能なフィードドキュメントに解決された状態。
	StatusNewFeed ResolutionStatus = "new_feed"
	// StatusAmbiguous はHTMLページが2件以上のフィードリンクを持ち、
	// 呼び出し側の選択が必要な状態。エラーではない。
	StatusAmbiguous ResolutionStatus = "ambiguous"
	// StatusUnresolvable はフェッチ失敗・パース失敗・フィードリンク0件の
	// いずれかによる解決不能状態。
	StatusUnresolvable ResolutionStatus = "unresolvable"
)

// Resolution はフィード解決の結果を表すタグ付きユニオン。
// Statusに応じて有効なフィールドが決まる:
//   - StatusExistingFeed: Feed
//   - StatusNewFeed: Parsed, FeedURL
//   - StatusAmbiguous: Options
//   - StatusUnresolvable: Cause
type Resolution struct {
	Status  ResolutionStatus
	Feed    *model.Feed
	Parsed  *model.ParsedFeed
	FeedURL string
	Options []model.FeedOption
	Cause   *model.APIError
}

// Resolver はユーザー入力URLからフィードを解決するオーケストレーター。
// フェッチャー → ディスカバラー → パーサーの順に駆動する小さな状態機械で、
// すべての失敗経路はその呼び出し限りの終端となる（リトライしない）。
type Resolver struct {
	feedRepo repository.FeedRepository
	fetcher  DocumentFetcher
	parser   FeedParser
}

// NewResolver はResolverの新しいインスタンスを生成する。
func NewResolver(feedRepo repository.FeedRepository, fetcher DocumentFetcher, parser FeedParser) *Resolver {
	return &Resolver{
		feedRepo: feedRepo,
		fetcher:  fetcher,
		parser:   parser,
	}
}

// Resolve はユーザー入力URLをフィードに解決する。
// URL形式が不正な場合はネットワークアクセスを一切行わずエラーを返す。
// リポジトリアクセスの失敗はerrorとして返し、
// フェッチ・パース・検出の失敗はStatusUnresolvableのResolutionとして返す。
func (r *Resolver) Resolve(ctx context.Context, userURL string) (*Resolution, error) {
	// 1. URLバリデーション（ネットワークアクセス前）
	if err := validateURL(userURL); err != nil {
		return nil, err
	}

	// 2. 完全一致での登録済みフィード検索（ショートサーキット）
	existing, err := r.feedRepo.FindByURL(ctx, userURL)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &Resolution{Status: StatusExistingFeed, Feed: existing}, nil
	}

	// 3. フェッチ
	result, fetchErr := r.fetcher.Fetch(ctx, userURL)
	if fetchErr != nil {
		return unresolvable(fetchErr), nil
	}

	// 4. Content-Typeによる分岐
	if strings.Contains(result.ContentType, "text/html") {
		return r.resolveHTML(ctx, userURL, result.Body)
	}

	return r.resolveFeedDocument(userURL, result.Body)
}

// resolveHTML はHTMLページからフィードリンクを検出して解決する。
// 0件: 解決不能 / 1件: そのURLをフィードとして1段階のみ再解決 / 2件以上: 要選択。
func (r *Resolver) resolveHTML(ctx context.Context, pageURL string, body []byte) (*Resolution, error) {
	options := FindFeedsInHTML(pageURL, body)

	switch len(options) {
	case 0:
		return unresolvable(model.NewNoFeedsFoundError(pageURL)), nil

	case 1:
		return r.resolveSingleOption(ctx, options[0])

	default:
		slog.Info("複数のフィード候補を検出しました",
			slog.String("page_url", pageURL),
			slog.Int("option_count", len(options)),
		)
		return &Resolution{Status: StatusAmbiguous, Options: options}, nil
	}
}

// resolveSingleOption は唯一のフィード候補URLをフィードとして解決する。
// 候補URLはHTMLとして再解析しない（再帰は1段階のみ）。
func (r *Resolver) resolveSingleOption(ctx context.Context, option model.FeedOption) (*Resolution, error) {
	// 検出されたURLが登録済みの場合もショートサーキットする
	existing, err := r.feedRepo.FindByURL(ctx, option.URL)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &Resolution{Status: StatusExistingFeed, Feed: existing}, nil
	}

	result, fetchErr := r.fetcher.Fetch(ctx, option.URL)
	if fetchErr != nil {
		return unresolvable(fetchErr), nil
	}

	return r.resolveFeedDocument(option.URL, result.Body)
}

// resolveFeedDocument はボディをフィードドキュメントとしてパースする。
func (r *Resolver) resolveFeedDocument(feedURL string, body []byte) (*Resolution, error) {
	parsed, err := r.parser.ParseSummary(body)
	if err != nil {
		return unresolvable(err), nil
	}

	return &Resolution{
		Status:  StatusNewFeed,
		Parsed:  parsed,
		FeedURL: feedURL,
	}, nil
}

// unresolvable は失敗原因付きの解決不能Resolutionを構築する。
// 原因がAPIErrorでない場合はFETCH_FAILEDに正規化する。
func unresolvable(err error) *Resolution {
	apiErr, ok := err.(*model.APIError)
	if !ok {
		apiErr = model.NewFetchFailedError("")
	}
	return &Resolution{Status: StatusUnresolvable, Cause: apiErr}
}

// validateURL はユーザー入力URLの形式を検証する。
// http/httpsスキームと非空ホストを必須とする。
func validateURL(rawURL string) error {
	if rawURL == "" {
		return model.NewInvalidURLError("URLが空です")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return model.NewInvalidURLError(err.Error())
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return model.NewInvalidURLError("スキームは http または https のみ使用できます")
	}

	if u.Host == "" {
		return model.NewInvalidURLError("ホストが含まれていません")
	}

	return nil
}
