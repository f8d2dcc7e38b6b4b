package ingest

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/hitoshi/feedline/internal/model"
	"golang.org/x/net/html"
)

// feedLinkTypes はフィード候補として認識するlink要素のtype属性値。
var feedLinkTypes = map[string]bool{
	"application/rss+xml":  true,
	"application/atom+xml": true,
}

// FindFeedsInHTML はHTMLドキュメントからRSS/Atomフィードリンクを検出する。
// type属性がapplication/rss+xmlまたはapplication/atom+xmlのlink要素すべてを対象とし、
// 相対hrefはbaseURLを基準に絶対URLへ解決する。
// 壊れたHTMLも許容し、パース失敗による失敗経路は持たない（候補なしは空スライス）。
// 出力はドキュメント順で、重複排除は行わない。
func FindFeedsInHTML(baseURL string, body []byte) []model.FeedOption {
	var options []model.FeedOption

	baseU, err := url.Parse(baseURL)
	if err != nil {
		return options
	}

	tokenizer := html.NewTokenizer(bytes.NewReader(body))

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			// EOFまたは回復不能なトークンエラーで走査終了
			return options

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			if string(tn) != "link" || !hasAttr {
				continue
			}

			var linkType, href string
			var title *string
			for {
				key, val, more := tokenizer.TagAttr()
				switch strings.ToLower(string(key)) {
				case "type":
					linkType = strings.ToLower(string(val))
				case "href":
					href = string(val)
				case "title":
					// title属性の有無を保持する（欠落はJSONのnullになる）
					v := string(val)
					title = &v
				}
				if !more {
					break
				}
			}

			if !feedLinkTypes[linkType] {
				continue
			}

			// href欠落の候補は黙ってスキップする
			if href == "" {
				continue
			}

			resolved := resolveAgainstBase(baseU, href)
			if resolved == "" {
				continue
			}

			options = append(options, model.FeedOption{
				Title: title,
				URL:   resolved,
			})
		}
	}
}

// resolveAgainstBase は相対参照をベースURLを基準に絶対URLへ解決する。
// ルート相対（/x）だけでなく ./x や ../x も含めRFC 3986の解決規則に従う。
func resolveAgainstBase(base *url.URL, rawRef string) string {
	ref, err := url.Parse(rawRef)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
