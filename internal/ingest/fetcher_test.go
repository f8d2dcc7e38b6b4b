package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/feedline/internal/model"
	"github.com/hitoshi/feedline/internal/security"
)

// newTestFetcher はSSRFガードなしのテスト用Fetcherを生成する。
// httptestサーバーはループバックアドレスのため、ガードは無効にする。
func newTestFetcher(timeout time.Duration, maxRedirects int, maxBodySize int64) *Fetcher {
	return NewFetcher(nil, timeout, maxRedirects, maxBodySize)
}

// TestFetcher_Fetch_Success は200レスポンスのフェッチ成功をテストする。
func TestFetcher_Fetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, "<rss></rss>")
	}))
	defer server.Close()

	f := newTestFetcher(5*time.Second, 5, 0)

	result, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("result.StatusCode = %d, want 200", result.StatusCode)
	}
	if !strings.Contains(result.ContentType, "application/rss+xml") {
		t.Errorf("result.ContentType = %q, want rss content type", result.ContentType)
	}
	if string(result.Body) != "<rss></rss>" {
		t.Errorf("result.Body = %q, want %q", result.Body, "<rss></rss>")
	}
}

// TestFetcher_Fetch_SetsUserAgent はUser-Agentヘッダーが設定されることをテストする。
func TestFetcher_Fetch_SetsUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	f := newTestFetcher(5*time.Second, 5, 0)

	if _, err := f.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !strings.Contains(gotUA, "Feedline") {
		t.Errorf("User-Agent = %q, want Feedline identifier", gotUA)
	}
}

// TestFetcher_Fetch_Non200Status は非200ステータスがFETCH_FAILEDになることをテストする。
// 404・500・304はいずれも同一のエラーコードに集約される。
func TestFetcher_Fetch_Non200Status(t *testing.T) {
	statuses := []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusNotModified}

	for _, status := range statuses {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		f := newTestFetcher(5*time.Second, 5, 0)
		_, err := f.Fetch(context.Background(), server.URL)
		server.Close()

		if err == nil {
			t.Errorf("status %d: エラーになるべき", status)
			continue
		}
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeFetchFailed {
			t.Errorf("status %d: err = %v, want FETCH_FAILED", status, err)
		}
	}
}

// TestFetcher_Fetch_Timeout はタイムアウトがFETCH_FAILEDになることをテストする。
func TestFetcher_Fetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	f := newTestFetcher(50*time.Millisecond, 5, 0)

	_, err := f.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("タイムアウトはエラーになるべき")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeFetchFailed {
		t.Errorf("err = %v, want FETCH_FAILED", err)
	}
}

// TestFetcher_Fetch_BodySizeLimit はレスポンスボディが上限で打ち切られることをテストする。
func TestFetcher_Fetch_BodySizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Repeat("a", 1024))
	}))
	defer server.Close()

	f := newTestFetcher(5*time.Second, 5, 100)

	result, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(result.Body) != 100 {
		t.Errorf("len(result.Body) = %d, want 100（上限で打ち切り）", len(result.Body))
	}
}

// TestFetcher_Fetch_RedirectLimit はリダイレクト上限超過がFETCH_FAILEDになることをテストする。
func TestFetcher_Fetch_RedirectLimit(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 無限リダイレクト
		http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	f := newTestFetcher(5*time.Second, 3, 0)

	_, err := f.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("リダイレクト上限超過はエラーになるべき")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeFetchFailed {
		t.Errorf("err = %v, want FETCH_FAILED", err)
	}
}

// TestFetcher_Fetch_FollowsRedirect は上限内のリダイレクトが追従されることをテストする。
func TestFetcher_Fetch_FollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+"/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "final")
	})

	f := newTestFetcher(5*time.Second, 5, 0)

	result, err := f.Fetch(context.Background(), server.URL+"/old")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if string(result.Body) != "final" {
		t.Errorf("result.Body = %q, want %q", result.Body, "final")
	}
}

// TestFetcher_Fetch_ConnectionRefused は接続不能なホストがFETCH_FAILEDになることをテストする。
func TestFetcher_Fetch_ConnectionRefused(t *testing.T) {
	f := newTestFetcher(1*time.Second, 5, 0)

	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1")
	if err == nil {
		t.Fatal("接続エラーはエラーになるべき")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeFetchFailed {
		t.Errorf("err = %v, want FETCH_FAILED", err)
	}
}

// TestFetcher_Fetch_SSRFBlocked はガードが拒否したURLにネットワークアクセスを
// 行わずSSRF_BLOCKEDを返すことをテストする。
func TestFetcher_Fetch_SSRFBlocked(t *testing.T) {
	f := NewFetcher(security.NewSSRFGuard(), time.Second, 3, 1024)

	blocked := []string{
		"http://127.0.0.1/feed.xml",
		"http://10.0.0.5/feed.xml",
		"http://169.254.169.254/latest/meta-data/",
		"http://localhost:8080/feed.xml",
	}
	for _, rawURL := range blocked {
		_, err := f.Fetch(context.Background(), rawURL)
		if err == nil {
			t.Errorf("Fetch(%q)は拒否されるべき", rawURL)
			continue
		}
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeSSRFBlocked {
			t.Errorf("Fetch(%q): err = %v, want SSRF_BLOCKED", rawURL, err)
		}
	}
}

// TestFetcher_Fetch_GuardAllowsPublicURL はガード付きでも公開URLの検証を
// 通過することをテストする。到達不能ホストのためフェッチ自体は失敗する。
func TestFetcher_Fetch_GuardAllowsPublicURL(t *testing.T) {
	f := NewFetcher(security.NewSSRFGuard(), 100*time.Millisecond, 3, 1024)

	_, err := f.Fetch(context.Background(), "http://203.0.113.1/feed.xml")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Code == model.ErrCodeSSRFBlocked {
		t.Errorf("公開URLはSSRF検証を通過するべき: %v", err)
	}
}
