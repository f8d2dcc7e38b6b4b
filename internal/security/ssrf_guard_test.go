package security

import (
	"testing"
	"time"
)

// インターフェース実装の検証
var _ SSRFGuardService = (*ssrfGuard)(nil)

// TestSSRFGuard_ValidateURL_Allowed は公開URLが許可されることをテストする。
func TestSSRFGuard_ValidateURL_Allowed(t *testing.T) {
	guard := NewSSRFGuard()

	allowed := []string{
		"https://example.com/feed.xml",
		"http://blog.example.co.jp/rss",
		"https://93.184.216.34/feed.xml",
	}
	for _, rawURL := range allowed {
		if err := guard.ValidateURL(rawURL); err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", rawURL, err)
		}
	}
}

// TestSSRFGuard_ValidateURL_BlockedScheme はhttp/https以外のスキームが
// 拒否されることをテストする。
func TestSSRFGuard_ValidateURL_BlockedScheme(t *testing.T) {
	guard := NewSSRFGuard()

	blocked := []string{
		"ftp://example.com/feed.xml",
		"file:///etc/passwd",
		"javascript:alert(1)",
		"gopher://example.com/",
	}
	for _, rawURL := range blocked {
		if err := guard.ValidateURL(rawURL); err == nil {
			t.Errorf("ValidateURL(%q)は拒否されるべき", rawURL)
		}
	}
}

// TestSSRFGuard_ValidateURL_BlockedIP はプライベートIP、ループバック、
// メタデータIPが拒否されることをテストする。
func TestSSRFGuard_ValidateURL_BlockedIP(t *testing.T) {
	guard := NewSSRFGuard()

	blocked := []string{
		"http://127.0.0.1/feed.xml",
		"http://10.0.0.5/feed.xml",
		"http://172.16.0.1/feed.xml",
		"http://192.168.1.1/feed.xml",
		"http://169.254.169.254/latest/meta-data/",
		"http://0.0.0.0/feed.xml",
		"http://[::1]/feed.xml",
	}
	for _, rawURL := range blocked {
		if err := guard.ValidateURL(rawURL); err == nil {
			t.Errorf("ValidateURL(%q)は拒否されるべき", rawURL)
		}
	}
}

// TestSSRFGuard_ValidateURL_BlockedHostname は危険なホスト名が
// 拒否されることをテストする。
func TestSSRFGuard_ValidateURL_BlockedHostname(t *testing.T) {
	guard := NewSSRFGuard()

	if err := guard.ValidateURL("http://localhost:8080/feed.xml"); err == nil {
		t.Error("localhostは拒否されるべき")
	}
	if err := guard.ValidateURL("http://LOCALHOST/feed.xml"); err == nil {
		t.Error("大文字のlocalhostも拒否されるべき")
	}
}

// TestSSRFGuard_ValidateURL_Malformed は不正なURLが拒否されることをテストする。
func TestSSRFGuard_ValidateURL_Malformed(t *testing.T) {
	guard := NewSSRFGuard()

	malformed := []string{
		"",
		"http://",
		"://missing-scheme",
	}
	for _, rawURL := range malformed {
		if err := guard.ValidateURL(rawURL); err == nil {
			t.Errorf("ValidateURL(%q)は拒否されるべき", rawURL)
		}
	}
}

// TestSSRFGuard_NewSafeClient はクライアント生成時の設定をテストする。
func TestSSRFGuard_NewSafeClient(t *testing.T) {
	guard := NewSSRFGuard()

	client := guard.NewSafeClient(10*time.Second, 5)
	if client == nil {
		t.Fatal("クライアントが生成されるべき")
	}
	if client.CheckRedirect == nil {
		t.Error("リダイレクト上限が設定されるべき")
	}
}
