package security

import (
	"strings"
	"testing"
)

// インターフェース実装の検証
var _ ContentSanitizerService = (*contentSanitizer)(nil)

// TestContentSanitizer_RemovesScript はscriptタグが除去されることをテストする。
func TestContentSanitizer_RemovesScript(t *testing.T) {
	s := NewContentSanitizer()

	out := s.Sanitize(`<p>概要テキスト</p><script>alert("XSS")</script>`)
	if strings.Contains(out, "<script>") {
		t.Errorf("scriptタグは除去されるべき: %q", out)
	}
	if !strings.Contains(out, "概要テキスト") {
		t.Errorf("本文は保持されるべき: %q", out)
	}
}

// TestContentSanitizer_RemovesEventAttributes はon*イベント属性が
// 除去されることをテストする。
func TestContentSanitizer_RemovesEventAttributes(t *testing.T) {
	s := NewContentSanitizer()

	out := s.Sanitize(`<p onclick="alert(1)">テキスト</p>`)
	if strings.Contains(out, "onclick") {
		t.Errorf("イベント属性は除去されるべき: %q", out)
	}
}

// TestContentSanitizer_AllowsSafeTags は許可タグが保持されることをテストする。
func TestContentSanitizer_AllowsSafeTags(t *testing.T) {
	s := NewContentSanitizer()

	input := `<p><strong>重要</strong>と<em>強調</em></p><ul><li>項目</li></ul><pre><code>x := 1</code></pre>`
	out := s.Sanitize(input)
	for _, tag := range []string{"<p>", "<strong>", "<em>", "<ul>", "<li>", "<pre>", "<code>"} {
		if !strings.Contains(out, tag) {
			t.Errorf("%sは保持されるべき: %q", tag, out)
		}
	}
}

// TestContentSanitizer_RemovesIframe はiframeとstyleが除去されることをテストする。
func TestContentSanitizer_RemovesIframe(t *testing.T) {
	s := NewContentSanitizer()

	out := s.Sanitize(`<iframe src="https://evil.example.com"></iframe><style>body{display:none}</style><p>本文</p>`)
	if strings.Contains(out, "iframe") || strings.Contains(out, "<style>") {
		t.Errorf("iframeとstyleは除去されるべき: %q", out)
	}
}

// TestContentSanitizer_LinkAttributes はaタグにrel属性が付与されることをテストする。
func TestContentSanitizer_LinkAttributes(t *testing.T) {
	s := NewContentSanitizer()

	out := s.Sanitize(`<a href="https://example.com/posts/1">記事</a>`)
	if !strings.Contains(out, `href="https://example.com/posts/1"`) {
		t.Errorf("完全修飾URLのhrefは保持されるべき: %q", out)
	}
	if !strings.Contains(out, "noopener") || !strings.Contains(out, "noreferrer") {
		t.Errorf("relにnoopener noreferrerが付与されるべき: %q", out)
	}
}

// TestContentSanitizer_Empty は空文字列の入力が空文字列を返すことをテストする。
func TestContentSanitizer_Empty(t *testing.T) {
	s := NewContentSanitizer()

	if out := s.Sanitize(""); out != "" {
		t.Errorf("Sanitize(\"\") = %q, want \"\"", out)
	}
}

// TestContentSanitizer_Idempotent は同一入力に対して常に同一出力を
// 返すことをテストする。
func TestContentSanitizer_Idempotent(t *testing.T) {
	s := NewContentSanitizer()

	input := `<p>概要<script>alert(1)</script></p>`
	first := s.Sanitize(input)
	second := s.Sanitize(first)
	if first != second {
		t.Errorf("サニタイズは冪等であるべき: %q != %q", first, second)
	}
}
