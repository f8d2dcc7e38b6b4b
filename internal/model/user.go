// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TokenKind は認証トークンの種類を表す。
type TokenKind string

const (
	// TokenKindRegular はAPIアクセス用の通常トークン。
	TokenKindRegular TokenKind = "regular"
	// TokenKindRefresh はトークン再発行用のリフレッシュトークン。
	TokenKindRefresh TokenKind = "refresh"
)

// AuthToken はBearer認証に使用するトークンを表す。
// regular/refreshのペアで発行され、expire_atを過ぎたトークンは無効。
type AuthToken struct {
	ID        string
	UserID    string
	Token     string
	Kind      TokenKind
	ExpireAt  time.Time
	CreatedAt time.Time
}

// IsExpired はトークンが期限切れかどうかを返す。
func (t *AuthToken) IsExpired(now time.Time) bool {
	return t.ExpireAt.Before(now)
}
