// Package auth はユーザー登録、ログイン、トークン管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/feedline/internal/model"
	"github.com/hitoshi/feedline/internal/repository"
)

// emailPattern はメールアドレスの形式チェック。厳密なRFC検証は行わない。
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// passwordMinLength はパスワードの最小文字数。
const passwordMinLength = 8

// TokenPair はregular/refreshトークンのペアを表す。
type TokenPair struct {
	Token        string
	RefreshToken string
	ExpireAt     time.Time
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	RegularTTL time.Duration // 通常トークンの有効期間
	RefreshTTL time.Duration // リフレッシュトークンの有効期間
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo  repository.UserRepository
	tokenRepo repository.AuthTokenRepository
	config    ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	tokenRepo repository.AuthTokenRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		config:    config,
	}
}

// Signup は新規ユーザーを登録する。
// メールアドレスの形式とパスワードの長さを検証し、重複登録を拒否する。
func (s *Service) Signup(ctx context.Context, email, password string) (*model.User, error) {
	if !emailPattern.MatchString(email) {
		return nil, model.NewInvalidEmailError()
	}
	if len(password) < passwordMinLength {
		return nil, model.NewInvalidPasswordError(passwordMinLength)
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailTakenError()
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("新規ユーザーを登録しました", slog.String("user_id", user.ID))
	return user, nil
}

// Login はメールアドレスとパスワードで認証し、トークンペアを発行する。
// 未登録メールアドレスとパスワード不一致は同一のエラーとして扱う。
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil || !ComparePassword(user.PasswordHash, password) {
		return nil, model.NewInvalidLoginError()
	}

	pair, err := s.issueTokenPair(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("ユーザーがログインしました", slog.String("user_id", user.ID))
	return pair, nil
}

// Refresh はリフレッシュトークンを検証し、新しいトークンペアを発行する。
// 使用されたリフレッシュトークンは削除され、再利用できない（ローテーション）。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.tokenRepo.FindByToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("トークンの検索に失敗しました: %w", err)
	}
	if token == nil || token.Kind != model.TokenKindRefresh || token.IsExpired(time.Now()) {
		return nil, model.NewInvalidTokenError()
	}

	// ユーザー行が削除済みの孤立トークンには新しいペアを発行しない
	user, err := s.userRepo.FindByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if err := s.tokenRepo.DeleteByToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("トークンの削除に失敗しました: %w", err)
	}

	return s.issueTokenPair(ctx, token.UserID)
}

// Authenticate は通常トークンを検証し、ユーザーIDを返す。
// 認証ミドルウェアから呼び出される。
func (s *Service) Authenticate(ctx context.Context, tokenStr string) (string, error) {
	token, err := s.tokenRepo.FindByToken(ctx, tokenStr)
	if err != nil {
		return "", fmt.Errorf("トークンの検索に失敗しました: %w", err)
	}
	if token == nil || token.Kind != model.TokenKindRegular || token.IsExpired(time.Now()) {
		return "", model.NewInvalidTokenError()
	}
	return token.UserID, nil
}

// CleanupExpiredTokens は期限切れトークンを削除し、削除件数を返す。
func (s *Service) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	deleted, err := s.tokenRepo.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("期限切れトークンの削除に失敗しました: %w", err)
	}
	if deleted > 0 {
		slog.Info("期限切れトークンを削除しました", slog.Int64("deleted", deleted))
	}
	return deleted, nil
}

// issueTokenPair はregular/refreshトークンのペアを発行して永続化する。
func (s *Service) issueTokenPair(ctx context.Context, userID string) (*TokenPair, error) {
	now := time.Now()

	regular, err := s.createToken(ctx, userID, model.TokenKindRegular, now.Add(s.config.RegularTTL))
	if err != nil {
		return nil, err
	}
	refresh, err := s.createToken(ctx, userID, model.TokenKindRefresh, now.Add(s.config.RefreshTTL))
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		Token:        regular.Token,
		RefreshToken: refresh.Token,
		ExpireAt:     regular.ExpireAt,
	}, nil
}

// createToken はトークンを生成して永続化する。
func (s *Service) createToken(ctx context.Context, userID string, kind model.TokenKind, expireAt time.Time) (*model.AuthToken, error) {
	value, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("トークンの生成に失敗しました: %w", err)
	}

	token := &model.AuthToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     value,
		Kind:      kind,
		ExpireAt:  expireAt,
		CreatedAt: time.Now(),
	}

	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("トークンの保存に失敗しました: %w", err)
	}

	return token, nil
}

// generateToken は暗号的に安全なトークン文字列を生成する。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
