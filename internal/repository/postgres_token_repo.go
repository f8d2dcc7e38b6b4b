package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/feedline/internal/model"
)

// PostgresAuthTokenRepo はPostgreSQLを使用した認証トークンリポジトリ。
type PostgresAuthTokenRepo struct {
	db *sql.DB
}

// NewPostgresAuthTokenRepo はPostgresAuthTokenRepoを生成する。
func NewPostgresAuthTokenRepo(db *sql.DB) *PostgresAuthTokenRepo {
	return &PostgresAuthTokenRepo{db: db}
}

// Create はトークンを作成する。
func (r *PostgresAuthTokenRepo) Create(ctx context.Context, token *model.AuthToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_tokens (id, user_id, token, kind, expire_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		token.ID, token.UserID, token.Token, token.Kind, token.ExpireAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("トークンの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByToken はトークン文字列でトークンを検索する。見つからない場合はnilを返す。
func (r *PostgresAuthTokenRepo) FindByToken(ctx context.Context, tokenStr string) (*model.AuthToken, error) {
	token := &model.AuthToken{}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token, kind, expire_at, created_at
		 FROM auth_tokens WHERE token = $1`,
		tokenStr,
	).Scan(&token.ID, &token.UserID, &token.Token, &token.Kind, &token.ExpireAt, &token.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("トークンの検索に失敗しました: %w", err)
	}

	return token, nil
}

// DeleteByToken はトークン文字列でトークンを削除する。
func (r *PostgresAuthTokenRepo) DeleteByToken(ctx context.Context, tokenStr string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM auth_tokens WHERE token = $1`,
		tokenStr,
	)
	if err != nil {
		return fmt.Errorf("トークンの削除に失敗しました: %w", err)
	}
	return nil
}

// DeleteExpired は指定時刻より前に期限切れとなったトークンを削除し、削除件数を返す。
func (r *PostgresAuthTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM auth_tokens WHERE expire_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("期限切れトークンの削除に失敗しました: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return count, nil
}
