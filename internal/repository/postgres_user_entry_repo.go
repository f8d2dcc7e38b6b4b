package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/feedline/internal/model"
)

// PostgresUserEntryRepo はPostgreSQLを使用した既読状態リポジトリ。
type PostgresUserEntryRepo struct {
	db *sql.DB
}

// NewPostgresUserEntryRepo はPostgresUserEntryRepoを生成する。
func NewPostgresUserEntryRepo(db *sql.DB) *PostgresUserEntryRepo {
	return &PostgresUserEntryRepo{db: db}
}

// Upsert は既読状態を冪等にUPSERTする。
func (r *PostgresUserEntryRepo) Upsert(ctx context.Context, userID, entryID string, read bool) (*model.UserEntry, error) {
	now := time.Now()
	ue := &model.UserEntry{
		ID:        uuid.New().String(),
		UserID:    userID,
		EntryID:   entryID,
		Read:      read,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO user_entries (id, user_id, entry_id, read, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, entry_id)
		 DO UPDATE SET read = $4, updated_at = $6
		 RETURNING id, created_at`,
		ue.ID, ue.UserID, ue.EntryID, ue.Read, ue.CreatedAt, ue.UpdatedAt,
	).Scan(&ue.ID, &ue.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("既読状態のUPSERTに失敗しました: %w", err)
	}

	return ue, nil
}

// Delete は既読レコードを削除する（未読に戻す）。
func (r *PostgresUserEntryRepo) Delete(ctx context.Context, userID, entryID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_entries WHERE user_id = $1 AND entry_id = $2`,
		userID, entryID,
	)
	if err != nil {
		return fmt.Errorf("既読状態の削除に失敗しました: %w", err)
	}
	return nil
}

// MarkManyRead は複数記事を一括で既読にする。空スライスは何もしない。
// 1回のINSERT ... ON CONFLICTでまとめてUPSERTする。
func (r *PostgresUserEntryRepo) MarkManyRead(ctx context.Context, userID string, entryIDs []string) error {
	if len(entryIDs) == 0 {
		return nil
	}

	now := time.Now()
	placeholders := make([]string, 0, len(entryIDs))
	args := make([]interface{}, 0, len(entryIDs)*3+2)
	args = append(args, userID, now)

	for i, entryID := range entryIDs {
		// $1 = user_id, $2 = now, $3以降 = (id, entry_id) のペア
		base := i*2 + 3
		placeholders = append(placeholders, fmt.Sprintf("($%d, $1, $%d, TRUE, $2, $2)", base, base+1))
		args = append(args, uuid.New().String(), entryID)
	}

	query := fmt.Sprintf(
		`INSERT INTO user_entries (id, user_id, entry_id, read, created_at, updated_at)
		 VALUES %s
		 ON CONFLICT (user_id, entry_id)
		 DO UPDATE SET read = TRUE, updated_at = EXCLUDED.updated_at`,
		strings.Join(placeholders, ", "),
	)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("既読状態の一括更新に失敗しました: %w", err)
	}
	return nil
}
