// Package cleanup は期限切れ認証トークンの自動削除ジョブを提供する。
// expire_atを過ぎたauth_tokensをバッチ実行ごとに削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/feedline/internal/repository"
)

// CleanupJob は期限切れ認証トークンの自動削除ジョブ。
// リコンサイルバッチと同じプロセスで実行される。冪等な削除処理を保証する。
type CleanupJob struct {
	tokenRepo repository.AuthTokenRepository
	logger    *slog.Logger
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(tokenRepo repository.AuthTokenRepository, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		tokenRepo: tokenRepo,
		logger:    logger,
	}
}

// Run は期限切れトークンを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.tokenRepo.DeleteExpired(ctx, time.Now())
	if err != nil {
		j.logger.Error("トークンクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("トークンクリーンアップの実行に失敗: %w", err)
	}

	j.logger.Info("トークンクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}
