// Package purge は保持期間を超過したスポットの自動削除ジョブを提供する。
// dxspotテーブルは追記専用のため、保持ポリシーはこのジョブが唯一の削除経路となる。
package purge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hitoshi/dxhub/internal/metrics"
	"github.com/hitoshi/dxhub/internal/repository"
)

// Job は保持期間を超過したスポットの自動削除ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type Job struct {
	spots     repository.SpotRepository
	collector metrics.MetricsCollector
	clock     clockwork.Clock
	logger    *slog.Logger
	retention time.Duration
}

// NewJob は新しいJobを生成する。retentionが0以下の場合はデフォルトの365日を使用する。
func NewJob(
	spots repository.SpotRepository,
	collector metrics.MetricsCollector,
	clock clockwork.Clock,
	logger *slog.Logger,
	retention time.Duration,
) *Job {
	if retention <= 0 {
		retention = 365 * 24 * time.Hour
	}
	return &Job{
		spots:     spots,
		collector: collector,
		clock:     clock,
		logger:    logger,
		retention: retention,
	}
}

// Start は指定間隔でパージジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("パージジョブを開始しました",
		slog.Duration("interval", interval),
		slog.Duration("retention", j.retention),
	)

	// 起動直後に1回実行
	if err := j.RunOnce(ctx); err != nil {
		j.logger.Error("パージの実行に失敗しました", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("パージジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				j.logger.Error("パージの実行に失敗しました", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce は保持期間を超過したスポットを1回削除する。
// 削除対象がない場合でもエラーにならない。
func (j *Job) RunOnce(ctx context.Context) error {
	start := j.clock.Now()
	cutoff := start.Add(-j.retention).UTC()

	deleted, err := j.spots.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("古いスポットのパージに失敗しました: %w", err)
	}

	j.collector.RecordSpotsPurged(deleted)
	j.logger.Info("パージが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Time("cutoff", cutoff),
		slog.Float64("duration_ms", float64(j.clock.Now().Sub(start).Milliseconds())),
	)

	return nil
}
