package spot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/hitoshi/dxhub/internal/metrics"
	"github.com/hitoshi/dxhub/internal/model"
	"github.com/hitoshi/dxhub/internal/repository"
)

// Publisher は取り込み済みスポットの配信先インターフェース。
type Publisher interface {
	// PublishSpot はスポットを全接続セッションに向けて発行する。ブロックしない。
	PublishSpot(spot *model.Spot)
}

// Service はスポット取り込みのアプリケーションサービス。
// 正規化、永続化、配信を1回の取り込みとして調停する。
type Service struct {
	normalizer *Normalizer
	spots      repository.SpotRepository
	publisher  Publisher
	collector  metrics.MetricsCollector
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	normalizer *Normalizer,
	spots repository.SpotRepository,
	publisher Publisher,
	collector metrics.MetricsCollector,
	clock clockwork.Clock,
	logger *slog.Logger,
) *Service {
	return &Service{
		normalizer: normalizer,
		spots:      spots,
		publisher:  publisher,
		collector:  collector,
		clock:      clock,
		logger:     logger,
	}
}

// Ingest は生スポットを正規化して保存し、ディスパッチャへ発行する。
// 保存が成功したスポットのみ発行される（永続化が配信に先行する）。
// MalformedSpotのみが拒否理由となり、それ以外の入力は必ず保存される。
func (s *Service) Ingest(ctx context.Context, raw model.RawSpot) (*model.Spot, error) {
	start := s.clock.Now()

	spot, err := s.normalizer.Normalize(raw)
	if err != nil {
		s.collector.RecordSpotMalformed()
		s.logger.Warn("不正なスポットを拒否しました",
			slog.String("de", raw.DE),
			slog.String("frequency", raw.Frequency),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if err := s.spots.Append(ctx, spot); err != nil {
		return nil, fmt.Errorf("スポットの保存に失敗しました: %w", err)
	}

	if spot.Band == model.BandUnknown {
		s.collector.RecordBandUnresolved()
		s.logger.Warn("バンド未解決のスポットを保存しました",
			slog.Float64("frequency", spot.Frequency),
			slog.String("dx", spot.DX),
		)
	}

	s.collector.RecordSpotIngested(spot.Band)
	s.collector.RecordIngestLatency(s.clock.Now().Sub(start))

	s.publisher.PublishSpot(spot)

	s.logger.Debug("スポットを取り込みました",
		slog.String("id", spot.ID),
		slog.String("de", spot.DE),
		slog.String("dx", spot.DX),
		slog.Float64("frequency", spot.Frequency),
		slog.String("band", spot.Band),
	)

	return spot, nil
}
