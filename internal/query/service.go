package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/dxhub/internal/filter"
	"github.com/hitoshi/dxhub/internal/model"
	"github.com/hitoshi/dxhub/internal/repository"
)

// 1回の履歴クエリで返す件数のデフォルトと上限。
const (
	DefaultLimit = 30
	MaxLimit     = 250
)

// Service は履歴スポットの検索操作を提供する。
// 各操作は照会ユーザーの現在のフィルタルールセットを事後述語として適用し、
// ユーザーの行幅設定で整形したテキスト行を返す。
type Service struct {
	spots     repository.SpotRepository
	users     repository.UserRepository
	filters   repository.FilterRepository
	engine    *filter.Engine
	formatter *Formatter
}

// NewService はServiceを生成する。
func NewService(
	spots repository.SpotRepository,
	users repository.UserRepository,
	filters repository.FilterRepository,
	engine *filter.Engine,
	formatter *Formatter,
) *Service {
	return &Service{
		spots:     spots,
		users:     users,
		filters:   filters,
		engine:    engine,
		formatter: formatter,
	}
}

// Recent は直近のスポットを返す（SH/DXの引数なし形）。
func (s *Service) Recent(ctx context.Context, userCall string, limit int) ([]string, error) {
	return s.run(ctx, userCall, limit, func(ctx context.Context, limit int) ([]*model.Spot, error) {
		return s.spots.ListRecent(ctx, limit)
	})
}

// ByCall は指定コールサインが発信元のスポットを返す。
func (s *Service) ByCall(ctx context.Context, userCall, call string, limit int) ([]string, error) {
	call = strings.ToUpper(strings.TrimSpace(call))
	if call == "" {
		return nil, model.NewInvalidQueryError("コールサインが空です")
	}
	return s.run(ctx, userCall, limit, func(ctx context.Context, limit int) ([]*model.Spot, error) {
		return s.spots.ListByDE(ctx, call, limit)
	})
}

// BySpotter は指定スポッターのスポットを返す。発信元一致のエイリアス。
func (s *Service) BySpotter(ctx context.Context, userCall, call string, limit int) ([]string, error) {
	return s.ByCall(ctx, userCall, call, limit)
}

// ByDX は指定コールサインがスポットされた側のスポットを返す（SH/DX <call>相当）。
func (s *Service) ByDX(ctx context.Context, userCall, call string, limit int) ([]string, error) {
	call = strings.ToUpper(strings.TrimSpace(call))
	if call == "" {
		return nil, model.NewInvalidQueryError("コールサインが空です")
	}
	return s.run(ctx, userCall, limit, func(ctx context.Context, limit int) ([]*model.Spot, error) {
		return s.spots.ListByDX(ctx, call, limit)
	})
}

// ByBand は指定バンドのスポットを返す。
func (s *Service) ByBand(ctx context.Context, userCall, band string, limit int) ([]string, error) {
	band = strings.TrimSpace(band)
	if band == "" {
		return nil, model.NewInvalidQueryError("バンドが空です")
	}
	return s.run(ctx, userCall, limit, func(ctx context.Context, limit int) ([]*model.Spot, error) {
		return s.spots.ListByBand(ctx, band, limit)
	})
}

// ByFreqRange は周波数（kHz）が[low, high]のスポットを返す。
func (s *Service) ByFreqRange(ctx context.Context, userCall string, low, high float64, limit int) ([]string, error) {
	if low < 0 || high <= 0 || low > high {
		return nil, model.NewInvalidQueryError(fmt.Sprintf("無効な周波数範囲です: %g〜%g", low, high))
	}
	return s.run(ctx, userCall, limit, func(ctx context.Context, limit int) ([]*model.Spot, error) {
		return s.spots.ListByFreqRange(ctx, low, high, limit)
	})
}

// ByPrefix は発信元コールサインが指定プレフィックスで始まるスポットを返す。
func (s *Service) ByPrefix(ctx context.Context, userCall, prefix string, limit int) ([]string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, model.NewInvalidQueryError("プレフィックスが空です")
	}
	return s.run(ctx, userCall, limit, func(ctx context.Context, limit int) ([]*model.Spot, error) {
		return s.spots.ListByPrefix(ctx, prefix, limit)
	})
}

// ByComment はコメントに部分文字列を含むスポットを返す。大文字小文字は区別しない。
func (s *Service) ByComment(ctx context.Context, userCall, substr string, limit int) ([]string, error) {
	substr = strings.TrimSpace(substr)
	if substr == "" {
		return nil, model.NewInvalidQueryError("検索文字列が空です")
	}
	return s.run(ctx, userCall, limit, func(ctx context.Context, limit int) ([]*model.Spot, error) {
		return s.spots.ListByComment(ctx, substr, limit)
	})
}

// run はクエリ実行の共通処理。ユーザー解決、limit正規化、検索、
// フィルタの事後適用、テキスト整形を行う。
func (s *Service) run(
	ctx context.Context,
	userCall string,
	limit int,
	fetch func(ctx context.Context, limit int) ([]*model.Spot, error),
) ([]string, error) {
	userCall = strings.ToUpper(strings.TrimSpace(userCall))

	user, err := s.users.FindByCall(ctx, userCall)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(userCall)
	}

	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	rules, err := s.filters.ListByCall(ctx, userCall)
	if err != nil {
		return nil, err
	}

	spots, err := fetch(ctx, limit)
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(spots))
	for _, spot := range spots {
		if !s.engine.AdmitsSpot(spot, rules) {
			continue
		}
		lines = append(lines, s.formatter.Line(spot, user.LineWidth))
	}

	return lines, nil
}
