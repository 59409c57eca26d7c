package filter

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hitoshi/dxhub/internal/band"
	"github.com/hitoshi/dxhub/internal/dxcc"
	"github.com/hitoshi/dxhub/internal/model"
	"github.com/hitoshi/dxhub/internal/repository"
)

// RuleChangeListener はユーザーのルールセット変更の通知先。
// ディスパッチャが接続中セッションのルールを差し替えるために使用する。
type RuleChangeListener func(call string, rules model.FilterRuleSet)

// Service はフィルタルールの管理操作を提供する。
// ルールはユーザープロファイルに永続化され、変更は接続中セッションへ即時反映される。
type Service struct {
	filters    repository.FilterRepository
	classifier *dxcc.Classifier
	listener   RuleChangeListener
	logger     *slog.Logger
}

// NewService はServiceを生成する。
func NewService(filters repository.FilterRepository, classifier *dxcc.Classifier, logger *slog.Logger) *Service {
	return &Service{filters: filters, classifier: classifier, logger: logger}
}

// SetRuleChangeListener はルールセット変更の通知先を登録する。
func (s *Service) SetRuleChangeListener(listener RuleChangeListener) {
	s.listener = listener
}

// Set はカテゴリのフィルタルールを登録する。既存ルールは上書きされる。
// 分類テーブルが認識しないトークンも検証の上で保存され、未知トークンの一覧が返される
// （保存を妨げない警告として扱う）。
func (s *Service) Set(ctx context.Context, call, category, disposition string, tokens []string) (model.FilterRule, []string, error) {
	call = normalizeCall(call)

	cat, ok := model.ParseFilterCategory(category)
	if !ok {
		return model.FilterRule{}, nil, model.NewUnknownFilterCategoryError(category)
	}

	disp, ok := model.ParseDisposition(disposition)
	if !ok {
		return model.FilterRule{}, nil, model.NewInvalidDispositionError(disposition)
	}

	rule := model.FilterRule{
		Category:    cat,
		Disposition: disp,
		Tokens:      normalizeTokens(tokens),
	}

	unknown := s.unknownTokens(cat, rule.Tokens)

	if err := s.filters.Upsert(ctx, call, rule); err != nil {
		return model.FilterRule{}, nil, err
	}

	if len(unknown) > 0 {
		s.logger.Warn("未知のフィルタトークンを含むルールを保存しました",
			slog.String("call", call),
			slog.String("category", string(cat)),
			slog.String("tokens", strings.Join(unknown, ",")),
		)
	}

	if err := s.notify(ctx, call); err != nil {
		return model.FilterRule{}, nil, err
	}

	return rule, unknown, nil
}

// Clear は指定カテゴリのルールを削除する。そのカテゴリは制約なし（全通過）に戻る。
func (s *Service) Clear(ctx context.Context, call, category string) error {
	call = normalizeCall(call)

	cat, ok := model.ParseFilterCategory(category)
	if !ok {
		return model.NewUnknownFilterCategoryError(category)
	}

	if err := s.filters.Delete(ctx, call, cat); err != nil {
		return err
	}

	return s.notify(ctx, call)
}

// Reset は全カテゴリのルールを削除する（SET/NOFILTER相当）。
// リセット後のユーザーには全スポット・全アナウンスが配信される。
func (s *Service) Reset(ctx context.Context, call string) error {
	call = normalizeCall(call)

	if err := s.filters.DeleteAll(ctx, call); err != nil {
		return err
	}

	return s.notify(ctx, call)
}

// List は指定ユーザーの現在のルールセットを返す（SH/FILTER相当）。
func (s *Service) List(ctx context.Context, call string) (model.FilterRuleSet, error) {
	return s.filters.ListByCall(ctx, normalizeCall(call))
}

// notify は最新のルールセットをリスナーに通知する。
func (s *Service) notify(ctx context.Context, call string) error {
	if s.listener == nil {
		return nil
	}
	rules, err := s.filters.ListByCall(ctx, call)
	if err != nil {
		return err
	}
	s.listener(call, rules)
	return nil
}

// unknownTokens は分類テーブルが認識しないトークンを抽出する。
func (s *Service) unknownTokens(cat model.FilterCategory, tokens []string) []string {
	var unknown []string
	for _, token := range tokens {
		if !s.knownToken(cat, token) {
			unknown = append(unknown, token)
		}
	}
	return unknown
}

func (s *Service) knownToken(cat model.FilterCategory, token string) bool {
	switch cat {
	case model.FilterDXOriginCountry, model.FilterAnnOriginCountry,
		model.FilterWxOriginCountry, model.FilterDXSpotCountry:
		return s.classifier.KnownCountry(token)
	case model.FilterDXOriginState, model.FilterAnnOriginState,
		model.FilterWxOriginState, model.FilterDXSpotState:
		return s.classifier.KnownState(token)
	case model.FilterDXBandMode:
		return band.KnownToken(token)
	}
	return false
}

// normalizeCall はコールサインを正規化する。
// プロファイルは大文字で保存されるため、参照・保存・通知の全経路で揃える必要がある。
func normalizeCall(call string) string {
	return strings.ToUpper(strings.TrimSpace(call))
}

// normalizeTokens はトークンを大文字化し、空要素と重複を除去する。
func normalizeTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	normalized := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.ToUpper(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		normalized = append(normalized, token)
	}
	return normalized
}
