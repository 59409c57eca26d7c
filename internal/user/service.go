// Package user はオペレータープロファイルの管理を提供する。
package user

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/hitoshi/dxhub/internal/model"
	"github.com/hitoshi/dxhub/internal/repository"
)

// SettingsChangeListener は配信設定変更の通知先。
// ディスパッチャが接続中セッションの設定を差し替えるために使用する。
type SettingsChangeListener func(call string, spotsEnabled, annEnabled bool)

// Service はユーザープロファイルの取得・作成・設定変更を提供する。
// プロファイルは初回接続時に暗黙的に作成され、再接続をまたいで永続化される。
type Service struct {
	users            repository.UserRepository
	clock            clockwork.Clock
	defaultLineWidth int
	listener         SettingsChangeListener
	logger           *slog.Logger
}

// NewService はServiceを生成する。
// defaultLineWidthは新規プロファイルの行幅初期値（ノード設定のLINE_WIDTH）。
// 許容範囲外の場合は80にフォールバックする。
func NewService(users repository.UserRepository, clock clockwork.Clock, defaultLineWidth int, logger *slog.Logger) *Service {
	if defaultLineWidth < model.MinLineWidth || defaultLineWidth > model.MaxLineWidth {
		defaultLineWidth = model.DefaultLineWidth
	}
	return &Service{users: users, clock: clock, defaultLineWidth: defaultLineWidth, logger: logger}
}

// SetSettingsChangeListener は配信設定変更の通知先を登録する。
func (s *Service) SetSettingsChangeListener(listener SettingsChangeListener) {
	s.listener = listener
}

// GetOrCreate は指定コールサインのプロファイルを返す。
// 存在しない場合はデフォルト設定（スポット・アナウンス配信有効、ノード設定の行幅）で作成する。
func (s *Service) GetOrCreate(ctx context.Context, call string) (*model.User, error) {
	call = strings.ToUpper(strings.TrimSpace(call))
	if call == "" {
		return nil, model.NewUserNotFoundError(call)
	}

	user, err := s.users.FindByCall(ctx, call)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	now := s.clock.Now().UTC()
	user = &model.User{
		Call:         call,
		SpotsEnabled: true,
		AnnEnabled:   true,
		LineWidth:    s.defaultLineWidth,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("新規ユーザープロファイルを作成しました", slog.String("call", call))
	return user, nil
}

// Get は指定コールサインのプロファイルを返す。存在しない場合はUserNotFound。
func (s *Service) Get(ctx context.Context, call string) (*model.User, error) {
	call = strings.ToUpper(strings.TrimSpace(call))

	user, err := s.users.FindByCall(ctx, call)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(call)
	}
	return user, nil
}

// UpdateSettings はプロファイルの配信設定を部分更新する。
// nilのフィールドは変更されない（SET/DX、SET/ANN、SET/WIDTHの各コマンドに対応）。
// 行幅は許容範囲外の場合エラーとなる。
func (s *Service) UpdateSettings(ctx context.Context, call string, spotsEnabled, annEnabled *bool, lineWidth *int) (*model.User, error) {
	user, err := s.Get(ctx, call)
	if err != nil {
		return nil, err
	}

	if lineWidth != nil {
		if *lineWidth < model.MinLineWidth || *lineWidth > model.MaxLineWidth {
			return nil, model.NewInvalidLineWidthError(*lineWidth)
		}
		user.LineWidth = *lineWidth
	}
	if spotsEnabled != nil {
		user.SpotsEnabled = *spotsEnabled
	}
	if annEnabled != nil {
		user.AnnEnabled = *annEnabled
	}
	user.UpdatedAt = s.clock.Now().UTC()

	if err := s.users.UpdateSettings(ctx, user); err != nil {
		return nil, err
	}

	if s.listener != nil {
		s.listener(user.Call, user.SpotsEnabled, user.AnnEnabled)
	}

	s.logger.Info("ユーザー設定を更新しました",
		slog.String("call", user.Call),
		slog.Bool("spots_enabled", user.SpotsEnabled),
		slog.Bool("ann_enabled", user.AnnEnabled),
		slog.Int("line_width", user.LineWidth),
	)

	return user, nil
}
