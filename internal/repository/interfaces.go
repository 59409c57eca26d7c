// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/dxhub/internal/model"
)

// SpotRepository はDXスポットデータの永続化インターフェース。
// dxspotテーブルは追記専用であり、保存後のスポットは更新されない。
// 全ての検索は時刻降順（新しい順）でlimit件を上限に返す。
type SpotRepository interface {
	// Append はスポットを追記する。
	Append(ctx context.Context, spot *model.Spot) error

	// ListRecent は直近のスポットをlimit件返す。
	ListRecent(ctx context.Context, limit int) ([]*model.Spot, error)

	// ListByDE は発信元（スポッター）コールサインが一致するスポットを返す。
	// 「by call」「by spotter」両方の検索形がこのメソッドに対応する。
	ListByDE(ctx context.Context, call string, limit int) ([]*model.Spot, error)

	// ListByDX はスポットされたDX局のコールサインが一致するスポットを返す。
	ListByDX(ctx context.Context, call string, limit int) ([]*model.Spot, error)

	// ListByBand は指定バンドのスポットを返す。
	ListByBand(ctx context.Context, band string, limit int) ([]*model.Spot, error)

	// ListByFreqRange は周波数（kHz）が[low, high]に含まれるスポットを返す。
	ListByFreqRange(ctx context.Context, low, high float64, limit int) ([]*model.Spot, error)

	// ListByPrefix は発信元コールサインが指定プレフィックスで始まるスポットを返す。
	// プレフィックスは末尾ワイルドカード検索として解釈される。
	ListByPrefix(ctx context.Context, prefix string, limit int) ([]*model.Spot, error)

	// ListByComment はコメントに部分文字列を含むスポットを返す。大文字小文字は区別しない。
	ListByComment(ctx context.Context, substr string, limit int) ([]*model.Spot, error)

	// DeleteOlderThan は指定時刻より古いスポットを削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// UserRepository はユーザープロファイルの永続化インターフェース。
type UserRepository interface {
	// FindByCall は指定コールサインのユーザーを取得する。見つからない場合はnilを返す。
	FindByCall(ctx context.Context, call string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// UpdateSettings はユーザーの配信設定（SpotsEnabled、AnnEnabled、LineWidth）を更新する。
	UpdateSettings(ctx context.Context, user *model.User) error
}

// FilterRepository はフィルタルールの永続化インターフェース。
// ルールはユーザープロファイルに属し、(call, category)に対して高々1ルール。
type FilterRepository interface {
	// ListByCall は指定ユーザーの全フィルタルールをFilterRuleSetとして返す。
	// ルールが1つもない場合は空のFilterRuleSetを返す。
	ListByCall(ctx context.Context, call string) (model.FilterRuleSet, error)

	// Upsert はカテゴリのルールを冪等に登録する。既存ルールは上書きされる。
	Upsert(ctx context.Context, call string, rule model.FilterRule) error

	// Delete は指定カテゴリのルールを削除する。ルールが存在しない場合もエラーにしない。
	Delete(ctx context.Context, call string, category model.FilterCategory) error

	// DeleteAll は指定ユーザーの全ルールを削除する（フィルタの一括リセット）。
	DeleteAll(ctx context.Context, call string) error
}
