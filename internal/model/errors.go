// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// 境界レイヤーに返す原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, filter, query, system
	Action   string // 呼び出し側向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeMalformedSpot         = "MALFORMED_SPOT"
	ErrCodeUnknownFilterToken    = "UNKNOWN_FILTER_TOKEN"
	ErrCodeUnknownFilterCategory = "UNKNOWN_FILTER_CATEGORY"
	ErrCodeInvalidDisposition    = "INVALID_DISPOSITION"
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
	ErrCodeInvalidQuery          = "INVALID_QUERY"
	ErrCodeInvalidLineWidth      = "INVALID_LINE_WIDTH"
)

// NewMalformedSpotError は周波数等がパース不能なスポットのエラーを生成する。
// このエラーは取り込み時に拒否され、保存も配信もされない唯一の入力エラー。
func NewMalformedSpotError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeMalformedSpot,
		Message:  fmt.Sprintf("スポットを解釈できません: %s", reason),
		Category: "validation",
		Action:   "周波数とコールサインの形式を確認してください。",
	}
}

// NewUnknownFilterTokenError は分類テーブルが認識しないトークンの警告エラーを生成する。
// ルール自体は保存されるため、呼び出し側への通知のみに使用する。
func NewUnknownFilterTokenError(tokens []string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownFilterToken,
		Message:  fmt.Sprintf("認識できないフィルタトークンです: %s", strings.Join(tokens, ",")),
		Category: "filter",
		Action:   "国コード・州コード・バンドモードトークンを確認してください。ルールは保存済みです。",
	}
}

// NewUnknownFilterCategoryError は未定義のフィルタカテゴリのエラーを生成する。
func NewUnknownFilterCategoryError(category string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownFilterCategory,
		Message:  fmt.Sprintf("未定義のフィルタカテゴリです: %s", category),
		Category: "filter",
		Action:   "DOC、DOS、AOC、AOS、WOC、WOS、DXC、DXS、DXBM のいずれかを指定してください。",
	}
}

// NewInvalidDispositionError は無効なディスポジションのエラーを生成する。
func NewInvalidDispositionError(disposition string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDisposition,
		Message:  fmt.Sprintf("無効なディスポジションです: %s", disposition),
		Category: "filter",
		Action:   "PASS または REJECT を指定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(call string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("ユーザーが見つかりません: %s", call),
		Category: "query",
		Action:   "コールサインを確認するか、先に接続してプロファイルを作成してください。",
	}
}

// NewInvalidQueryError は無効な履歴クエリのエラーを生成する。
func NewInvalidQueryError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuery,
		Message:  fmt.Sprintf("無効なクエリです: %s", reason),
		Category: "query",
		Action:   "クエリパラメータを確認してください。",
	}
}

// NewInvalidLineWidthError は範囲外の行幅設定のエラーを生成する。
func NewInvalidLineWidthError(width int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidLineWidth,
		Message:  fmt.Sprintf("無効な行幅です: %d", width),
		Category: "validation",
		Action:   fmt.Sprintf("行幅は %d〜%d の範囲で指定してください。", MinLineWidth, MaxLineWidth),
	}
}
