// Package model はドメインモデルを定義する。
package model

import "strings"

// Disposition はフィルタカテゴリの判定方式を表す。
// PASSは許可リスト（列挙されたトークンのみ通過）、REJECTは拒否リスト（列挙されたトークンのみ遮断）。
type Disposition string

const (
	// DispositionPass は許可リスト方式。トークンにマッチしないスポットはこのカテゴリで拒否される。
	DispositionPass Disposition = "PASS"
	// DispositionReject は拒否リスト方式。トークンにマッチしないスポットはこのカテゴリを通過する。
	DispositionReject Disposition = "REJECT"
)

// ParseDisposition は文字列をDispositionに変換する。大文字小文字は区別しない。
func ParseDisposition(s string) (Disposition, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(DispositionPass):
		return DispositionPass, true
	case string(DispositionReject):
		return DispositionReject, true
	}
	return "", false
}

// FilterCategory は独立して設定可能なフィルタの次元を表す。
type FilterCategory string

const (
	// FilterDXOriginCountry はDXスポットの発信元（スポッター）の国によるフィルタ。
	FilterDXOriginCountry FilterCategory = "DOC"
	// FilterDXOriginState はDXスポットの発信元の州/プロバンスによるフィルタ。
	FilterDXOriginState FilterCategory = "DOS"
	// FilterAnnOriginCountry はアナウンスの発信元の国によるフィルタ。
	FilterAnnOriginCountry FilterCategory = "AOC"
	// FilterAnnOriginState はアナウンスの発信元の州/プロバンスによるフィルタ。
	FilterAnnOriginState FilterCategory = "AOS"
	// FilterWxOriginCountry は気象アナウンスの発信元の国によるフィルタ。
	FilterWxOriginCountry FilterCategory = "WOC"
	// FilterWxOriginState は気象アナウンスの発信元の州/プロバンスによるフィルタ。
	FilterWxOriginState FilterCategory = "WOS"
	// FilterDXSpotCountry はスポットされたDX局の国によるフィルタ。
	FilterDXSpotCountry FilterCategory = "DXC"
	// FilterDXSpotState はスポットされたDX局の州/プロバンスによるフィルタ。
	FilterDXSpotState FilterCategory = "DXS"
	// FilterDXBandMode はバンド・モードトークン（"40-CW"、"6"など）によるフィルタ。
	// トークンは周波数レンジセレクタであり、実際の電波型式の判定ではない。
	FilterDXBandMode FilterCategory = "DXBM"
)

// AllFilterCategories は定義済みの全フィルタカテゴリ。
var AllFilterCategories = []FilterCategory{
	FilterDXOriginCountry, FilterDXOriginState,
	FilterAnnOriginCountry, FilterAnnOriginState,
	FilterWxOriginCountry, FilterWxOriginState,
	FilterDXSpotCountry, FilterDXSpotState,
	FilterDXBandMode,
}

// ParseFilterCategory は文字列をFilterCategoryに変換する。大文字小文字は区別しない。
func ParseFilterCategory(s string) (FilterCategory, bool) {
	c := FilterCategory(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllFilterCategories {
		if c == known {
			return known, true
		}
	}
	return "", false
}

// FilterRule は1つのカテゴリに対するアクティブなフィルタルールを表す。
type FilterRule struct {
	Category    FilterCategory
	Disposition Disposition
	Tokens      []string // 正規化済み（大文字）のマッチトークン集合
}

// HasToken はトークン集合に指定トークンが含まれるかを返す。比較は大文字正規化で行う。
func (r FilterRule) HasToken(token string) bool {
	token = strings.ToUpper(token)
	for _, t := range r.Tokens {
		if t == token {
			return true
		}
	}
	return false
}

// FilterRuleSet はユーザー1人分のフィルタルール集合を表す。
// カテゴリに対して高々1つのルールを持ち、キーの不在はそのカテゴリの制約なし
// （デフォルト全通過）を意味する。空のFilterRuleSetは全スポットを通過させる。
type FilterRuleSet map[FilterCategory]FilterRule

// Clone はルールセットの独立したコピーを返す。
// ディスパッチャの評価とフィルタ更新の間でコピーオンライトに使用する。
func (rs FilterRuleSet) Clone() FilterRuleSet {
	clone := make(FilterRuleSet, len(rs))
	for cat, rule := range rs {
		tokens := make([]string, len(rule.Tokens))
		copy(tokens, rule.Tokens)
		rule.Tokens = tokens
		clone[cat] = rule
	}
	return clone
}
