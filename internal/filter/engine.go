// Package filter はフィルタルールの評価と管理を提供する。
package filter

import (
	"github.com/hitoshi/dxhub/internal/band"
	"github.com/hitoshi/dxhub/internal/dxcc"
	"github.com/hitoshi/dxhub/internal/model"
)

// Engine はスポット・アナウンスをフィルタルールセットに対して評価する。
// 評価は純粋関数であり、同じ入力に対して常に同じ結果を返す。
type Engine struct {
	classifier *dxcc.Classifier
}

// NewEngine はEngineを生成する。
func NewEngine(classifier *dxcc.Classifier) *Engine {
	return &Engine{classifier: classifier}
}

// AdmitsSpot はスポットがルールセットを通過するかを判定する。
// アクティブなカテゴリはANDで結合され、いずれか1つでも拒否すれば全体が拒否となる。
// 空のルールセットは全スポットを通過させる。
// 国・州はスポットの保存属性ではなく、評価時にコールサインから導出される。
func (e *Engine) AdmitsSpot(spot *model.Spot, rules model.FilterRuleSet) bool {
	if len(rules) == 0 {
		return true
	}

	var entDE, entDX dxcc.Entity
	if _, ok := originRule(rules); ok {
		entDE = e.classifier.Lookup(spot.DE)
	}
	if _, ok := targetRule(rules); ok {
		entDX = e.classifier.Lookup(spot.DX)
	}

	if rule, ok := rules[model.FilterDXOriginCountry]; ok {
		if !admitsToken(rule, entDE.Country) {
			return false
		}
	}
	if rule, ok := rules[model.FilterDXOriginState]; ok {
		if !admitsToken(rule, entDE.State) {
			return false
		}
	}
	if rule, ok := rules[model.FilterDXSpotCountry]; ok {
		if !admitsToken(rule, entDX.Country) {
			return false
		}
	}
	if rule, ok := rules[model.FilterDXSpotState]; ok {
		if !admitsToken(rule, entDX.State) {
			return false
		}
	}
	if rule, ok := rules[model.FilterDXBandMode]; ok {
		if !admitsBandMode(rule, spot) {
			return false
		}
	}

	return true
}

// AdmitsAnnouncement はアナウンスがルールセットを通過するかを判定する。
// 一般アナウンスはAOC/AOS、気象アナウンスはWOC/WOSで評価される。
func (e *Engine) AdmitsAnnouncement(ann *model.Announcement, rules model.FilterRuleSet) bool {
	if len(rules) == 0 {
		return true
	}

	countryCat, stateCat := model.FilterAnnOriginCountry, model.FilterAnnOriginState
	if ann.Kind == model.AnnouncementWeather {
		countryCat, stateCat = model.FilterWxOriginCountry, model.FilterWxOriginState
	}

	_, hasCountry := rules[countryCat]
	_, hasState := rules[stateCat]
	if !hasCountry && !hasState {
		return true
	}

	ent := e.classifier.Lookup(ann.Call)
	if rule, ok := rules[countryCat]; ok {
		if !admitsToken(rule, ent.Country) {
			return false
		}
	}
	if rule, ok := rules[stateCat]; ok {
		if !admitsToken(rule, ent.State) {
			return false
		}
	}

	return true
}

// admitsToken はトークン一致カテゴリの判定を行う。
// PASSは一致した場合のみ通過（属性が空＝未解決の場合は一致せず拒否）、
// REJECTは一致した場合のみ拒否。
func admitsToken(rule model.FilterRule, attr string) bool {
	matched := attr != "" && rule.HasToken(attr)
	if rule.Disposition == model.DispositionPass {
		return matched
	}
	return !matched
}

// admitsBandMode はバンド・モードトークンカテゴリの判定を行う。
// トークンは周波数レンジセレクタであり、バンド未解決のスポットはどのトークンにも
// マッチしない（PASSでは拒否、REJECTでは通過）。
func admitsBandMode(rule model.FilterRule, spot *model.Spot) bool {
	matched := false
	for _, token := range rule.Tokens {
		if band.MatchToken(token, spot.Band, spot.Mode) {
			matched = true
			break
		}
	}
	if rule.Disposition == model.DispositionPass {
		return matched
	}
	return !matched
}

func originRule(rules model.FilterRuleSet) (model.FilterRule, bool) {
	if rule, ok := rules[model.FilterDXOriginCountry]; ok {
		return rule, true
	}
	rule, ok := rules[model.FilterDXOriginState]
	return rule, ok
}

func targetRule(rules model.FilterRuleSet) (model.FilterRule, bool) {
	if rule, ok := rules[model.FilterDXSpotCountry]; ok {
		return rule, true
	}
	rule, ok := rules[model.FilterDXSpotState]
	return rule, ok
}
