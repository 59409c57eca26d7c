// Package band は周波数からバンド/モードへの静的変換テーブルを提供する。
// テーブルは起動時に固定され、実行時は読み取り専用。
//
// モードラベル（CW/RTTY/SSB等）は周波数サブレンジのセレクタであり、
// 実際に送信されている電波型式の判定ではない。この二重の意味は
// 歴代クラスタソフトの仕様をそのまま踏襲している。
package band

import (
	"strings"

	"github.com/hitoshi/dxhub/internal/model"
)

// Range はバンド名・モードラベル付きの周波数レンジを表す（kHz、Lowは含む、Highは含まない）。
// 同一バンド内のモードレンジは連続かつ非重複で、異なるバンドが周波数空間を
// 共有することはない。
type Range struct {
	Band string
	Mode string
	Low  float64
	High float64
}

// table は630m〜23cmのバンドプラン。利用頻度の高いバンドを先頭に並べている
// （Classifyは線形走査のため、HFの人気バンドを先に照合する）。
var table = []Range{
	{"20", "CW", 14000, 14070},
	{"20", "RTTY", 14070, 14150},
	{"20", "SSB", 14150, 14350},
	{"40", "CW", 7000, 7040},
	{"40", "RTTY", 7040, 7100},
	{"40", "SSB", 7100, 7300},
	{"30", "CW", 10100, 10130},
	{"30", "RTTY", 10130, 10150},
	{"80", "CW", 3500, 3580},
	{"80", "RTTY", 3580, 3700},
	{"80", "SSB", 3700, 4000},
	{"15", "CW", 21000, 21070},
	{"15", "RTTY", 21070, 21200},
	{"15", "SSB", 21200, 21450},
	{"17", "CW", 18068, 18100},
	{"17", "RTTY", 18100, 18110},
	{"17", "SSB", 18110, 18168},
	{"10", "CW", 28000, 28070},
	{"10", "RTTY", 28070, 28300},
	{"10", "SSB", 28300, 29700},
	{"6", "CW", 50000, 50100},
	{"6", "SSB", 50100, 54000},
	{"12", "CW", 24890, 24920},
	{"12", "RTTY", 24920, 24930},
	{"12", "SSB", 24930, 24990},
	{"160", "CW", 1800, 1840},
	{"160", "RTTY", 1840, 1900},
	{"160", "SSB", 1900, 2000},
	{"2", "CW", 144000, 144150},
	{"2", "SSB", 144150, 148000},
	{"4", "ALL", 69900, 70500},
	{"60", "SSB", 5330, 5410},
	{"0.7", "ALL", 420000, 450000},
	{"1.25", "ALL", 219000, 225000},
	{"630", "CW", 472, 479},
	{"MW", "AM", 530, 1710},
	{"0.23", "ALL", 1240000, 1300000},
}

// Classify は周波数（kHz）をバンドとモードラベルに変換する。
// どのレンジにも該当しない場合はokがfalseになる。該当なしは通常の結果であり
// エラーではない（スポットはセンチネルバンドで保存される）。
func Classify(freq float64) (band, mode string, ok bool) {
	for _, r := range table {
		if r.Low <= freq && freq < r.High {
			return r.Band, r.Mode, true
		}
	}
	return model.BandUnknown, "", false
}

// Ranges はテーブルの全レンジのコピーを返す。テスト用。
func Ranges() []Range {
	out := make([]Range, len(table))
	copy(out, table)
	return out
}

// KnownToken はバンドモードトークンがテーブル上で認識されるかを返す。
// トークンはバンド単独（"6" = そのバンドの全モード）またはバンドとモードの
// ペア（"40-CW" = そのサブレンジのみ）のいずれか。
func KnownToken(token string) bool {
	b, m, pair := splitToken(token)
	for _, r := range table {
		if r.Band != b {
			continue
		}
		if !pair || r.Mode == m {
			return true
		}
	}
	return false
}

// MatchToken はスポットの導出バンド/モードがトークンにマッチするかを返す。
// バンド未解決のスポット（band == model.BandUnknown）はどのトークンにもマッチしない。
func MatchToken(token, band, mode string) bool {
	if band == model.BandUnknown {
		return false
	}
	b, m, pair := splitToken(token)
	if b != band {
		return false
	}
	return !pair || m == mode
}

// splitToken は "40-CW" をバンドとモードに分解する。"6" のようなバンド単独の
// トークンはpair=falseを返す。
func splitToken(token string) (band, mode string, pair bool) {
	token = strings.ToUpper(strings.TrimSpace(token))
	parts := strings.SplitN(token, "-", 2)
	if len(parts) == 2 {
		return parts[0], parts[1], true
	}
	return parts[0], "", false
}
