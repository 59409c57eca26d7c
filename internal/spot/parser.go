// Package spot はDXスポットの取り込みと正規化を提供する。
package spot

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/dxhub/internal/model"
)

// dxLineRe はクラシックなクラスタワイヤ形式の1行にマッチする。
// 例: "DX de SP5NOF:   10136.0  UI5A     FT8 +13dB from KO85 1778Hz   2138Z"
var dxLineRe = regexp.MustCompile(
	`^DX de\s+(\w+)\S*:\s+(\d+(?:\.\d+)?)\s+(\w+)\S*\s+(.*?)\s*(\d{4})Z`,
)

// signalRe はコメント中の信号強度レポート（"+13dB"、"-05dB" 等）にマッチする。
var signalRe = regexp.MustCompile(`([+-]\d+)\s?dB`)

// ParseDXLine はワイヤ形式のDX行をRawSpotに変換する。
// 行末の時刻（HHMMのUTC、"Z"付き）は中継ノード由来の信頼済みタイムスタンプとして
// 当日の日付と合成される。形式が一致しない場合はfalseを返す。
func ParseDXLine(line string, now time.Time) (model.RawSpot, bool) {
	match := dxLineRe.FindStringSubmatch(strings.TrimSpace(line))
	if match == nil {
		return model.RawSpot{}, false
	}

	raw := model.RawSpot{
		DE:        strings.ToUpper(match[1]),
		Frequency: match[2],
		DX:        strings.ToUpper(match[3]),
		Comment:   strings.TrimSpace(match[4]),
	}

	if ts, ok := parseSpotTime(match[5], now); ok {
		raw.Time = &ts
	}

	if sig := signalRe.FindStringSubmatch(raw.Comment); sig != nil {
		if v, err := strconv.Atoi(sig[1]); err == nil {
			raw.Signal = &v
		}
	}

	return raw, true
}

// parseSpotTime はHHMM形式の時刻をnowの日付（UTC）と合成する。
// 合成結果がnowより未来になる場合は前日の時刻とみなす。
func parseSpotTime(hhmm string, now time.Time) (time.Time, bool) {
	if len(hhmm) != 4 {
		return time.Time{}, false
	}
	hour, err := strconv.Atoi(hhmm[:2])
	if err != nil || hour > 23 {
		return time.Time{}, false
	}
	minute, err := strconv.Atoi(hhmm[2:])
	if err != nil || minute > 59 {
		return time.Time{}, false
	}

	now = now.UTC()
	ts := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if ts.After(now) {
		ts = ts.AddDate(0, 0, -1)
	}
	return ts, true
}
