// Package query は履歴スポットの検索とテキスト整形を提供する。
package query

import (
	"fmt"

	"github.com/hitoshi/dxhub/internal/model"
)

// Formatter はスポットをクラスタ標準のテキスト行に整形する。
// 小数点以下の桁数はノード全体の設定であり、行幅はユーザーごとの設定。
type Formatter struct {
	precision int
}

// NewFormatter はFormatterを生成する。precisionは周波数の小数点以下桁数。
func NewFormatter(precision int) *Formatter {
	if precision < 0 {
		precision = 1
	}
	return &Formatter{precision: precision}
}

// Line はスポット1件を固定レイアウトのテキスト行に整形する。
//
//	DX de KB8OTK:     14205.0  EA8TL      Spanish              2241Z
//
// 行幅は許容範囲にクランプされ、コメントは残り幅に収まるよう切り詰められる。
// 時刻はUTCのHHMMZ形式で行末に右詰めされる。
func (f *Formatter) Line(spot *model.Spot, width int) string {
	if width < model.MinLineWidth {
		width = model.MinLineWidth
	}
	if width > model.MaxLineWidth {
		width = model.MaxLineWidth
	}

	head := fmt.Sprintf("DX de %-10s%9.*f  %-10s ",
		spot.DE+":", f.precision, spot.Frequency, spot.DX)
	ts := spot.Time.UTC().Format("1504") + "Z"

	room := width - len(head) - len(ts) - 1
	if room < 0 {
		room = 0
	}
	comment := spot.Comment
	if len(comment) > room {
		comment = comment[:room]
	}

	return fmt.Sprintf("%s%-*s %s", head, room, comment, ts)
}

// Announcement はアナウンス1件をテキスト行に整形する。
func (f *Formatter) Announcement(ann *model.Announcement) string {
	kind := "All"
	if ann.Kind == model.AnnouncementWeather {
		kind = "WX"
	}
	return fmt.Sprintf("To %s de %s: %s", kind, ann.Call, ann.Text)
}
