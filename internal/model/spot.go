// Package model はドメインモデルを定義する。
package model

import "time"

// BandUnknown は周波数がどのバンドにも該当しない場合のセンチネルバンド値。
// 未解決バンドのスポットも破棄せずに保存される（取り込み経路の唯一の永続記録のため）。
const BandUnknown = ""

// RawSpot は中継レイヤーから受け取った未正規化のスポットを表す。
// Normalizerに渡される前の入力データであり、周波数は未パースの文字列を保持する。
type RawSpot struct {
	DE        string     // スポッター（発信元）コールサイン
	Frequency string     // 周波数（kHz、未パース）
	DX        string     // 聞こえた局（DX）のコールサイン
	Comment   string     // フリーテキストコメント
	Time      *time.Time // 中継ノード由来の信頼済みタイムスタンプ（任意）
	Signal    *int       // 信号強度レポート（任意）
}

// Spot は正規化済みのDXスポットを表す。
// Normalizerが生成し、保存後は一切変更されない。保持期間は外部のパージポリシーが管理する。
type Spot struct {
	ID        string
	DE        string  // スポッター（発信元）コールサイン
	Frequency float64 // 周波数（kHz）
	DX        string  // 聞こえた局（DX）のコールサイン
	Comment   string
	ContDE    string // 発信元大陸
	ContDX    string // DX局大陸
	ITUDE     int    // 発信元ITUゾーン（未解決は0）
	ITUDX     int    // DX局ITUゾーン（未解決は0）
	CQDE      int    // 発信元CQゾーン（未解決は0）
	CQDX      int    // DX局CQゾーン（未解決は0）
	Mode      string // バンド/モードテーブル由来のモードラベル（未解決は空）
	Signal    *int   // 信号強度レポート（任意）
	Band      string // 導出バンド識別子（未解決はBandUnknown）
	Time      time.Time
}

// BandModeToken はスポットの導出バンドとモードを "40-CW" 形式のトークンに変換する。
// バンド未解決のスポットは空文字列を返し、どのバンド・モードトークンにもマッチしない。
func (s *Spot) BandModeToken() string {
	if s.Band == BandUnknown || s.Mode == "" {
		return ""
	}
	return s.Band + "-" + s.Mode
}
