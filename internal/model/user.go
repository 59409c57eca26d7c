// Package model はドメインモデルを定義する。
package model

import "time"

// スポット行フォーマットの1行幅（カラム数）の許容範囲とデフォルト値。
const (
	MinLineWidth     = 45
	MaxLineWidth     = 130
	DefaultLineWidth = 80
)

// User はクラスタ利用オペレーターのプロファイルを表す。
// コールサインで一意に識別され、フィルタルールセットと配信設定を所有する。
// 再接続をまたいで永続化される（トランジェントなセッションは所有しない）。
type User struct {
	Call         string // コールサイン（主キー、大文字正規化）
	SpotsEnabled bool   // DXスポット配信の有効/無効（SET/DX相当）
	AnnEnabled   bool   // アナウンス配信の有効/無効（SET/ANN相当）
	LineWidth    int    // スポット行の表示幅（45〜130）
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
