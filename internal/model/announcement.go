// Package model はドメインモデルを定義する。
package model

import "time"

// AnnouncementKind はアナウンスの種別を表す。
type AnnouncementKind string

const (
	// AnnouncementGeneral は一般アナウンス（TO ALL）。
	AnnouncementGeneral AnnouncementKind = "ANN"
	// AnnouncementWeather は気象・伝搬情報アナウンス（WWV/WX）。
	AnnouncementWeather AnnouncementKind = "WX"
)

// Announcement は接続オペレーターまたは中継ノードからの一斉送信メッセージを表す。
// スポットと異なり永続化されず、接続中のセッションにのみ配信される。
type Announcement struct {
	ID   string
	Call string // 発信元コールサイン
	Kind AnnouncementKind
	Text string
	Time time.Time
}
