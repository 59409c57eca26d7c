// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 取り込み、ディスパッチ、ワーカーの各層から利用する。
type MetricsCollector interface {
	RecordSpotIngested(band string)
	RecordSpotMalformed()
	RecordBandUnresolved()
	RecordIngestLatency(duration time.Duration)
	RecordSpotDelivered()
	RecordSpotSuppressed()
	RecordSpotDropped()
	RecordAnnouncementDelivered()
	SetConnectedSessions(count int)
	RecordSpotsPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	spotIngested      *prometheus.CounterVec
	spotMalformed     prometheus.Counter
	bandUnresolved    prometheus.Counter
	ingestLatency     prometheus.Histogram
	spotDelivered     prometheus.Counter
	spotSuppressed    prometheus.Counter
	spotDropped       prometheus.Counter
	annDelivered      prometheus.Counter
	connectedSessions prometheus.Gauge
	spotsPurged       prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		spotIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dxhub_spot_ingested_total",
			Help: "取り込みに成功したスポットのバンド別合計数",
		}, []string{"band"}),
		spotMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dxhub_spot_malformed_total",
			Help: "不正として拒否されたスポットの合計数",
		}),
		bandUnresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dxhub_band_unresolved_total",
			Help: "バンド未解決のまま保存されたスポットの合計数",
		}),
		ingestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dxhub_ingest_latency_seconds",
			Help:    "スポット取り込みのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		spotDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dxhub_spot_delivered_total",
			Help: "セッションへ配信されたスポットの合計数",
		}),
		spotSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dxhub_spot_suppressed_total",
			Help: "フィルタにより配信を抑止されたスポットの合計数",
		}),
		spotDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dxhub_spot_dropped_total",
			Help: "配信キュー満杯により破棄されたスポットの合計数",
		}),
		annDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dxhub_announcement_delivered_total",
			Help: "セッションへ配信されたアナウンスの合計数",
		}),
		connectedSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dxhub_connected_sessions",
			Help: "現在接続中のセッション数",
		}),
		spotsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dxhub_spots_purged_total",
			Help: "保持期間切れで削除されたスポットの合計数",
		}),
	}

	reg.MustRegister(
		c.spotIngested,
		c.spotMalformed,
		c.bandUnresolved,
		c.ingestLatency,
		c.spotDelivered,
		c.spotSuppressed,
		c.spotDropped,
		c.annDelivered,
		c.connectedSessions,
		c.spotsPurged,
	)

	return c
}

// RecordSpotIngested は取り込み成功をバンド別に記録する。
func (c *Collector) RecordSpotIngested(band string) {
	if band == "" {
		band = "unknown"
	}
	c.spotIngested.WithLabelValues(band).Inc()
}

// RecordSpotMalformed は不正スポットの拒否を記録する。
func (c *Collector) RecordSpotMalformed() {
	c.spotMalformed.Inc()
}

// RecordBandUnresolved はバンド未解決での保存を記録する。
func (c *Collector) RecordBandUnresolved() {
	c.bandUnresolved.Inc()
}

// RecordIngestLatency は取り込みのレイテンシを記録する。
func (c *Collector) RecordIngestLatency(duration time.Duration) {
	c.ingestLatency.Observe(duration.Seconds())
}

// RecordSpotDelivered はセッションへのスポット配信を記録する。
func (c *Collector) RecordSpotDelivered() {
	c.spotDelivered.Inc()
}

// RecordSpotSuppressed はフィルタによる配信抑止を記録する。
func (c *Collector) RecordSpotSuppressed() {
	c.spotSuppressed.Inc()
}

// RecordSpotDropped はキュー満杯による破棄を記録する。
func (c *Collector) RecordSpotDropped() {
	c.spotDropped.Inc()
}

// RecordAnnouncementDelivered はアナウンス配信を記録する。
func (c *Collector) RecordAnnouncementDelivered() {
	c.annDelivered.Inc()
}

// SetConnectedSessions は接続中セッション数を設定する。
func (c *Collector) SetConnectedSessions(count int) {
	c.connectedSessions.Set(float64(count))
}

// RecordSpotsPurged はパージされたスポット数を記録する。
func (c *Collector) RecordSpotsPurged(count int64) {
	c.spotsPurged.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
