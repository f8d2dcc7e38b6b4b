// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// バッチワーカーから利用する。
type MetricsCollector interface {
	RecordReconcileSuccess()
	RecordReconcileFailure()
	RecordReconcileLatency(duration time.Duration)
	RecordEntriesInserted(count int)
	RecordEntriesSeen(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	reconcileSuccess prometheus.Counter
	reconcileFail    prometheus.Counter
	reconcileLatency prometheus.Histogram
	entriesInserted  prometheus.Counter
	entriesSeen      prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reconcileSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedline_reconcile_success_total",
			Help: "フィードリコンサイル成功の合計数",
		}),
		reconcileFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedline_reconcile_fail_total",
			Help: "フィードリコンサイル失敗の合計数",
		}),
		reconcileLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedline_reconcile_latency_seconds",
			Help:    "1フィードあたりのリコンサイル所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		entriesInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedline_entries_inserted_total",
			Help: "新規挿入された記事の合計数",
		}),
		entriesSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedline_entries_seen_total",
			Help: "フィードドキュメントから取得した記事の合計数",
		}),
	}

	reg.MustRegister(
		c.reconcileSuccess,
		c.reconcileFail,
		c.reconcileLatency,
		c.entriesInserted,
		c.entriesSeen,
	)

	return c
}

// RecordReconcileSuccess はリコンサイル成功を記録する。
func (c *Collector) RecordReconcileSuccess() {
	c.reconcileSuccess.Inc()
}

// RecordReconcileFailure はリコンサイル失敗を記録する。
func (c *Collector) RecordReconcileFailure() {
	c.reconcileFail.Inc()
}

// RecordReconcileLatency は1フィードのリコンサイル所要時間を記録する。
func (c *Collector) RecordReconcileLatency(duration time.Duration) {
	c.reconcileLatency.Observe(duration.Seconds())
}

// RecordEntriesInserted は新規挿入された記事数を記録する。
func (c *Collector) RecordEntriesInserted(count int) {
	c.entriesInserted.Add(float64(count))
}

// RecordEntriesSeen はフィードドキュメントから取得した記事数を記録する。
func (c *Collector) RecordEntriesSeen(count int) {
	c.entriesSeen.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
