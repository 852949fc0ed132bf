// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordLogin()
	RecordStoryCreated()
	RecordStoryUpdated()
	RecordStoryDeleted()
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins         prometheus.Counter
	storyCreated   prometheus.Counter
	storyUpdated   prometheus.Counter
	storyDeleted   prometheus.Counter
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storyhub_logins_total",
			Help: "ログイン成功の合計数",
		}),
		storyCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storyhub_stories_created_total",
			Help: "作成されたストーリーの合計数",
		}),
		storyUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storyhub_stories_updated_total",
			Help: "更新されたストーリーの合計数",
		}),
		storyDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storyhub_stories_deleted_total",
			Help: "削除されたストーリーの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storyhub_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "storyhub_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.logins,
		c.storyCreated,
		c.storyUpdated,
		c.storyDeleted,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordLogin はログイン成功を記録する。
func (c *Collector) RecordLogin() {
	c.logins.Inc()
}

// RecordStoryCreated はストーリー作成を記録する。
func (c *Collector) RecordStoryCreated() {
	c.storyCreated.Inc()
}

// RecordStoryUpdated はストーリー更新を記録する。
func (c *Collector) RecordStoryUpdated() {
	c.storyUpdated.Inc()
}

// RecordStoryDeleted はストーリー削除を記録する。
func (c *Collector) RecordStoryDeleted() {
	c.storyDeleted.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
