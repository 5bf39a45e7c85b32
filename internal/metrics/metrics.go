// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ティックの結果
const (
	TickOutcomeGenerated = "generated" // 投稿を生成した
	TickOutcomeWaiting   = "waiting"   // 間隔または日次上限により生成しなかった
	TickOutcomeDisabled  = "disabled"  // 設定なし、一時停止中、またはposts_per_day=0
	TickOutcomeFailed    = "failed"    // パイプラインまたは保存に失敗した
	TickOutcomeBusy      = "busy"      // 前のティックが実行中のためスキップした
)

// MetricsCollector はメトリクス収集のインターフェース。
// スケジューラやミドルウェアから利用する。
type MetricsCollector interface {
	RecordTick(outcome string)
	RecordGeneration(trigger string)
	RecordPipelineFailure(stage string)
	RecordPipelineLatency(duration time.Duration)
	SetPostsGeneratedToday(count int)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	ticks           *prometheus.CounterVec
	generations     *prometheus.CounterVec
	pipelineFail    *prometheus.CounterVec
	pipelineLatency prometheus.Histogram
	postsToday      prometheus.Gauge
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autoblog_scheduler_ticks_total",
			Help: "結果別のスケジューラティック数",
		}, []string{"outcome"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autoblog_posts_generated_total",
			Help: "生成契機別の生成投稿数",
		}, []string{"trigger"}),
		pipelineFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autoblog_pipeline_failures_total",
			Help: "段階別のコンテンツパイプライン失敗数",
		}, []string{"stage"}),
		pipelineLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "autoblog_pipeline_latency_seconds",
			Help:    "コンテンツパイプラインの所要時間（秒）",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		postsToday: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "autoblog_posts_generated_today",
			Help: "当日にスケジューラが生成した投稿数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autoblog_http_responses_total",
			Help: "Control APIのステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.ticks,
		c.generations,
		c.pipelineFail,
		c.pipelineLatency,
		c.postsToday,
		c.httpStatus,
	)

	return c
}

// RecordTick はティックの結果を記録する。
func (c *Collector) RecordTick(outcome string) {
	c.ticks.WithLabelValues(outcome).Inc()
}

// RecordGeneration は投稿の生成を記録する。
func (c *Collector) RecordGeneration(trigger string) {
	c.generations.WithLabelValues(trigger).Inc()
}

// RecordPipelineFailure はパイプラインの失敗を記録する。
func (c *Collector) RecordPipelineFailure(stage string) {
	c.pipelineFail.WithLabelValues(stage).Inc()
}

// RecordPipelineLatency はパイプラインの所要時間を記録する。
func (c *Collector) RecordPipelineLatency(duration time.Duration) {
	c.pipelineLatency.Observe(duration.Seconds())
}

// SetPostsGeneratedToday は当日の生成数を設定する。
func (c *Collector) SetPostsGeneratedToday(count int) {
	c.postsToday.Set(float64(count))
}

// RecordHTTPStatus はControl APIのレスポンスステータスを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// NopCollector は何も記録しないMetricsCollector。
type NopCollector struct{}

func (NopCollector) RecordTick(string) {}
func (NopCollector) RecordGeneration(string) {}
func (NopCollector) RecordPipelineFailure(string) {}
func (NopCollector) RecordPipelineLatency(time.Duration) {}
func (NopCollector) SetPostsGeneratedToday(int) {}
func (NopCollector) RecordHTTPStatus(int) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
