package metrics

import (
	"context"
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// メトリクス名の接頭辞
const namespace = "skin_tone_analyzer"

// アプリケーションメトリクスを収集
type MetricsCollector struct {
	registry *prometheus.Registry

	// リクエストメトリクス
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorCounter    *prometheus.CounterVec
	activeRequests  prometheus.Gauge

	// 分析メトリクス
	analysisResults *prometheus.CounterVec
	processingTime  *prometheus.HistogramVec
	detections      *prometheus.CounterVec

	// リソースメトリクス
	memoryUsage    prometheus.Gauge
	goroutineCount prometheus.Gauge

	stopOnce sync.Once
	stop     chan struct{}
}

// 新しいメトリクスコレクターを作成
func NewMetricsCollector() *MetricsCollector {
	m := &MetricsCollector{stop: make(chan struct{})}

	// カスタムレジストリを作成
	m.registry = prometheus.NewRegistry()
	factory := promauto.With(m.registry)

	// リクエストメトリクス
	m.requestCounter = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "処理されたリクエストの総数",
	}, []string{"method", "path", "status"})

	m.requestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "request_duration_seconds",
		Help:      "リクエスト処理時間の分布",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"method", "path"})

	m.errorCounter = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "エラーの総数",
	}, []string{"type", "code"})

	m.activeRequests = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_requests",
		Help:      "現在処理中のリクエスト数",
	})

	// 分析メトリクス
	m.analysisResults = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analysis_results_total",
		Help:      "肌色分類の結果分布",
	}, []string{"depth", "undertone", "confidence_range"})

	m.processingTime = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "processing_time_seconds",
		Help:      "処理段階ごとの処理時間の分布",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"stage"})

	m.detections = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "face_detections_total",
		Help:      "検出方式ごとの顔検出数",
	}, []string{"method"})

	// リソースメトリクス
	m.memoryUsage = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "memory_bytes",
		Help:      "使用中のメモリ量",
	})

	m.goroutineCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "goroutines",
		Help:      "実行中のgoroutine数",
	})

	m.collectResourceMetrics()
	go m.collect()

	return m
}

// 定期的にメトリクスを収集
func (m *MetricsCollector) collect() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.collectResourceMetrics()
		}
	}
}

// リソース使用状況を収集
func (m *MetricsCollector) collectResourceMetrics() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	m.memoryUsage.Set(float64(stats.Alloc))
	m.goroutineCount.Set(float64(runtime.NumGoroutine()))
}

// 定期収集を停止
func (m *MetricsCollector) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// Prometheus形式で公開するハンドラ
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// レジストリ
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// リクエストメトリクスを記録
func (m *MetricsCollector) ObserveRequest(ctx context.Context, method, path string, duration time.Duration, status int) {
	m.requestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// 処理中リクエスト数を増減
func (m *MetricsCollector) TrackActive(delta float64) {
	m.activeRequests.Add(delta)
}

// エラーを記録
func (m *MetricsCollector) RecordError(errorType, code string) {
	m.errorCounter.WithLabelValues(errorType, code).Inc()
}

// 分析結果を記録
func (m *MetricsCollector) RecordAnalysis(depth, undertone string, confidence float64) {
	m.analysisResults.WithLabelValues(depth, undertone, getConfidenceRange(confidence)).Inc()
}

// 顔検出を記録
func (m *MetricsCollector) RecordDetection(method string, faces int) {
	m.detections.WithLabelValues(method).Add(float64(faces))
}

// 信頼度の範囲を文字列で返す
func getConfidenceRange(confidence float64) string {
	switch {
	case confidence >= 0.9:
		return "very_high"
	case confidence >= 0.7:
		return "high"
	case confidence >= 0.5:
		return "medium"
	case confidence >= 0.3:
		return "low"
	default:
		return "very_low"
	}
}

// 処理時間を記録
func (m *MetricsCollector) RecordProcessingTime(stage string, duration time.Duration) {
	m.processingTime.WithLabelValues(stage).Observe(duration.Seconds())
}
