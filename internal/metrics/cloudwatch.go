package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
	"github.com/okamyuji/skin-tone-analyzer/internal/interfaces"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// CloudWatchExporterの構造体
type CloudWatchExporter struct {
	client    interfaces.CloudWatchClient
	namespace string
	interval  time.Duration
	logger    *slog.Logger
}

// デフォルトの認証情報チェーンでCloudWatchクライアントを作成
func NewCloudWatchClient(ctx context.Context, region string) (*cloudwatch.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.AWSError("config", "LoadDefaultConfig", err)
	}
	return cloudwatch.NewFromConfig(cfg), nil
}

// 新しいCloudWatchExporterを作成
func NewCloudWatchExporter(client interfaces.CloudWatchClient, namespace string, interval time.Duration) *CloudWatchExporter {
	return &CloudWatchExporter{
		client:    client,
		namespace: namespace,
		interval:  interval,
		logger:    slog.Default(),
	}
}

// ロガーを差し替え
func (e *CloudWatchExporter) WithLogger(logger *slog.Logger) *CloudWatchExporter {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// コレクターの全系列を読み出す
func collectMetrics(c prometheus.Collector) []*dto.Metric {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		c.Collect(ch)
		close(ch)
	}()

	var out []*dto.Metric
	for m := range ch {
		pb := &dto.Metric{}
		if err := m.Write(pb); err != nil {
			continue
		}
		out = append(out, pb)
	}
	return out
}

// メトリクスから値を抽出
func extractValue(m *dto.Metric) float64 {
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Histogram != nil:
		return float64(m.Histogram.GetSampleCount())
	case m.Summary != nil:
		return float64(m.Summary.GetSampleCount())
	}
	return 0
}

// 全系列の合計
func getMetricValue(c prometheus.Collector) float64 {
	var total float64
	for _, m := range collectMetrics(c) {
		total += extractValue(m)
	}
	return total
}

// ラベル値を取得
func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// CloudWatchへ送るデータを組み立てる
func (e *CloudWatchExporter) buildMetricData(collector *MetricsCollector) []types.MetricDatum {
	data := []types.MetricDatum{
		{
			MetricName: aws.String(namespace + "_memory_bytes"),
			Value:      aws.Float64(getMetricValue(collector.memoryUsage)),
			Unit:       types.StandardUnitBytes,
		},
		{
			MetricName: aws.String(namespace + "_goroutines"),
			Value:      aws.Float64(getMetricValue(collector.goroutineCount)),
			Unit:       types.StandardUnitCount,
		},
		{
			MetricName: aws.String(namespace + "_requests_total"),
			Value:      aws.Float64(getMetricValue(collector.requestCounter)),
			Unit:       types.StandardUnitCount,
		},
		{
			MetricName: aws.String(namespace + "_errors_total"),
			Value:      aws.Float64(getMetricValue(collector.errorCounter)),
			Unit:       types.StandardUnitCount,
		},
		{
			MetricName: aws.String(namespace + "_analyses_total"),
			Value:      aws.Float64(getMetricValue(collector.analysisResults)),
			Unit:       types.StandardUnitCount,
		},
		{
			MetricName: aws.String(namespace + "_face_detections_total"),
			Value:      aws.Float64(getMetricValue(collector.detections)),
			Unit:       types.StandardUnitCount,
		},
	}

	return append(data, e.calculateProcessingTimeStats(collector)...)
}

// 処理段階ごとの平均処理時間
func (e *CloudWatchExporter) calculateProcessingTimeStats(collector *MetricsCollector) []types.MetricDatum {
	var stats []types.MetricDatum

	for _, m := range collectMetrics(collector.processingTime) {
		h := m.GetHistogram()
		if h == nil || h.GetSampleCount() == 0 {
			continue
		}

		stats = append(stats, types.MetricDatum{
			MetricName: aws.String(namespace + "_processing_time_seconds"),
			Value:      aws.Float64(h.GetSampleSum() / float64(h.GetSampleCount())),
			Unit:       types.StandardUnitSeconds,
			Dimensions: []types.Dimension{
				{
					Name:  aws.String("Stage"),
					Value: aws.String(labelValue(m, "stage")),
				},
			},
		})
	}

	return stats
}

// exportメソッド
func (e *CloudWatchExporter) export(ctx context.Context, collector *MetricsCollector) error {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(e.namespace),
		MetricData: e.buildMetricData(collector),
	}

	if _, err := e.client.PutMetricData(ctx, input); err != nil {
		return errors.AWSError("cloudwatch", "PutMetricData", err)
	}
	return nil
}

// メトリクスの定期的なエクスポートを開始
func (e *CloudWatchExporter) Start(ctx context.Context, collector *MetricsCollector) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.export(ctx, collector); err != nil {
				e.logger.Error("メトリクスのエクスポートに失敗", "error", err)
			}
		}
	}
}
