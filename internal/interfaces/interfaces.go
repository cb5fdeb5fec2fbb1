package interfaces

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/okamyuji/skin-tone-analyzer/internal/worker"
)

// メトリクス記録のインターフェース
type MetricsRecorder interface {
	ObserveRequest(ctx context.Context, method, path string, duration time.Duration, status int)
	RecordError(errorType, code string)
	RecordAnalysis(depth, undertone string, confidence float64)
	RecordDetection(method string, faces int)
	RecordProcessingTime(stage string, duration time.Duration)
}

// CloudWatchクライアントのインターフェース
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// ワーカープールのインターフェース
type WorkerPool interface {
	Submit(ctx context.Context, task worker.Task) (interface{}, error)
	Shutdown(ctx context.Context) error
	GetStats() worker.Stats
}

// 何もしないメトリクス記録
type NopMetrics struct{}

func (NopMetrics) ObserveRequest(context.Context, string, string, time.Duration, int) {}
func (NopMetrics) RecordError(string, string)                                          {}
func (NopMetrics) RecordAnalysis(string, string, float64)                              {}
func (NopMetrics) RecordDetection(string, int)                                         {}
func (NopMetrics) RecordProcessingTime(string, time.Duration)                          {}
