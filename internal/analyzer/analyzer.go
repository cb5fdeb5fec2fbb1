package analyzer

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/okamyuji/skin-tone-analyzer/internal/colorspace"
	"github.com/okamyuji/skin-tone-analyzer/internal/detector"
	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
	"github.com/okamyuji/skin-tone-analyzer/internal/interfaces"
	"github.com/okamyuji/skin-tone-analyzer/internal/palette"
	"github.com/okamyuji/skin-tone-analyzer/internal/skin"
	"github.com/okamyuji/skin-tone-analyzer/internal/tone"
)

// 処理段階の名前 (メトリクスのラベル)
const (
	StageDetection  = "face_detection"
	StageExtraction = "skin_extraction"
	StageClassify   = "classification"
	StageTotal      = "total"
)

// 肌色分析のインターフェース
type SkinAnalyzerInterface interface {
	Analyze(buf colorspace.PixelBuffer) (*AnalysisResult, error)
}

// 顔検出から推奨色の決定までを行う
// 呼び出しごとの状態を持たないため複数のゴルーチンから同時に呼び出せる
type Analyzer struct {
	locator   detector.Locator
	extractor *skin.Extractor
	palettes  *palette.Table
	logger    *slog.Logger
	metrics   interfaces.MetricsRecorder
}

// Analyzerの設定
type Option func(*Analyzer)

// ロガーを設定
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// メトリクスの記録先を設定
func WithMetrics(m interfaces.MetricsRecorder) Option {
	return func(a *Analyzer) {
		if m != nil {
			a.metrics = m
		}
	}
}

// 新しいAnalyzerを作成
func New(locator detector.Locator, extractor *skin.Extractor, palettes *palette.Table, opts ...Option) (*Analyzer, error) {
	if locator == nil {
		return nil, errors.ResourceError("顔検出器が設定されていません", nil)
	}
	if extractor == nil {
		return nil, errors.ResourceError("肌領域抽出器が設定されていません", nil)
	}
	if palettes == nil {
		return nil, errors.ResourceError("パレット表が設定されていません", nil)
	}

	a := &Analyzer{
		locator:   locator,
		extractor: extractor,
		palettes:  palettes,
		logger:    slog.Default(),
		metrics:   interfaces.NopMetrics{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// 画像を分析する
func (a *Analyzer) Analyze(buf colorspace.PixelBuffer) (result *AnalysisResult, err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("分析中にパニックが発生",
				"panic", r,
				"stack", string(debug.Stack()))
			result = nil
			err = errors.ClassificationFailure(errors.MsgClassificationFailure, fmt.Errorf("panic: %v", r))
			a.recordError(err)
			return
		}
		if err != nil {
			a.recordError(err)
			a.logFailure(err)
		}
	}()

	if err := buf.Validate(); err != nil {
		return nil, err
	}

	// 顔検出
	t := time.Now()
	faces, err := a.locator.Locate(buf)
	a.metrics.RecordProcessingTime(StageDetection, time.Since(t))
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeInvalidInput) {
			return nil, err
		}
		return nil, errors.ResourceError("顔検出に失敗しました", err).WithCode(errors.ErrCodeUnavailable)
	}
	if len(faces) == 0 {
		a.logger.Info("顔が検出されませんでした", "width", buf.Width, "height", buf.Height)
		return nil, errors.NoFaceDetected()
	}
	face := faces[0]
	a.metrics.RecordDetection(face.Source, len(faces))

	// 肌領域の抽出
	t = time.Now()
	hsv, err := colorspace.ToHSV(buf)
	if err != nil {
		return nil, err
	}
	defer hsv.Close()

	mask, pixels, err := a.extractor.Extract(hsv, face)
	a.metrics.RecordProcessingTime(StageExtraction, time.Since(t))
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeInsufficientSkinRegion) {
			a.logger.Info("肌領域が不足しています",
				"pixels", pixels,
				"required", a.extractor.Options().MinPixels)
		}
		return nil, err
	}
	defer mask.Close()

	// 分類
	t = time.Now()
	stats, err := tone.ComputeStats(hsv, mask)
	if err != nil {
		return nil, errors.ClassificationFailure(errors.MsgClassificationFailure, err)
	}
	cls := tone.Classify(stats)
	a.metrics.RecordProcessingTime(StageClassify, time.Since(t))

	result, err = a.compose(cls, stats, face)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	result.Details.ProcessingTimeMs = elapsed.Milliseconds()
	a.metrics.RecordProcessingTime(StageTotal, elapsed)
	a.metrics.RecordAnalysis(string(cls.Depth), string(cls.Undertone), cls.Confidence)

	a.logger.Debug("分析が完了しました",
		"depth", cls.Depth,
		"undertone", cls.Undertone,
		"extended_depth", cls.ExtendedDepth,
		"extended_undertone", cls.ExtendedUndertone,
		"confidence", cls.Confidence,
		"pixels", stats.PixelCount,
		"method", face.Source)

	return result, nil
}

// 検出器の名前
func (a *Analyzer) DetectorName() string {
	return a.locator.Name()
}

// パレット表
func (a *Analyzer) Palettes() *palette.Table {
	return a.palettes
}

func (a *Analyzer) recordError(err error) {
	e := errors.From(err)
	a.metrics.RecordError(string(e.Type), e.Code)
}

// 分類失敗は原因とともにerrorで記録する
func (a *Analyzer) logFailure(err error) {
	e := errors.From(err)
	if e.Type != errors.ErrorTypeClassificationFailure {
		return
	}
	a.logger.Error("分類に失敗",
		"code", e.Code,
		"error", e.Message,
		"cause", e.Err)
}
