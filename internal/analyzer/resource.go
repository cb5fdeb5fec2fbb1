package analyzer

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/okamyuji/skin-tone-analyzer/internal/colorspace"
	"github.com/okamyuji/skin-tone-analyzer/internal/detector"
	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
	"github.com/okamyuji/skin-tone-analyzer/internal/resource"
)

// 顔検出モデルの設定
type ResourceOptions struct {
	UseDNN  bool
	DNN     detector.DNNOptions
	Cascade detector.CascadeOptions
}

// 顔検出モデルのライフサイクルを管理
// DNNモデルが読み込めない場合はカスケード分類器のみで動作する
type ResourceManager struct {
	mu            sync.RWMutex
	locator       detector.Locator
	dnnLoaded     bool
	cascadeLoaded bool
	closed        bool
	logger        *slog.Logger
}

// リソースの状態
type Status struct {
	DNNLoaded     bool   `json:"dnnLoaded"`
	CascadeLoaded bool   `json:"cascadeLoaded"`
	Method        string `json:"method"`
	IsClosed      bool   `json:"isClosed"`
}

// 新しいResourceManagerを作成
func NewResourceManager(opts ResourceOptions, logger *slog.Logger) (*ResourceManager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rm := &ResourceManager{logger: logger}

	var primary, fallback detector.Locator

	if opts.UseDNN {
		dnnOpts := opts.DNN
		dnnOpts.ProtoPath = resource.ResolvePath(dnnOpts.ProtoPath)
		dnnOpts.ModelPath = resource.ResolvePath(dnnOpts.ModelPath)
		dnn, err := detector.NewDNNLocator(dnnOpts)
		if err != nil {
			logger.Warn("DNNモデルを読み込めないためカスケード分類器のみを使用", "error", err)
		} else {
			primary = dnn
			rm.dnnLoaded = true
		}
	}

	cascadeOpts := opts.Cascade
	cascadeOpts.CascadeFile = resource.ResolvePath(cascadeOpts.CascadeFile)
	cascade, err := detector.NewCascadeLocator(cascadeOpts)
	if err != nil {
		if primary == nil {
			return nil, errors.ResourceError("顔検出モデルを読み込めません", err)
		}
		logger.Warn("カスケード分類器を読み込めません", "error", err)
	} else {
		fallback = cascade
		rm.cascadeLoaded = true
	}

	locator, err := detector.NewFallbackLocator(primary, fallback, logger)
	if err != nil {
		return nil, err
	}
	rm.locator = locator

	// ファイナライザーの登録
	runtime.SetFinalizer(rm, func(rm *ResourceManager) {
		if err := rm.Close(); err != nil {
			slog.Error("リソースマネージャーのクリーンアップに失敗", "error", err)
		}
	})

	return rm, nil
}

func (rm *ResourceManager) Name() string {
	return rm.locator.Name()
}

// 顔を検出
func (rm *ResourceManager) Locate(buf colorspace.PixelBuffer) ([]detector.FaceBox, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	if rm.closed {
		return nil, errors.ResourceError("リソースマネージャは既に終了しています", nil)
	}
	return rm.locator.Locate(buf)
}

// リソースを解放
func (rm *ResourceManager) Close() error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.closed {
		return nil
	}
	rm.closed = true
	if err := rm.locator.Close(); err != nil {
		return fmt.Errorf("リソースのクリーンアップに失敗: %w", err)
	}
	return nil
}

// リソースが解放済みかを確認
func (rm *ResourceManager) IsClosed() bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.closed
}

// リソースの状態を返す
func (rm *ResourceManager) GetStatus() Status {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	return Status{
		DNNLoaded:     rm.dnnLoaded,
		CascadeLoaded: rm.cascadeLoaded,
		Method:        rm.locator.Name(),
		IsClosed:      rm.closed,
	}
}
