package detector

import (
	"fmt"
	"log/slog"

	"github.com/okamyuji/skin-tone-analyzer/internal/colorspace"
	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
)

// 主検出器が失敗した場合に代替検出器を使う
// 主検出器が空の結果を返した場合はそのまま返す
type FallbackLocator struct {
	primary  Locator
	fallback Locator
	logger   *slog.Logger
}

// 新しいFallbackLocatorを作成
// primaryはnilでもよい (DNNモデルが利用できない場合)
func NewFallbackLocator(primary, fallback Locator, logger *slog.Logger) (*FallbackLocator, error) {
	if primary == nil && fallback == nil {
		return nil, errors.ResourceError("顔検出器が設定されていません", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackLocator{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}, nil
}

func (l *FallbackLocator) Name() string {
	switch {
	case l.primary == nil:
		return l.fallback.Name()
	case l.fallback == nil:
		return l.primary.Name()
	default:
		return fmt.Sprintf("%s+%s", l.primary.Name(), l.fallback.Name())
	}
}

// 顔を検出
func (l *FallbackLocator) Locate(buf colorspace.PixelBuffer) ([]FaceBox, error) {
	if l.primary == nil {
		return l.fallback.Locate(buf)
	}

	faces, err := l.locatePrimary(buf)
	if err == nil {
		return faces, nil
	}
	if l.fallback == nil {
		return nil, err
	}

	l.logger.Warn("主検出器が失敗したため代替検出器を使用",
		"primary", l.primary.Name(),
		"fallback", l.fallback.Name(),
		"error", err)
	return l.fallback.Locate(buf)
}

// 主検出器のパニックはエラーとして扱い代替検出器に切り替える
func (l *FallbackLocator) locatePrimary(buf colorspace.PixelBuffer) (faces []FaceBox, err error) {
	defer func() {
		if r := recover(); r != nil {
			faces = nil
			err = errors.OpenCVError(l.primary.Name(), fmt.Errorf("panic: %v", r))
		}
	}()
	return l.primary.Locate(buf)
}

// リソースを解放
func (l *FallbackLocator) Close() error {
	var errs []error
	if l.primary != nil {
		if err := l.primary.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if l.fallback != nil {
		if err := l.fallback.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("検出器のクローズに失敗: %v", errs)
	}
	return nil
}
