package detector

import (
	"fmt"
	"image"
	"sync"

	"github.com/okamyuji/skin-tone-analyzer/internal/colorspace"
	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
	"gocv.io/x/gocv"
)

// カスケード検出結果に付与する固定の信頼度
const cascadeConfidence = 0.9

// カスケード分類器の設定
type CascadeOptions struct {
	CascadeFile  string
	ScaleFactor  float64
	MinNeighbors int
	MinSize      int
}

func DefaultCascadeOptions() CascadeOptions {
	return CascadeOptions{
		ScaleFactor:  1.1,
		MinNeighbors: 4,
		MinSize:      30,
	}
}

// Haarカスケードによる顔検出
type CascadeLocator struct {
	mu      sync.Mutex
	cascade gocv.CascadeClassifier
	opts    CascadeOptions
}

// 新しいCascadeLocatorを作成
func NewCascadeLocator(opts CascadeOptions) (*CascadeLocator, error) {
	if opts.CascadeFile == "" {
		return nil, errors.ResourceError("カスケード分類器のファイルパスが指定されていません", nil)
	}
	def := DefaultCascadeOptions()
	if opts.ScaleFactor <= 1.0 {
		opts.ScaleFactor = def.ScaleFactor
	}
	if opts.MinNeighbors <= 0 {
		opts.MinNeighbors = def.MinNeighbors
	}
	if opts.MinSize <= 0 {
		opts.MinSize = def.MinSize
	}

	cascade := gocv.NewCascadeClassifier()
	if !cascade.Load(opts.CascadeFile) {
		cascade.Close()
		return nil, errors.ResourceError(fmt.Sprintf("カスケード分類器の読み込みに失敗: %s", opts.CascadeFile), nil)
	}
	return &CascadeLocator{cascade: cascade, opts: opts}, nil
}

func (l *CascadeLocator) Name() string {
	return MethodCascade
}

// 顔を検出
func (l *CascadeLocator) Locate(buf colorspace.PixelBuffer) ([]FaceBox, error) {
	rgb, err := buf.ToMat()
	if err != nil {
		return nil, err
	}
	defer rgb.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(rgb, &gray, gocv.ColorRGBToGray)

	minSize := image.Pt(l.opts.MinSize, l.opts.MinSize)

	l.mu.Lock()
	rects := l.cascade.DetectMultiScaleWithParams(gray, l.opts.ScaleFactor, l.opts.MinNeighbors, 0, minSize, image.Point{})
	l.mu.Unlock()

	faces := make([]FaceBox, 0, len(rects))
	for _, r := range rects {
		box := FaceBox{
			X:          r.Min.X,
			Y:          r.Min.Y,
			Width:      r.Dx(),
			Height:     r.Dy(),
			Confidence: cascadeConfidence,
			Source:     MethodCascade,
		}
		if box, ok := clip(box, buf.Width, buf.Height); ok {
			faces = append(faces, box)
		}
	}
	return faces, nil
}

// リソースを解放
func (l *CascadeLocator) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cascade.Close()
}
