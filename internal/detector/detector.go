package detector

import (
	"image"

	"github.com/okamyuji/skin-tone-analyzer/internal/colorspace"
)

// 検出方式の名前
const (
	MethodDNN     = "dnn"
	MethodCascade = "haar_cascade"
)

// 検出された顔の矩形 (絶対ピクセル座標)
type FaceBox struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// 矩形に変換
func (b FaceBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// 顔検出のインターフェース
type Locator interface {
	Locate(buf colorspace.PixelBuffer) ([]FaceBox, error)
	Name() string
	Close() error
}

// 矩形を画像内に収める
// 原点は0以上、幅と高さは画像の端まで
func clip(b FaceBox, width, height int) (FaceBox, bool) {
	r := b.Rect().Intersect(image.Rect(0, 0, width, height))
	if r.Empty() {
		return FaceBox{}, false
	}
	b.X, b.Y = r.Min.X, r.Min.Y
	b.Width, b.Height = r.Dx(), r.Dy()
	return b, true
}
