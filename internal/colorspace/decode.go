package colorspace

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
	"golang.org/x/image/draw"
)

// JPEG/PNGをデコードしてPixelBufferに変換
// 長辺がmaxDimensionを超える場合は縦横比を保って縮小する (0以下なら縮小しない)
func Decode(data []byte, maxDimension int) (PixelBuffer, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return PixelBuffer{}, errors.InvalidInput("画像のデコードに失敗しました", err).
			WithCode(errors.ErrCodeInvalidImage)
	}
	return FromImage(Downscale(img, maxDimension))
}

// 長辺がmaxDimension以下になるよう縮小
func Downscale(img image.Image, maxDimension int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDimension <= 0 || (w <= maxDimension && h <= maxDimension) {
		return img
	}

	scale := float64(maxDimension) / float64(max(w, h))
	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
