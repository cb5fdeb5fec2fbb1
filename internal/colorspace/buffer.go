package colorspace

import (
	"fmt"
	"image"

	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
	"gocv.io/x/gocv"
)

// RGB画素バッファ
// Pixは行優先でR,G,Bの順に並ぶ
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// 形状を検証してPixelBufferを作成
func NewPixelBuffer(width, height int, pix []uint8) (PixelBuffer, error) {
	buf := PixelBuffer{Width: width, Height: height, Pix: pix}
	if err := buf.Validate(); err != nil {
		return PixelBuffer{}, err
	}
	return buf, nil
}

// 単色で塗りつぶしたバッファ
func Uniform(width, height int, r, g, b uint8) PixelBuffer {
	pix := make([]uint8, width*height*3)
	for i := 0; i < len(pix); i += 3 {
		pix[i], pix[i+1], pix[i+2] = r, g, b
	}
	return PixelBuffer{Width: width, Height: height, Pix: pix}
}

// image.Imageから変換
func FromImage(img image.Image) (PixelBuffer, error) {
	if img == nil {
		return PixelBuffer{}, errors.InvalidInput("画像がnilです", nil)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pix := make([]uint8, 0, w*h*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			pix = append(pix, uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}
	return NewPixelBuffer(w, h, pix)
}

// 形状の検証
func (b PixelBuffer) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return errors.InvalidInput(fmt.Sprintf("不正な画像サイズです: %dx%d", b.Width, b.Height), nil)
	}
	if want := b.Width * b.Height * 3; len(b.Pix) != want {
		return errors.InvalidInput(fmt.Sprintf("画素数が一致しません: got %d, want %d", len(b.Pix), want), nil)
	}
	return nil
}

// 指定座標の画素を上書き
func (b PixelBuffer) Set(x, y int, r, g, bl uint8) {
	i := (y*b.Width + x) * 3
	b.Pix[i], b.Pix[i+1], b.Pix[i+2] = r, g, bl
}

// 矩形範囲を単色で塗る
func (b PixelBuffer) Fill(rect image.Rectangle, r, g, bl uint8) {
	rect = rect.Intersect(image.Rect(0, 0, b.Width, b.Height))
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			b.Set(x, y, r, g, bl)
		}
	}
}

// 画像の範囲
func (b PixelBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

// RGB順の3チャンネルMatを作成
// 呼び出し側でCloseすること
func (b PixelBuffer) ToMat() (gocv.Mat, error) {
	if err := b.Validate(); err != nil {
		return gocv.NewMat(), err
	}
	mat, err := gocv.NewMatFromBytes(b.Height, b.Width, gocv.MatTypeCV8UC3, b.Pix)
	if err != nil {
		return gocv.NewMat(), errors.OpenCVError("NewMatFromBytes", err)
	}
	return mat, nil
}
