package skin

import (
	"fmt"
	"image"

	"github.com/okamyuji/skin-tone-analyzer/internal/detector"
	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
	"gocv.io/x/gocv"
)

// HSVの閾値 (OpenCV 8bitスケール)
type HSVRange struct {
	HMin, SMin, VMin float64
	HMax, SMax, VMax float64
}

// 抽出パラメータ
type Options struct {
	Range      HSVRange
	Padding    float64
	KernelSize int
	MinPixels  int
}

// 既定の抽出パラメータ
func DefaultOptions() Options {
	return Options{
		Range: HSVRange{
			HMin: 0, SMin: 5, VMin: 25,
			HMax: 50, SMax: 65, VMax: 95,
		},
		Padding:    0.2,
		KernelSize: 5,
		MinPixels:  100,
	}
}

// 肌領域の抽出器
type Extractor struct {
	opts Options
}

// 新しいExtractorを作成
func NewExtractor(opts Options) (*Extractor, error) {
	if opts.KernelSize <= 0 {
		return nil, fmt.Errorf("不正なカーネルサイズです: %d", opts.KernelSize)
	}
	if opts.Padding < 0 {
		return nil, fmt.Errorf("不正なパディングです: %v", opts.Padding)
	}
	if opts.MinPixels < 0 {
		return nil, fmt.Errorf("不正な最小ピクセル数です: %d", opts.MinPixels)
	}
	r := opts.Range
	if r.HMin > r.HMax || r.SMin > r.SMax || r.VMin > r.VMax {
		return nil, fmt.Errorf("HSVの範囲が不正です: %+v", r)
	}
	return &Extractor{opts: opts}, nil
}

// 抽出パラメータ
func (e *Extractor) Options() Options {
	return e.opts
}

// 顔の矩形をパディングして画像内に収める
func PaddedRegion(box detector.FaceBox, width, height int, padding float64) image.Rectangle {
	fw := float64(box.Width)
	fh := float64(box.Height)

	x := max(0, int(float64(box.X)-fw*padding))
	y := max(0, int(float64(box.Y)-fh*padding))
	// 右下はパディング後の左上を基準にする
	x2 := min(width, int(float64(x)+fw+fw*padding))
	y2 := min(height, int(float64(y)+fh+fh*padding))

	return image.Rect(x, y, x2, y2)
}

// HSV画像から顔周辺の肌マスクを作る
// 戻り値のMatは呼び出し側でCloseすること
func (e *Extractor) Extract(hsv gocv.Mat, box detector.FaceBox) (gocv.Mat, int, error) {
	if hsv.Empty() {
		return gocv.NewMat(), 0, errors.OpenCVError("Extract", errors.ErrOpenCVEmptyMat)
	}

	r := e.opts.Range
	lower := gocv.NewScalar(r.HMin, r.SMin, r.VMin, 0)
	upper := gocv.NewScalar(r.HMax, r.SMax, r.VMax, 0)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.InRangeWithScalar(hsv, lower, upper, &mask)

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(e.opts.KernelSize, e.opts.KernelSize))
	defer kernel.Close()

	closed := gocv.NewMat()
	defer closed.Close()
	gocv.MorphologyEx(mask, &closed, gocv.MorphClose, kernel)

	opened := gocv.NewMat()
	defer opened.Close()
	gocv.MorphologyEx(closed, &opened, gocv.MorphOpen, kernel)

	// 顔領域以外をゼロにする
	region := PaddedRegion(box, hsv.Cols(), hsv.Rows(), e.opts.Padding)
	full := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), hsv.Rows(), hsv.Cols(), gocv.MatTypeCV8U)
	if !region.Empty() {
		src := opened.Region(region)
		dst := full.Region(region)
		src.CopyTo(&dst)
		src.Close()
		dst.Close()
	}

	count := gocv.CountNonZero(full)
	if count < e.opts.MinPixels {
		full.Close()
		return gocv.NewMat(), count, errors.InsufficientSkinRegion(count, e.opts.MinPixels)
	}
	return full, count, nil
}
