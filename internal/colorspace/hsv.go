package colorspace

import (
	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
	"gocv.io/x/gocv"
)

// OpenCVの8bit HSVスケール
const (
	HueScale   = 180
	ValueScale = 255
)

// RGBバッファをHSV Matに変換
// H: 0-180, S/V: 0-255
func ToHSV(buf PixelBuffer) (gocv.Mat, error) {
	rgb, err := buf.ToMat()
	if err != nil {
		return rgb, err
	}
	defer rgb.Close()

	hsv := gocv.NewMat()
	gocv.CvtColor(rgb, &hsv, gocv.ColorRGBToHSV)
	if hsv.Empty() {
		hsv.Close()
		return gocv.NewMat(), errors.OpenCVError("CvtColor", errors.ErrOpenCVEmptyMat)
	}
	return hsv, nil
}

// RGBバッファをBGR Matに変換
// 検出器はBGR入力を前提とする
func ToBGR(buf PixelBuffer) (gocv.Mat, error) {
	rgb, err := buf.ToMat()
	if err != nil {
		return rgb, err
	}
	defer rgb.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(rgb, &bgr, gocv.ColorRGBToBGR)
	return bgr, nil
}

// HueをOpenCVスケールから度数に変換
func HueToDegrees(h float64) float64 {
	return h / HueScale * 360
}
