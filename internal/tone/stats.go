package tone

import (
	"fmt"

	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

// マスク内の肌画素の統計量
// Hueは0-180、Saturation/Valueは0-255のスケール
type ColorStats struct {
	HueMean        float64 `json:"hueMean"`
	HueStd         float64 `json:"hueStd"`
	SaturationMean float64 `json:"saturationMean"`
	ValueMean      float64 `json:"valueMean"`
	ValueStd       float64 `json:"valueStd"`
	PixelCount     int     `json:"pixelCount"`
}

// HSV Matとマスクから統計量を計算
func ComputeStats(hsv, mask gocv.Mat) (ColorStats, error) {
	if hsv.Empty() || mask.Empty() {
		return ColorStats{}, errors.OpenCVError("ComputeStats", errors.ErrOpenCVEmptyMat)
	}
	if hsv.Rows() != mask.Rows() || hsv.Cols() != mask.Cols() {
		return ColorStats{}, errors.InvalidInput(
			fmt.Sprintf("マスクのサイズが一致しません: %dx%d != %dx%d", mask.Cols(), mask.Rows(), hsv.Cols(), hsv.Rows()), nil)
	}

	pix := hsv.ToBytes()
	m := mask.ToBytes()

	n := gocv.CountNonZero(mask)
	hues := make([]float64, 0, n)
	sats := make([]float64, 0, n)
	vals := make([]float64, 0, n)
	for i, v := range m {
		if v == 0 {
			continue
		}
		hues = append(hues, float64(pix[i*3]))
		sats = append(sats, float64(pix[i*3+1]))
		vals = append(vals, float64(pix[i*3+2]))
	}
	return StatsFromChannels(hues, sats, vals)
}

// チャンネルごとの値から統計量を計算
// 標準偏差は母標準偏差
func StatsFromChannels(hues, sats, vals []float64) (ColorStats, error) {
	if len(hues) == 0 || len(hues) != len(sats) || len(hues) != len(vals) {
		return ColorStats{}, errors.InvalidInput("統計量を計算する画素がありません", nil)
	}

	hMean, hStd := stat.PopMeanStdDev(hues, nil)
	vMean, vStd := stat.PopMeanStdDev(vals, nil)

	return ColorStats{
		HueMean:        hMean,
		HueStd:         hStd,
		SaturationMean: stat.Mean(sats, nil),
		ValueMean:      vMean,
		ValueStd:       vStd,
		PixelCount:     len(hues),
	}, nil
}
