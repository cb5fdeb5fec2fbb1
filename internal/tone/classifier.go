package tone

import (
	"math"

	"github.com/okamyuji/skin-tone-analyzer/internal/colorspace"
)

// 画素数ボーナスの条件と加算値
const (
	bonusPixelThreshold = 500
	pixelBonus          = 0.1
)

// 信頼度を計算
// Valueのばらつきが小さいほど高く、画素数が500を超えると0.1加算する
func Confidence(valueStd float64, pixelCount int) float64 {
	c := math.Max(0, 1-valueStd/colorspace.ValueScale)
	if pixelCount > bonusPixelThreshold {
		c += pixelBonus
	}
	return math.Min(1, c)
}

// 分類結果
type Classification struct {
	Depth             Depth
	Undertone         Undertone
	ExtendedDepth     ExtendedDepth
	ExtendedUndertone ExtendedUndertone
	HueDegrees        float64
	Confidence        float64
}

// 統計量から両方式の分類を行う
func Classify(s ColorStats) Classification {
	hue := NormalizeHue(colorspace.HueToDegrees(s.HueMean))
	return Classification{
		Depth:             ClassifyDepth(s.ValueMean),
		Undertone:         ClassifyUndertone(hue),
		ExtendedDepth:     ClassifyExtendedDepth(s.ValueMean),
		ExtendedUndertone: ClassifyExtendedUndertone(hue),
		HueDegrees:        hue,
		Confidence:        Confidence(s.ValueStd, s.PixelCount),
	}
}

// 拡張方式の分類を従来方式に変換
func LegacyMap(d ExtendedDepth, u ExtendedUndertone) (Depth, Undertone) {
	return d.Legacy(), u.Legacy()
}
