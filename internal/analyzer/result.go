package analyzer

import (
	"fmt"
	"math"

	"github.com/okamyuji/skin-tone-analyzer/internal/colorspace"
	"github.com/okamyuji/skin-tone-analyzer/internal/detector"
	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
	"github.com/okamyuji/skin-tone-analyzer/internal/palette"
	"github.com/okamyuji/skin-tone-analyzer/internal/tone"
)

// 信頼度がこの値を下回る場合は撮り直しを勧める
const RecommendedRetryIfBelow = 0.70

// 分析結果
type AnalysisResult struct {
	Skin                    SkinAnalysis     `json:"skinAnalysis"`
	Extended                ExtendedAnalysis `json:"extendedAnalysis"`
	LegacyCompatible        LegacyPair       `json:"legacyCompatible"`
	Stats                   tone.ColorStats  `json:"colorStats"`
	Recommendations         Recommendations  `json:"recommendations"`
	ExtendedRecommendations Recommendations  `json:"extendedRecommendations"`
	Details                 AnalysisDetails  `json:"analysisDetails"`
}

// 従来方式の分類
type SkinAnalysis struct {
	Depth      tone.Depth     `json:"depth"`
	Undertone  tone.Undertone `json:"undertone"`
	Category   string         `json:"skinToneCategory"`
	Confidence float64        `json:"confidence"`
	SkinColor  SkinColor      `json:"skinColor"`
}

// 区分を代表する肌色
type SkinColor struct {
	Hex string   `json:"hex"`
	RGB [3]uint8 `json:"rgb"`
	HSV HSV      `json:"hsv"`
}

// hは0-360度、s/vは0-1
type HSV struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	V float64 `json:"v"`
}

// 拡張方式の分類
type ExtendedAnalysis struct {
	Depth              tone.ExtendedDepth     `json:"extendedDepth"`
	DepthLevel         int                    `json:"depthLevel"`
	DepthPercentile    string                 `json:"depthPercentile"`
	Undertone          tone.ExtendedUndertone `json:"extendedUndertone"`
	UndertoneHueRange  string                 `json:"undertoneHueRange"`
	UndertoneIntensity float64                `json:"undertoneIntensity"`
	Category           string                 `json:"skinToneCategory"`
	Confidence         float64                `json:"confidence"`
	Characteristics    Characteristics        `json:"characteristics"`
}

// アンダートーンの特徴
type Characteristics struct {
	HasOliveUndertones bool   `json:"hasOliveUndertones"`
	IsWarmDominant     bool   `json:"isWarmDominant"`
	UndertoneBalance   string `json:"undertoneBalance"`
}

// 拡張方式から変換した従来方式の組
type LegacyPair struct {
	Depth     tone.Depth     `json:"depth"`
	Undertone tone.Undertone `json:"undertone"`
}

// 推奨色
type Recommendations struct {
	Clothing ClothingRecommendation `json:"clothing"`
	Makeup   MakeupRecommendation   `json:"makeup"`
	Jewelry  JewelryRecommendation  `json:"jewelry"`
	Fallback bool                   `json:"fallback,omitempty"`
}

type NamedColors struct {
	HexCodes []string `json:"hexCodes"`
	Names    []string `json:"names"`
}

type ClothingRecommendation struct {
	BestColors  NamedColors `json:"bestColors"`
	Description string      `json:"description"`
}

type MakeupRecommendation struct {
	Foundation NamedColors `json:"foundation"`
	Lipstick   NamedColors `json:"lipstick"`
	Eyeshadow  NamedColors `json:"eyeshadow"`
}

type JewelryRecommendation struct {
	BestMetals  NamedColors `json:"bestMetals"`
	StoneColors NamedColors `json:"stoneColors"`
}

// 診断情報
type AnalysisDetails struct {
	Hue                     float64          `json:"hue"`
	Saturation              float64          `json:"saturation"`
	Brightness              float64          `json:"brightness"`
	UndertoneHue            float64          `json:"undertoneHue"`
	SkinPixelsDetected      int              `json:"skinPixelsDetected"`
	FaceBox                 detector.FaceBox `json:"faceBox"`
	FaceDetectionMethod     string           `json:"faceDetectionMethod"`
	RecommendedRetryIfBelow float64          `json:"recommendedRetryIfBelow"`
	NeedsRetry              bool             `json:"needsRetry"`
	ProcessingTimeMs        int64            `json:"processingTimeMs"`
}

// 分類結果から応答を組み立てる
func (a *Analyzer) compose(cls tone.Classification, stats tone.ColorStats, face detector.FaceBox) (*AnalysisResult, error) {
	legacyPalette, legacyFallback := a.palettes.Resolve(cls.Depth, cls.Undertone)
	extPalette, extFallback := a.palettes.ResolveExtended(cls.ExtendedDepth, cls.ExtendedUndertone)
	if legacyFallback || extFallback {
		a.logger.Warn("パレットが見つからないため既定値を使用",
			"depth", cls.Depth,
			"undertone", cls.Undertone,
			"extended_depth", cls.ExtendedDepth,
			"extended_undertone", cls.ExtendedUndertone)
	}

	skinColor, err := representativeColor(legacyPalette.Skin)
	if err != nil {
		return nil, errors.ClassificationFailure(errors.MsgClassificationFailure, err)
	}

	confidence := round(cls.Confidence, 2)
	saturation := round(stats.SaturationMean/colorspace.ValueScale, 2)
	legacyDepth, legacyUndertone := tone.LegacyMap(cls.ExtendedDepth, cls.ExtendedUndertone)

	return &AnalysisResult{
		Skin: SkinAnalysis{
			Depth:      cls.Depth,
			Undertone:  cls.Undertone,
			Category:   category(string(cls.Depth), string(cls.Undertone)),
			Confidence: confidence,
			SkinColor:  skinColor,
		},
		Extended: ExtendedAnalysis{
			Depth:              cls.ExtendedDepth,
			DepthLevel:         cls.ExtendedDepth.Level(),
			DepthPercentile:    cls.ExtendedDepth.Percentile().String(),
			Undertone:          cls.ExtendedUndertone,
			UndertoneHueRange:  cls.ExtendedUndertone.HueRange().String(),
			UndertoneIntensity: saturation,
			Category:           category(string(cls.ExtendedDepth), string(cls.ExtendedUndertone)),
			Confidence:         confidence,
			Characteristics:    characteristics(cls.ExtendedUndertone),
		},
		LegacyCompatible: LegacyPair{
			Depth:     legacyDepth,
			Undertone: legacyUndertone,
		},
		Stats:                   stats,
		Recommendations:         NewRecommendations(a.palettes, legacyPalette, string(cls.Depth), string(cls.Undertone), legacyFallback),
		ExtendedRecommendations: NewRecommendations(a.palettes, extPalette, string(cls.ExtendedDepth), string(cls.ExtendedUndertone), extFallback),
		Details: AnalysisDetails{
			Hue:                     round(stats.HueMean, 1),
			Saturation:              saturation,
			Brightness:              round(stats.ValueMean/colorspace.ValueScale, 2),
			UndertoneHue:            round(cls.HueDegrees, 1),
			SkinPixelsDetected:      stats.PixelCount,
			FaceBox:                 face,
			FaceDetectionMethod:     face.Source,
			RecommendedRetryIfBelow: RecommendedRetryIfBelow,
			NeedsRetry:              cls.Confidence < RecommendedRetryIfBelow,
		},
	}, nil
}

// パレットに色名を付けて推奨色を組み立てる
func NewRecommendations(t *palette.Table, p palette.Palette, depth, undertone string, fallback bool) Recommendations {
	colors := func(hexes []string) NamedColors {
		return NamedColors{HexCodes: hexes, Names: t.ColorNames(hexes)}
	}
	return Recommendations{
		Clothing: ClothingRecommendation{
			BestColors:  colors(p.Clothing),
			Description: fmt.Sprintf("Recommended clothing colors for %s skin with %s undertone", depth, undertone),
		},
		Makeup: MakeupRecommendation{
			Foundation: colors(p.Makeup.Foundation),
			Lipstick:   colors(p.Makeup.Lipstick),
			Eyeshadow:  colors(p.Makeup.Eyeshadow),
		},
		Jewelry: JewelryRecommendation{
			BestMetals:  NamedColors{HexCodes: p.Jewelry.Metals, Names: t.MetalNames(p.Jewelry.Metals)},
			StoneColors: colors(p.Jewelry.Stones),
		},
		Fallback: fallback,
	}
}

func representativeColor(hex string) (SkinColor, error) {
	r, g, b, err := palette.HexToRGB(hex)
	if err != nil {
		return SkinColor{}, err
	}
	h, s, v, err := palette.HexToHSV(hex)
	if err != nil {
		return SkinColor{}, err
	}
	return SkinColor{
		Hex: hex,
		RGB: [3]uint8{r, g, b},
		HSV: HSV{H: round(h, 1), S: round(s, 2), V: round(v, 2)},
	}, nil
}

func characteristics(u tone.ExtendedUndertone) Characteristics {
	balance := "Warm dominant"
	if u.IsCoolSpectrum() {
		balance = "Cool dominant"
	}
	return Characteristics{
		HasOliveUndertones: u == tone.ExtendedUndertoneOlive,
		IsWarmDominant:     u.IsWarmSpectrum(),
		UndertoneBalance:   balance,
	}
}

func category(depth, undertone string) string {
	return depth + "-" + undertone
}

func round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}
