package tone

import (
	"fmt"
	"strings"
)

// 従来方式の肌の明るさ
type Depth string

const (
	DepthFair   Depth = "Fair"
	DepthMedium Depth = "Medium"
	DepthDark   Depth = "Dark"
)

// 従来方式の全区分
var Depths = []Depth{DepthFair, DepthMedium, DepthDark}

// 平均Valueから明るさを判定
func ClassifyDepth(value float64) Depth {
	switch {
	case value > 166:
		return DepthFair
	case value > 115:
		return DepthMedium
	default:
		return DepthDark
	}
}

// 拡張方式の肌の明るさ
type ExtendedDepth string

const (
	ExtendedDepthVeryFair ExtendedDepth = "Very Fair"
	ExtendedDepthFair     ExtendedDepth = "Fair"
	ExtendedDepthMedium   ExtendedDepth = "Medium"
	ExtendedDepthTan      ExtendedDepth = "Tan"
	ExtendedDepthDark     ExtendedDepth = "Dark"
	ExtendedDepthDeep     ExtendedDepth = "Deep"
)

// パーセンタイル帯
type Band struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

func (b Band) String() string {
	return fmt.Sprintf("%d-%d%%", b.Low, b.High)
}

type depthInfo struct {
	threshold float64
	level     int
	band      Band
}

// 明るい順に並べる
var ExtendedDepths = []ExtendedDepth{
	ExtendedDepthVeryFair,
	ExtendedDepthFair,
	ExtendedDepthMedium,
	ExtendedDepthTan,
	ExtendedDepthDark,
	ExtendedDepthDeep,
}

var extendedDepthTable = map[ExtendedDepth]depthInfo{
	ExtendedDepthVeryFair: {threshold: 210, level: 1, band: Band{82, 100}},
	ExtendedDepthFair:     {threshold: 180, level: 2, band: Band{71, 82}},
	ExtendedDepthMedium:   {threshold: 140, level: 3, band: Band{55, 71}},
	ExtendedDepthTan:      {threshold: 100, level: 4, band: Band{39, 55}},
	ExtendedDepthDark:     {threshold: 60, level: 5, band: Band{24, 39}},
	ExtendedDepthDeep:     {threshold: -1, level: 6, band: Band{0, 24}},
}

// 平均Valueから拡張方式の明るさを判定
// 整数に切り捨てずに比較するため210.5はVery Fairになる
func ClassifyExtendedDepth(value float64) ExtendedDepth {
	for _, d := range ExtendedDepths {
		if value > extendedDepthTable[d].threshold {
			return d
		}
	}
	return ExtendedDepthDeep
}

// 明るさの段階 (1が最も明るい)
func (d ExtendedDepth) Level() int {
	return extendedDepthTable[d].level
}

// 人口分布上のパーセンタイル帯
func (d ExtendedDepth) Percentile() Band {
	return extendedDepthTable[d].band
}

// 従来方式への対応
func (d ExtendedDepth) Legacy() Depth {
	switch d {
	case ExtendedDepthVeryFair, ExtendedDepthFair:
		return DepthFair
	case ExtendedDepthMedium, ExtendedDepthTan:
		return DepthMedium
	default:
		return DepthDark
	}
}

// 文字列から従来方式の明るさを解析
func ParseDepth(s string) (Depth, error) {
	for _, d := range Depths {
		if normalizeName(string(d)) == normalizeName(s) {
			return d, nil
		}
	}
	return "", fmt.Errorf("不明な明るさです: %q", s)
}

// 文字列から拡張方式の明るさを解析
func ParseExtendedDepth(s string) (ExtendedDepth, error) {
	for _, d := range ExtendedDepths {
		if normalizeName(string(d)) == normalizeName(s) {
			return d, nil
		}
	}
	return "", fmt.Errorf("不明な明るさです: %q", s)
}

// "Very Fair" / "very-fair" / "VeryFair" を同一視する
func normalizeName(s string) string {
	r := strings.NewReplacer(" ", "", "-", "", "_", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(s)))
}
