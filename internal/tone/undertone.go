package tone

import (
	"fmt"
	"math"
)

// 従来方式のアンダートーン
type Undertone string

const (
	UndertoneWarm    Undertone = "Warm"
	UndertoneCool    Undertone = "Cool"
	UndertoneNeutral Undertone = "Neutral"
)

var Undertones = []Undertone{UndertoneWarm, UndertoneCool, UndertoneNeutral}

// 度数の色相を[0,360)に正規化
func NormalizeHue(deg float64) float64 {
	h := math.Mod(deg, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// 色相(度)から従来方式のアンダートーンを判定
// 判定は上から順に評価する
func ClassifyUndertone(hueDeg float64) Undertone {
	h := NormalizeHue(hueDeg)
	switch {
	case h >= 0 && h <= 35:
		return UndertoneWarm
	case h > 35 && h <= 60:
		return UndertoneNeutral
	case h >= 340:
		return UndertoneCool
	default:
		return UndertoneNeutral
	}
}

// 拡張方式のアンダートーン
type ExtendedUndertone string

const (
	ExtendedUndertoneWarm    ExtendedUndertone = "Warm"
	ExtendedUndertoneCool    ExtendedUndertone = "Cool"
	ExtendedUndertoneNeutral ExtendedUndertone = "Neutral"
	ExtendedUndertoneOlive   ExtendedUndertone = "Olive"
	ExtendedUndertoneGolden  ExtendedUndertone = "Golden"
)

var ExtendedUndertones = []ExtendedUndertone{
	ExtendedUndertoneWarm,
	ExtendedUndertoneCool,
	ExtendedUndertoneNeutral,
	ExtendedUndertoneOlive,
	ExtendedUndertoneGolden,
}

// 色相の範囲 (度)
type HueRange struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

func (r HueRange) String() string {
	return fmt.Sprintf("%d-%d°", r.Low, r.High)
}

var extendedHueRanges = map[ExtendedUndertone]HueRange{
	ExtendedUndertoneWarm:    {0, 30},
	ExtendedUndertoneCool:    {330, 360},
	ExtendedUndertoneNeutral: {30, 60},
	ExtendedUndertoneOlive:   {60, 90},
	ExtendedUndertoneGolden:  {90, 120},
}

// 色相(度)から拡張方式のアンダートーンを判定
func ClassifyExtendedUndertone(hueDeg float64) ExtendedUndertone {
	h := NormalizeHue(hueDeg)
	switch {
	case (h >= 0 && h <= 30) || h == 360:
		return ExtendedUndertoneWarm
	case h > 30 && h <= 60:
		return ExtendedUndertoneNeutral
	case h > 60 && h <= 90:
		return ExtendedUndertoneOlive
	case h > 90 && h <= 120:
		return ExtendedUndertoneGolden
	case h >= 330 && h < 360:
		return ExtendedUndertoneCool
	default:
		return ExtendedUndertoneNeutral
	}
}

// 代表的な色相範囲
func (u ExtendedUndertone) HueRange() HueRange {
	return extendedHueRanges[u]
}

// 寒色系かどうか
// Oliveは寒色系として扱う
func (u ExtendedUndertone) IsCoolSpectrum() bool {
	return u == ExtendedUndertoneCool || u == ExtendedUndertoneOlive
}

// 暖色系かどうか
func (u ExtendedUndertone) IsWarmSpectrum() bool {
	return u == ExtendedUndertoneWarm || u == ExtendedUndertoneGolden
}

// 従来方式への対応
// Oliveは従来方式ではNeutralになる
func (u ExtendedUndertone) Legacy() Undertone {
	switch u {
	case ExtendedUndertoneWarm, ExtendedUndertoneGolden:
		return UndertoneWarm
	case ExtendedUndertoneCool:
		return UndertoneCool
	default:
		return UndertoneNeutral
	}
}

func ParseUndertone(s string) (Undertone, error) {
	for _, u := range Undertones {
		if normalizeName(string(u)) == normalizeName(s) {
			return u, nil
		}
	}
	return "", fmt.Errorf("不明なアンダートーンです: %q", s)
}

func ParseExtendedUndertone(s string) (ExtendedUndertone, error) {
	for _, u := range ExtendedUndertones {
		if normalizeName(string(u)) == normalizeName(s) {
			return u, nil
		}
	}
	return "", fmt.Errorf("不明なアンダートーンです: %q", s)
}
