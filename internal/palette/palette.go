package palette

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/okamyuji/skin-tone-analyzer/internal/tone"
	"gopkg.in/yaml.v3"
)

//go:embed palettes.yaml
var defaultData []byte

// 色名が見つからない場合の既定値
const (
	DefaultColorName = "Color"
	DefaultMetalName = "Metal"
)

var hexPattern = regexp.MustCompile(`^#[0-9A-F]{6}$`)

// メイクアップの推奨色
type Makeup struct {
	Foundation []string `yaml:"foundation" json:"foundation"`
	Lipstick   []string `yaml:"lipstick" json:"lipstick"`
	Eyeshadow  []string `yaml:"eyeshadow" json:"eyeshadow"`
}

// ジュエリーの推奨色
type Jewelry struct {
	Metals []string `yaml:"metals" json:"metals"`
	Stones []string `yaml:"stones" json:"stones"`
}

// 1区分分のパレット
type Palette struct {
	Skin     string   `yaml:"skin" json:"skin"`
	Clothing []string `yaml:"clothing" json:"clothing"`
	Makeup   Makeup   `yaml:"makeup" json:"makeup"`
	Jewelry  Jewelry  `yaml:"jewelry" json:"jewelry"`
}

type entry struct {
	Depth     string `yaml:"depth"`
	Undertone string `yaml:"undertone"`
	Palette   `yaml:",inline"`
}

type document struct {
	Legacy   []entry           `yaml:"legacy"`
	Extended []entry           `yaml:"extended"`
	Colors   map[string]string `yaml:"colors"`
	Metals   map[string]string `yaml:"metals"`
}

type legacyKey struct {
	depth     tone.Depth
	undertone tone.Undertone
}

type extendedKey struct {
	depth     tone.ExtendedDepth
	undertone tone.ExtendedUndertone
}

// 読み取り専用のパレット表
// 起動時に一度だけ構築し、ポインタで共有する
type Table struct {
	legacy   map[legacyKey]Palette
	extended map[extendedKey]Palette
	colors   map[string]string
	metals   map[string]string
}

// 組み込みのパレット表を読み込む
func Default() (*Table, error) {
	return Parse(defaultData)
}

// ファイルからパレット表を読み込む
// パスが空の場合は組み込みデータを使う
func Load(path string) (*Table, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("パレットファイルの読み込みに失敗: %w", err)
	}
	return Parse(data)
}

// YAMLからパレット表を構築して検証する
func Parse(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("パレットのパースに失敗: %w", err)
	}

	t := &Table{
		legacy:   make(map[legacyKey]Palette, len(doc.Legacy)),
		extended: make(map[extendedKey]Palette, len(doc.Extended)),
		colors:   normalizeKeys(doc.Colors),
		metals:   normalizeKeys(doc.Metals),
	}

	for _, e := range doc.Legacy {
		d, err := tone.ParseDepth(e.Depth)
		if err != nil {
			return nil, err
		}
		u, err := tone.ParseUndertone(e.Undertone)
		if err != nil {
			return nil, err
		}
		p, err := normalizePalette(e.Palette)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", d, u, err)
		}
		t.legacy[legacyKey{d, u}] = p
	}

	for _, e := range doc.Extended {
		d, err := tone.ParseExtendedDepth(e.Depth)
		if err != nil {
			return nil, err
		}
		u, err := tone.ParseExtendedUndertone(e.Undertone)
		if err != nil {
			return nil, err
		}
		p, err := normalizePalette(e.Palette)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", d, u, err)
		}
		t.extended[extendedKey{d, u}] = p
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// 全区分のパレットが揃っているか検証
func (t *Table) Validate() error {
	for _, d := range tone.Depths {
		for _, u := range tone.Undertones {
			if _, ok := t.legacy[legacyKey{d, u}]; !ok {
				return fmt.Errorf("パレットが定義されていません: %s/%s", d, u)
			}
		}
	}
	for _, d := range tone.ExtendedDepths {
		for _, u := range tone.ExtendedUndertones {
			if _, ok := t.extended[extendedKey{d, u}]; !ok {
				return fmt.Errorf("拡張パレットが定義されていません: %s/%s", d, u)
			}
		}
	}
	return nil
}

// 従来方式のパレットを取得
// 未定義の組み合わせはMedium/Neutralにフォールバックし、fallbackにtrueを返す
func (t *Table) Resolve(d tone.Depth, u tone.Undertone) (Palette, bool) {
	if p, ok := t.legacy[legacyKey{d, u}]; ok {
		return p, false
	}
	return t.legacy[legacyKey{tone.DepthMedium, tone.UndertoneNeutral}], true
}

// 拡張方式のパレットを取得
func (t *Table) ResolveExtended(d tone.ExtendedDepth, u tone.ExtendedUndertone) (Palette, bool) {
	if p, ok := t.extended[extendedKey{d, u}]; ok {
		return p, false
	}
	return t.extended[extendedKey{tone.ExtendedDepthMedium, tone.ExtendedUndertoneNeutral}], true
}

// 色名を取得
func (t *Table) ColorName(hex string) string {
	if name, ok := t.colors[strings.ToUpper(hex)]; ok {
		return name
	}
	return DefaultColorName
}

// 金属名を取得
func (t *Table) MetalName(hex string) string {
	if name, ok := t.metals[strings.ToUpper(hex)]; ok {
		return name
	}
	return DefaultMetalName
}

// 色名の一覧を取得
func (t *Table) ColorNames(hexes []string) []string {
	names := make([]string, len(hexes))
	for i, h := range hexes {
		names[i] = t.ColorName(h)
	}
	return names
}

// 金属名の一覧を取得
func (t *Table) MetalNames(hexes []string) []string {
	names := make([]string, len(hexes))
	for i, h := range hexes {
		names[i] = t.MetalName(h)
	}
	return names
}

// #RRGGBB形式か判定
func IsHex(s string) bool {
	return hexPattern.MatchString(s)
}

// 16進カラーをRGBに変換
func HexToRGB(hex string) (r, g, b uint8, err error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("不正なカラーコードです: %q", hex)
	}
	r, g, b = c.RGB255()
	return r, g, b, nil
}

// 16進カラーをHSVに変換
// hは0-360度、s/vは0-1
func HexToHSV(hex string) (h, s, v float64, err error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("不正なカラーコードです: %q", hex)
	}
	h, s, v = c.Hsv()
	return h, s, v, nil
}

func normalizeKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToUpper(k)] = v
	}
	return out
}

func normalizePalette(p Palette) (Palette, error) {
	var err error
	check := func(field string, list []string, required bool) []string {
		if err != nil {
			return nil
		}
		if required && len(list) == 0 {
			err = fmt.Errorf("%sが空です", field)
			return nil
		}
		out := make([]string, len(list))
		for i, h := range list {
			h = strings.ToUpper(strings.TrimSpace(h))
			if !IsHex(h) {
				err = fmt.Errorf("%sに不正なカラーコードがあります: %q", field, list[i])
				return nil
			}
			out[i] = h
		}
		return out
	}

	out := Palette{
		Clothing: check("clothing", p.Clothing, true),
		Makeup: Makeup{
			Foundation: check("foundation", p.Makeup.Foundation, true),
			Lipstick:   check("lipstick", p.Makeup.Lipstick, true),
			Eyeshadow:  check("eyeshadow", p.Makeup.Eyeshadow, true),
		},
		Jewelry: Jewelry{
			Metals: check("metals", p.Jewelry.Metals, true),
			Stones: check("stones", p.Jewelry.Stones, true),
		},
	}
	// skinは必須
	if strings.TrimSpace(p.Skin) == "" && err == nil {
		err = fmt.Errorf("skinが空です")
	}
	if skin := check("skin", []string{p.Skin}, true); len(skin) == 1 {
		out.Skin = skin[0]
	}
	if err != nil {
		return Palette{}, err
	}
	return out, nil
}
