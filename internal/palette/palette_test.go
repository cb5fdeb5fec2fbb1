package palette

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/okamyuji/skin-tone-analyzer/internal/tone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	table, err := Default()
	require.NoError(t, err)
	return table
}

func TestDefault_AllLegacyPairs(t *testing.T) {
	table := newTestTable(t)

	for _, d := range tone.Depths {
		for _, u := range tone.Undertones {
			p, fallback := table.Resolve(d, u)
			assert.False(t, fallback, "%s/%s", d, u)
			assertPalette(t, p)
		}
	}
}

func TestDefault_AllExtendedPairs(t *testing.T) {
	table := newTestTable(t)

	seen := map[string]bool{}
	for _, d := range tone.ExtendedDepths {
		for _, u := range tone.ExtendedUndertones {
			p, fallback := table.ResolveExtended(d, u)
			assert.False(t, fallback, "%s/%s", d, u)
			assertPalette(t, p)
			seen[string(d)+"/"+string(u)] = true
		}
	}
	assert.Len(t, seen, 30)
}

func assertPalette(t *testing.T, p Palette) {
	t.Helper()
	require.NotEmpty(t, p.Jewelry.Metals)
	require.NotEmpty(t, p.Jewelry.Stones)
	require.NotEmpty(t, p.Clothing)

	all := append([]string{}, p.Clothing...)
	all = append(all, p.Makeup.Foundation...)
	all = append(all, p.Makeup.Lipstick...)
	all = append(all, p.Makeup.Eyeshadow...)
	all = append(all, p.Jewelry.Metals...)
	all = append(all, p.Jewelry.Stones...)
	for _, h := range all {
		assert.True(t, IsHex(h), "不正なカラーコード: %s", h)
	}
	assert.True(t, IsHex(p.Skin), "不正な肌色: %s", p.Skin)
}

func TestResolve_LegacyValues(t *testing.T) {
	table := newTestTable(t)

	p, _ := table.Resolve(tone.DepthFair, tone.UndertoneWarm)
	assert.Equal(t, []string{"#FFB347", "#FF8C00", "#CD853F", "#DEB887", "#F4A460", "#DAA520"}, p.Clothing)
	assert.Equal(t, []string{"#FFD700", "#B76E79"}, p.Jewelry.Metals)
	assert.Equal(t, "#F5D7C3", p.Skin)

	p, _ = table.Resolve(tone.DepthDark, tone.UndertoneCool)
	assert.Equal(t, []string{"#C0C0C0", "#E8E8E8"}, p.Jewelry.Metals)
}

func TestResolve_Fallback(t *testing.T) {
	table := newTestTable(t)
	want, _ := table.Resolve(tone.DepthMedium, tone.UndertoneNeutral)

	got, fallback := table.Resolve(tone.Depth("Unknown"), tone.UndertoneWarm)
	assert.True(t, fallback)
	assert.Equal(t, want, got)

	wantExt, _ := table.ResolveExtended(tone.ExtendedDepthMedium, tone.ExtendedUndertoneNeutral)
	gotExt, fallback := table.ResolveExtended(tone.ExtendedDepth("Pale"), tone.ExtendedUndertoneOlive)
	assert.True(t, fallback)
	assert.Equal(t, wantExt, gotExt)
}

func TestNames(t *testing.T) {
	table := newTestTable(t)

	assert.Equal(t, "Peach", table.ColorName("#FFB347"))
	assert.Equal(t, "Peach", table.ColorName("#ffb347"))
	assert.Equal(t, "Ghost White", table.ColorName("#E8E8E8"))
	assert.Equal(t, DefaultColorName, table.ColorName("#123456"))

	assert.Equal(t, "Platinum", table.MetalName("#E8E8E8"))
	assert.Equal(t, "Rose Gold", table.MetalName("#B76E79"))
	assert.Equal(t, DefaultMetalName, table.MetalName("#123456"))

	assert.Equal(t, []string{"Gold", "Silver"}, table.MetalNames([]string{"#FFD700", "#C0C0C0"}))
	assert.Equal(t, []string{"Tomato", "Color"}, table.ColorNames([]string{"#FF6347", "#010101"}))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"不正なYAML", "legacy: ["},
		{"不足している区分", "legacy: []\nextended: []\n"},
		{
			"不正なカラーコード",
			`legacy:
  - depth: Fair
    undertone: Warm
    clothing: ["red"]
    makeup: {foundation: ["#FFFFFF"], lipstick: ["#FFFFFF"], eyeshadow: ["#FFFFFF"]}
    jewelry: {metals: ["#FFFFFF"], stones: ["#FFFFFF"]}
`,
		},
		{
			"肌色がない",
			`legacy:
  - depth: Fair
    undertone: Warm
    clothing: ["#FFFFFF"]
    makeup: {foundation: ["#FFFFFF"], lipstick: ["#FFFFFF"], eyeshadow: ["#FFFFFF"]}
    jewelry: {metals: ["#FFFFFF"], stones: ["#FFFFFF"]}
`,
		},
		{
			"不正な肌色",
			`legacy:
  - depth: Fair
    undertone: Warm
    skin: "beige"
    clothing: ["#FFFFFF"]
    makeup: {foundation: ["#FFFFFF"], lipstick: ["#FFFFFF"], eyeshadow: ["#FFFFFF"]}
    jewelry: {metals: ["#FFFFFF"], stones: ["#FFFFFF"]}
`,
		},
		{
			"不明な明るさ",
			`legacy:
  - depth: Pale
    undertone: Warm
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

// 肌色を省いた上書きファイルは読み込み時に拒否する
func TestLoad_MissingSkin(t *testing.T) {
	data := regexp.MustCompile(`(?m)^    skin: .*\n`).ReplaceAll(defaultData, nil)
	require.NotEqual(t, len(defaultData), len(data))

	path := filepath.Join(t.TempDir(), "palettes.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "skin")
}

func TestLoad(t *testing.T) {
	table, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, table)

	path := filepath.Join(t.TempDir(), "palettes.yaml")
	require.NoError(t, os.WriteFile(path, defaultData, 0644))
	table, err = Load(path)
	require.NoError(t, err)
	require.NotNil(t, table)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestHexToRGB(t *testing.T) {
	r, g, b, err := HexToRGB("#D4A574")
	require.NoError(t, err)
	assert.Equal(t, []uint8{0xD4, 0xA5, 0x74}, []uint8{r, g, b})

	_, _, _, err = HexToRGB("nothex")
	assert.Error(t, err)
}

func TestHexToHSV(t *testing.T) {
	h, s, v, err := HexToHSV("#FF0000")
	require.NoError(t, err)
	assert.InDelta(t, 0, h, 0.01)
	assert.InDelta(t, 1, s, 0.01)
	assert.InDelta(t, 1, v, 0.01)

	_, _, _, err = HexToHSV("#GGGGGG")
	assert.Error(t, err)
}
