package skin

import (
	"image"
	"testing"

	"github.com/okamyuji/skin-tone-analyzer/internal/colorspace"
	"github.com/okamyuji/skin-tone-analyzer/internal/detector"
	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// 白背景を除外し、一般的な肌色を通す範囲
var permissiveRange = HSVRange{HMin: 0, SMin: 10, VMin: 0, HMax: 50, SMax: 255, VMax: 255}

func newTestExtractor(t *testing.T, r HSVRange) *Extractor {
	t.Helper()
	opts := DefaultOptions()
	opts.Range = r
	e, err := NewExtractor(opts)
	require.NoError(t, err)
	return e
}

func toHSV(t *testing.T, buf colorspace.PixelBuffer) gocv.Mat {
	t.Helper()
	hsv, err := colorspace.ToHSV(buf)
	require.NoError(t, err)
	return hsv
}

func TestPaddedRegion(t *testing.T) {
	tests := []struct {
		name   string
		box    detector.FaceBox
		w, h   int
		expect image.Rectangle
	}{
		{
			name:   "中央",
			box:    detector.FaceBox{X: 60, Y: 60, Width: 80, Height: 80},
			w:      200,
			h:      200,
			expect: image.Rect(44, 44, 140, 140),
		},
		{
			name:   "左上の端",
			box:    detector.FaceBox{X: 0, Y: 0, Width: 50, Height: 50},
			w:      100,
			h:      100,
			expect: image.Rect(0, 0, 60, 60),
		},
		{
			name:   "右下の端",
			box:    detector.FaceBox{X: 80, Y: 80, Width: 20, Height: 20},
			w:      100,
			h:      100,
			expect: image.Rect(76, 76, 100, 100),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, PaddedRegion(tt.box, tt.w, tt.h, 0.2))
		})
	}
}

func TestNewExtractor_Invalid(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Options)
	}{
		{"カーネルサイズ0", func(o *Options) { o.KernelSize = 0 }},
		{"負のパディング", func(o *Options) { o.Padding = -0.1 }},
		{"負の最小ピクセル数", func(o *Options) { o.MinPixels = -1 }},
		{"逆転した範囲", func(o *Options) { o.Range.HMin = 100 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mod(&opts)
			_, err := NewExtractor(opts)
			assert.Error(t, err)
		})
	}
}

func TestExtract_FaceRegion(t *testing.T) {
	buf := colorspace.Uniform(200, 200, 255, 255, 255)
	buf.Fill(image.Rect(60, 60, 140, 140), 210, 180, 140)
	// 顔領域の外にある肌色パッチ
	buf.Fill(image.Rect(160, 0, 200, 40), 210, 180, 140)

	hsv := toHSV(t, buf)
	defer hsv.Close()

	e := newTestExtractor(t, permissiveRange)
	mask, count, err := e.Extract(hsv, detector.FaceBox{X: 60, Y: 60, Width: 80, Height: 80})
	require.NoError(t, err)
	defer mask.Close()

	assert.Greater(t, count, 6000)
	assert.LessOrEqual(t, count, 80*80)
	assert.Equal(t, count, gocv.CountNonZero(mask))

	// 顔領域外のパッチは含まれない
	assert.Equal(t, uint8(0), mask.GetUCharAt(20, 180))
	assert.Equal(t, uint8(255), mask.GetUCharAt(100, 100))
	assert.Equal(t, 200, mask.Rows())
	assert.Equal(t, 200, mask.Cols())
}

func TestExtract_DefaultRangeRejectsBrightSkin(t *testing.T) {
	buf := colorspace.Uniform(200, 200, 255, 255, 255)
	buf.Fill(image.Rect(60, 60, 140, 140), 210, 180, 140)

	hsv := toHSV(t, buf)
	defer hsv.Close()

	e := newTestExtractor(t, DefaultOptions().Range)
	_, count, err := e.Extract(hsv, detector.FaceBox{X: 60, Y: 60, Width: 80, Height: 80})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInsufficientSkinRegion))
	assert.Equal(t, 0, count)
}

func TestExtract_DefaultRangeAcceptsDarkSkin(t *testing.T) {
	// RGB(80,60,55) -> H≈6, S≈80, V=80
	buf := colorspace.Uniform(200, 200, 255, 255, 255)
	buf.Fill(image.Rect(60, 60, 140, 140), 80, 60, 55)

	hsv := toHSV(t, buf)
	defer hsv.Close()

	e := newTestExtractor(t, HSVRange{HMin: 0, SMin: 5, VMin: 25, HMax: 50, SMax: 90, VMax: 95})
	mask, count, err := e.Extract(hsv, detector.FaceBox{X: 60, Y: 60, Width: 80, Height: 80})
	require.NoError(t, err)
	defer mask.Close()
	assert.Greater(t, count, 100)
}

func TestExtract_InsufficientPixels(t *testing.T) {
	buf := colorspace.Uniform(100, 100, 255, 255, 255)
	buf.Fill(image.Rect(40, 40, 47, 47), 210, 180, 140)

	hsv := toHSV(t, buf)
	defer hsv.Close()

	e := newTestExtractor(t, permissiveRange)
	_, count, err := e.Extract(hsv, detector.FaceBox{X: 30, Y: 30, Width: 30, Height: 30})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInsufficientSkinRegion))
	assert.Less(t, count, 100)
}

func TestExtract_EmptyMat(t *testing.T) {
	e := newTestExtractor(t, permissiveRange)
	empty := gocv.NewMat()
	defer empty.Close()

	_, _, err := e.Extract(empty, detector.FaceBox{Width: 10, Height: 10})
	assert.Error(t, err)
}
