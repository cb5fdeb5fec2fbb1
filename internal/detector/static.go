package detector

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okamyuji/skin-tone-analyzer/internal/colorspace"
)

// 手動指定の顔領域
const MethodManual = "manual"

// 固定の矩形を返す検出器
// 顔の位置が既知の場合に検出をスキップする
type StaticLocator struct {
	boxes []FaceBox
}

func NewStaticLocator(boxes ...FaceBox) *StaticLocator {
	out := make([]FaceBox, len(boxes))
	for i, b := range boxes {
		if b.Confidence == 0 {
			b.Confidence = 1
		}
		if b.Source == "" {
			b.Source = MethodManual
		}
		out[i] = b
	}
	return &StaticLocator{boxes: out}
}

func (l *StaticLocator) Name() string {
	return MethodManual
}

func (l *StaticLocator) Locate(buf colorspace.PixelBuffer) ([]FaceBox, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	faces := make([]FaceBox, 0, len(l.boxes))
	for _, b := range l.boxes {
		if b, ok := clip(b, buf.Width, buf.Height); ok {
			faces = append(faces, b)
		}
	}
	return faces, nil
}

func (l *StaticLocator) Close() error {
	return nil
}

// "x,y,w,h" 形式の文字列を解析
func ParseBox(s string) (FaceBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return FaceBox{}, fmt.Errorf("顔領域は x,y,w,h 形式で指定してください: %q", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return FaceBox{}, fmt.Errorf("顔領域の解析に失敗: %w", err)
		}
		v[i] = n
	}
	if v[0] < 0 || v[1] < 0 || v[2] <= 0 || v[3] <= 0 {
		return FaceBox{}, fmt.Errorf("不正な顔領域です: %q", s)
	}
	return FaceBox{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}
