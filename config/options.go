package config

import (
	"github.com/okamyuji/skin-tone-analyzer/internal/analyzer"
	"github.com/okamyuji/skin-tone-analyzer/internal/detector"
	"github.com/okamyuji/skin-tone-analyzer/internal/skin"
)

// 肌領域抽出器の設定に変換
func (c SkinConfig) Options() skin.Options {
	return skin.Options{
		Range: skin.HSVRange{
			HMin: c.HMin, SMin: c.SMin, VMin: c.VMin,
			HMax: c.HMax, SMax: c.SMax, VMax: c.VMax,
		},
		Padding:    c.Padding,
		KernelSize: c.KernelSize,
		MinPixels:  c.MinPixels,
	}
}

// 顔検出モデルの設定に変換
func (c DetectorConfig) ResourceOptions() analyzer.ResourceOptions {
	return analyzer.ResourceOptions{
		UseDNN: c.UseDNN,
		DNN: detector.DNNOptions{
			ProtoPath:     c.ProtoPath,
			ModelPath:     c.ModelPath,
			MinConfidence: c.MinConfidence,
			InputSize:     c.InputSize,
		},
		Cascade: detector.CascadeOptions{
			CascadeFile:  c.CascadeFile,
			ScaleFactor:  c.ScaleFactor,
			MinNeighbors: c.MinNeighbors,
			MinSize:      c.MinFaceSize,
		},
	}
}
