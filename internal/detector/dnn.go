package detector

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/okamyuji/skin-tone-analyzer/internal/colorspace"
	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
	"gocv.io/x/gocv"
)

// DNN検出器の設定
type DNNOptions struct {
	ProtoPath     string
	ModelPath     string
	MinConfidence float64
	InputSize     int
}

// 既定のDNN設定 (res10 SSD)
func DefaultDNNOptions() DNNOptions {
	return DNNOptions{
		MinConfidence: 0.5,
		InputSize:     300,
	}
}

// Caffe SSDによる顔検出
type DNNLocator struct {
	mu   sync.Mutex
	net  gocv.Net
	opts DNNOptions
}

// 新しいDNNLocatorを作成
// モデルを読み込めない場合はエラーを返す
func NewDNNLocator(opts DNNOptions) (*DNNLocator, error) {
	if opts.ProtoPath == "" || opts.ModelPath == "" {
		return nil, errors.ResourceError("DNNモデルのパスが指定されていません", nil)
	}
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = DefaultDNNOptions().MinConfidence
	}
	if opts.InputSize <= 0 {
		opts.InputSize = DefaultDNNOptions().InputSize
	}

	for _, path := range []string{opts.ProtoPath, opts.ModelPath} {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.ResourceError(fmt.Sprintf("DNNモデルが見つかりません: %s", path), err)
		}
	}

	net := gocv.ReadNetFromCaffe(opts.ProtoPath, opts.ModelPath)
	if net.Empty() {
		net.Close()
		return nil, errors.ResourceError(fmt.Sprintf("DNNモデルの読み込みに失敗: %s", opts.ModelPath), nil)
	}
	return &DNNLocator{net: net, opts: opts}, nil
}

func (l *DNNLocator) Name() string {
	return MethodDNN
}

// 顔を検出
func (l *DNNLocator) Locate(buf colorspace.PixelBuffer) ([]FaceBox, error) {
	img, err := colorspace.ToBGR(buf)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	size := image.Pt(l.opts.InputSize, l.opts.InputSize)
	blob := gocv.BlobFromImage(img, 1.0, size, gocv.NewScalar(104.0, 177.0, 123.0, 0), false, false)
	defer blob.Close()

	l.mu.Lock()
	l.net.SetInput(blob, "data")
	detBlob := l.net.Forward("detection_out")
	l.mu.Unlock()
	defer detBlob.Close()

	// 各行: imageId, classId, confidence, left, top, right, bottom
	detections := gocv.GetBlobChannel(detBlob, 0, 0)
	defer detections.Close()

	w := float64(buf.Width)
	h := float64(buf.Height)
	var faces []FaceBox
	for r := 0; r < detections.Rows(); r++ {
		confidence := float64(detections.GetFloatAt(r, 2))
		if confidence < l.opts.MinConfidence {
			continue
		}

		left := float64(detections.GetFloatAt(r, 3)) * w
		top := float64(detections.GetFloatAt(r, 4)) * h
		right := float64(detections.GetFloatAt(r, 5)) * w
		bottom := float64(detections.GetFloatAt(r, 6)) * h

		box := FaceBox{
			X:          max(0, int(left)),
			Y:          max(0, int(top)),
			Width:      int(right - left),
			Height:     int(bottom - top),
			Confidence: confidence,
			Source:     MethodDNN,
		}
		if box, ok := clip(box, buf.Width, buf.Height); ok {
			faces = append(faces, box)
		}
	}
	return faces, nil
}

// リソースを解放
func (l *DNNLocator) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.net.Close()
}
