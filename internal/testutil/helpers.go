package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okamyuji/skin-tone-analyzer/config"
	"github.com/okamyuji/skin-tone-analyzer/internal/colorspace"
	"github.com/okamyuji/skin-tone-analyzer/internal/detector"
	"github.com/stretchr/testify/require"
)

// 合成画像の顔領域
var TestFace = detector.FaceBox{X: 60, Y: 60, Width: 80, Height: 80}

// 単色の肌でも抽出できる閾値
var PermissiveSkin = config.SkinConfig{
	HMin: 0, HMax: 50,
	SMin: 10, SMax: 255,
	VMin: 0, VMax: 255,
	Padding:    0.2,
	KernelSize: 5,
	MinPixels:  100,
}

// テスト用の設定を生成
func TestConfig() *config.Config {
	cfg := config.Default()
	cfg.App.Name = "test-app"
	cfg.App.Env = "test"
	cfg.App.Debug = true
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Server.ReadTimeout = 5 * time.Second
	cfg.Server.WriteTimeout = 10 * time.Second
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Security.RateLimit.RequestsPerMinute = 0
	cfg.Skin = PermissiveSkin
	cfg.Worker.MinWorkers = 1
	cfg.Worker.MaxWorkers = 2
	cfg.Worker.Timeout = 5 * time.Second
	cfg.Metrics.CloudWatch.Enabled = false
	cfg.Logging.Level = "error"
	return cfg
}

// 出力を捨てるロガー
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// 白背景の中央に単色の顔領域を置いたバッファ
func FaceBuffer(r, g, b uint8) colorspace.PixelBuffer {
	buf := colorspace.Uniform(200, 200, 255, 255, 255)
	buf.Fill(TestFace.Rect(), r, g, b)
	return buf
}

// バッファをimage.Imageに変換
func ToImage(buf colorspace.PixelBuffer) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			i := (y*buf.Width + x) * 3
			img.Set(x, y, color.RGBA{buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2], 255})
		}
	}
	return img
}

// PNGにエンコード
func EncodePNG(t testing.TB, buf colorspace.PixelBuffer) []byte {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, png.Encode(&out, ToImage(buf)))
	return out.Bytes()
}

// JPEGにエンコード
func EncodeJPEG(t testing.TB, buf colorspace.PixelBuffer, quality int) []byte {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, jpeg.Encode(&out, ToImage(buf), &jpeg.Options{Quality: quality}))
	return out.Bytes()
}

// 肌色の顔を含むPNG
func FacePNG(t testing.TB) []byte {
	t.Helper()
	return EncodePNG(t, FaceBuffer(210, 180, 140))
}

// multipart/form-dataのボディを作成
func MultipartBody(t testing.TB, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

// 画像アップロードのリクエストを作成
func UploadRequest(t testing.TB, url, filename string, data []byte) *http.Request {
	t.Helper()
	body, contentType := MultipartBody(t, "file", filename, data)
	req, err := http.NewRequest(http.MethodPost, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	return req
}

// 一時ディレクトリに画像ファイルを書き出す
func WriteTempImage(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}
