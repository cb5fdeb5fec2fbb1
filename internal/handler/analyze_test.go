package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okamyuji/skin-tone-analyzer/config"
	"github.com/okamyuji/skin-tone-analyzer/internal/analyzer"
	"github.com/okamyuji/skin-tone-analyzer/internal/colorspace"
	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
	"github.com/okamyuji/skin-tone-analyzer/internal/middleware"
	"github.com/okamyuji/skin-tone-analyzer/internal/response"
	"github.com/okamyuji/skin-tone-analyzer/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// モック分析器
type mockSkinAnalyzer struct {
	mu          sync.Mutex
	analyzeFunc func(buf colorspace.PixelBuffer) (*analyzer.AnalysisResult, error)
	lastWidth   int
	lastHeight  int
	callCount   int
}

func (m *mockSkinAnalyzer) Analyze(buf colorspace.PixelBuffer) (*analyzer.AnalysisResult, error) {
	m.mu.Lock()
	m.callCount++
	m.lastWidth, m.lastHeight = buf.Width, buf.Height
	m.mu.Unlock()
	return m.analyzeFunc(buf)
}

func (m *mockSkinAnalyzer) getCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func fairWarmResult() *analyzer.AnalysisResult {
	return &analyzer.AnalysisResult{
		Skin: analyzer.SkinAnalysis{
			Depth:      "Fair",
			Undertone:  "Warm",
			Category:   "Fair-Warm",
			Confidence: 0.92,
		},
	}
}

func succeed(*mockSkinAnalyzer) {}

func newMock(setup func(*mockSkinAnalyzer)) *mockSkinAnalyzer {
	m := &mockSkinAnalyzer{
		analyzeFunc: func(colorspace.PixelBuffer) (*analyzer.AnalysisResult, error) {
			return fairWarmResult(), nil
		},
	}
	setup(m)
	return m
}

func pngBytes(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{210, 180, 140, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t testing.TB, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, body io.Reader) response.ErrorResponse {
	t.Helper()
	var e response.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&e))
	return e
}

func TestAnalyzeHandler(t *testing.T) {
	imageCfg := config.Default().Image

	tests := []struct {
		name       string
		setup      func(*mockSkinAnalyzer)
		request    func(t *testing.T) *http.Request
		wantStatus int
		wantCode   string
		wantCalls  int
	}{
		{
			name:  "正常なPNG",
			setup: succeed,
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, "file", "face.png", pngBytes(t, 64, 48))
			},
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
		{
			name:  "fileフィールドなし",
			setup: succeed,
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, "image", "face.png", pngBytes(t, 8, 8))
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   errors.ErrCodeInvalidInput,
		},
		{
			name:  "画像ではないファイル",
			setup: succeed,
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, "file", "notes.txt", []byte("hello world"))
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   errors.ErrCodeUnsupportedMediaType,
		},
		{
			name:  "サイズ超過",
			setup: succeed,
			request: func(t *testing.T) *http.Request {
				data := make([]byte, imageCfg.MaxSize+1)
				copy(data, pngBytes(t, 8, 8))
				return multipartRequest(t, "file", "big.png", data)
			},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   errors.ErrCodeRequestTooLarge,
		},
		{
			name: "顔未検出",
			setup: func(m *mockSkinAnalyzer) {
				m.analyzeFunc = func(colorspace.PixelBuffer) (*analyzer.AnalysisResult, error) {
					return nil, errors.NoFaceDetected()
				}
			},
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, "file", "face.png", pngBytes(t, 16, 16))
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   errors.ErrCodeNoFaceDetected,
			wantCalls:  1,
		},
		{
			name: "肌領域不足",
			setup: func(m *mockSkinAnalyzer) {
				m.analyzeFunc = func(colorspace.PixelBuffer) (*analyzer.AnalysisResult, error) {
					return nil, errors.InsufficientSkinRegion(3, 100)
				}
			},
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, "file", "face.png", pngBytes(t, 16, 16))
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   errors.ErrCodeInsufficientSkinRegion,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(tt.setup)
			h := NewAnalyzeHandler(mock, nil, imageCfg, time.Second)

			rec := httptest.NewRecorder()
			h.HandleAnalyze(rec, tt.request(t))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalls, mock.getCallCount())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, rec.Body).Code)
			}
		})
	}
}

func TestAnalyzeHandler_ResponseBody(t *testing.T) {
	mock := newMock(succeed)
	h := NewAnalyzeHandler(mock, nil, config.Default().Image, time.Second)

	req := multipartRequest(t, "file", "face.png", pngBytes(t, 64, 48))
	var seenID string
	rec := httptest.NewRecorder()
	middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = middleware.RequestIDFromContext(r.Context())
		h.HandleAnalyze(w, r)
	})).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "face.png", body["filename"])
	assert.Equal(t, seenID, body["requestId"])
	assert.NotEmpty(t, body["timestamp"])

	skin, ok := body["skinAnalysis"].(map[string]interface{})
	require.True(t, ok, "skinAnalysisがトップレベルにありません")
	assert.Equal(t, "Fair", skin["depth"])
	assert.Equal(t, "Fair-Warm", skin["skinToneCategory"])

	assert.Equal(t, 64, mock.lastWidth)
	assert.Equal(t, 48, mock.lastHeight)
}

func TestAnalyzeHandler_FailureLogLevel(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
		wantCause string
	}{
		{
			name:      "分類失敗は原因とともにerror",
			err:       errors.ClassificationFailure(errors.MsgClassificationFailure, fmt.Errorf("不正なカラーコードです: \"\"")),
			wantLevel: "ERROR",
			wantCause: "不正なカラーコードです",
		},
		{
			name:      "顔未検出はinfo",
			err:       errors.NoFaceDetected(),
			wantLevel: "INFO",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(func(m *mockSkinAnalyzer) {
				m.analyzeFunc = func(colorspace.PixelBuffer) (*analyzer.AnalysisResult, error) {
					return nil, tt.err
				}
			})
			h := NewAnalyzeHandler(mock, nil, config.Default().Image, time.Second)

			var logs bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
			access := middleware.NewAccessLog(logger, nil)

			rec := httptest.NewRecorder()
			access.Middleware(http.HandlerFunc(h.HandleAnalyze)).
				ServeHTTP(rec, multipartRequest(t, "file", "face.png", pngBytes(t, 16, 16)))
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

			var found bool
			for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
				var entry map[string]interface{}
				require.NoError(t, json.Unmarshal([]byte(line), &entry))
				if entry["code"] != errors.From(tt.err).Code {
					continue
				}
				found = true
				assert.Equal(t, tt.wantLevel, entry["level"])
				if tt.wantCause != "" {
					assert.Contains(t, entry["error"], tt.wantCause)
				}
			}
			assert.True(t, found, "失敗のログがありません: %s", logs.String())
		})
	}
}

func TestAnalyzeHandler_Downscale(t *testing.T) {
	imageCfg := config.Default().Image
	imageCfg.MaxDimension = 32
	mock := newMock(succeed)
	h := NewAnalyzeHandler(mock, nil, imageCfg, time.Second)

	rec := httptest.NewRecorder()
	h.HandleAnalyze(rec, multipartRequest(t, "file", "face.png", pngBytes(t, 128, 64)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 32, mock.lastWidth)
	assert.Equal(t, 16, mock.lastHeight)
}

func TestAnalyzeHandler_WorkerPool(t *testing.T) {
	pool := worker.NewPool(1, 2)
	defer pool.Shutdown(context.Background())

	mock := newMock(succeed)
	h := NewAnalyzeHandler(mock, pool, config.Default().Image, time.Second)

	data := pngBytes(t, 16, 16)
	reqs := make([]*http.Request, 8)
	for i := range reqs {
		reqs[i] = multipartRequest(t, "file", "face.png", data)
	}

	var wg sync.WaitGroup
	codes := make([]int, len(reqs))
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := httptest.NewRecorder()
			h.HandleAnalyze(rec, reqs[i])
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	for _, c := range codes {
		assert.Equal(t, http.StatusOK, c)
	}
	assert.Equal(t, len(codes), mock.getCallCount())
}

func TestAnalyzeHandler_Timeout(t *testing.T) {
	pool := worker.NewPool(1, 1)
	defer pool.Shutdown(context.Background())

	release := make(chan struct{})
	defer close(release)
	mock := newMock(func(m *mockSkinAnalyzer) {
		m.analyzeFunc = func(colorspace.PixelBuffer) (*analyzer.AnalysisResult, error) {
			<-release
			return fairWarmResult(), nil
		}
	})
	h := NewAnalyzeHandler(mock, pool, config.Default().Image, 50*time.Millisecond)

	rec := httptest.NewRecorder()
	h.HandleAnalyze(rec, multipartRequest(t, "file", "face.png", pngBytes(t, 16, 16)))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, errors.ErrCodeTimeout, decodeError(t, rec.Body).Code)
}

func TestAnalyzeHandler_PoolShutdown(t *testing.T) {
	pool := worker.NewPool(1, 1)
	require.NoError(t, pool.Shutdown(context.Background()))

	h := NewAnalyzeHandler(newMock(succeed), pool, config.Default().Image, time.Second)

	rec := httptest.NewRecorder()
	h.HandleAnalyze(rec, multipartRequest(t, "file", "face.png", pngBytes(t, 16, 16)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, errors.ErrCodeUnavailable, decodeError(t, rec.Body).Code)
}

func BenchmarkAnalyzeHandler(b *testing.B) {
	h := NewAnalyzeHandler(newMock(succeed), nil, config.Default().Image, time.Second)
	data := pngBytes(b, 64, 64)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		h.HandleAnalyze(rec, multipartRequest(b, "file", "face.png", data))
		if rec.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}
