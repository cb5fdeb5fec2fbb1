package detector

import (
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/okamyuji/skin-tone-analyzer/internal/colorspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCascadeFile = "../../models/haarcascade_frontalface_default.xml"

// モック検出器
type mockLocator struct {
	mu     sync.RWMutex
	name   string
	faces  []FaceBox
	err    error
	panics string
	calls  int
	closed bool
}

func (m *mockLocator) Locate(buf colorspace.PixelBuffer) ([]FaceBox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.panics != "" {
		panic(m.panics)
	}
	return m.faces, m.err
}

func (m *mockLocator) Name() string { return m.name }

func (m *mockLocator) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockLocator) getCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

func TestFallbackLocator(t *testing.T) {
	buf := colorspace.Uniform(100, 100, 200, 150, 120)
	primaryFace := FaceBox{X: 10, Y: 10, Width: 50, Height: 50, Confidence: 0.8, Source: MethodDNN}
	fallbackFace := FaceBox{X: 20, Y: 20, Width: 40, Height: 40, Confidence: 0.9, Source: MethodCascade}

	tests := []struct {
		name          string
		primary       *mockLocator
		fallback      *mockLocator
		want          []FaceBox
		wantErr       bool
		wantFallCalls int
	}{
		{
			name:          "主検出器で検出",
			primary:       &mockLocator{name: MethodDNN, faces: []FaceBox{primaryFace}},
			fallback:      &mockLocator{name: MethodCascade, faces: []FaceBox{fallbackFace}},
			want:          []FaceBox{primaryFace},
			wantFallCalls: 0,
		},
		{
			name:          "主検出器が空の結果を返してもフォールバックしない",
			primary:       &mockLocator{name: MethodDNN},
			fallback:      &mockLocator{name: MethodCascade, faces: []FaceBox{fallbackFace}},
			want:          nil,
			wantFallCalls: 0,
		},
		{
			name:          "主検出器のエラーでフォールバック",
			primary:       &mockLocator{name: MethodDNN, err: errors.New("inference failed")},
			fallback:      &mockLocator{name: MethodCascade, faces: []FaceBox{fallbackFace}},
			want:          []FaceBox{fallbackFace},
			wantFallCalls: 1,
		},
		{
			name:          "主検出器のパニックでフォールバック",
			primary:       &mockLocator{name: MethodDNN, panics: "forward crashed"},
			fallback:      &mockLocator{name: MethodCascade, faces: []FaceBox{fallbackFace}},
			want:          []FaceBox{fallbackFace},
			wantFallCalls: 1,
		},
		{
			name:          "両方失敗",
			primary:       &mockLocator{name: MethodDNN, err: errors.New("inference failed")},
			fallback:      &mockLocator{name: MethodCascade, err: errors.New("cascade failed")},
			wantErr:       true,
			wantFallCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewFallbackLocator(tt.primary, tt.fallback, nil)
			require.NoError(t, err)

			faces, err := l.Locate(buf)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, faces)
			}
			assert.Equal(t, 1, tt.primary.getCalls())
			assert.Equal(t, tt.wantFallCalls, tt.fallback.getCalls())
		})
	}
}

func TestFallbackLocator_PrimaryPanicWithoutFallback(t *testing.T) {
	primary := &mockLocator{name: MethodDNN, panics: "forward crashed"}
	l, err := NewFallbackLocator(primary, nil, nil)
	require.NoError(t, err)

	faces, err := l.Locate(colorspace.Uniform(20, 20, 0, 0, 0))
	require.Error(t, err)
	assert.Nil(t, faces)
	assert.Contains(t, err.Error(), "forward crashed")
}

func TestFallbackLocator_NilPrimary(t *testing.T) {
	fallback := &mockLocator{name: MethodCascade, faces: []FaceBox{{X: 1, Y: 1, Width: 10, Height: 10}}}
	l, err := NewFallbackLocator(nil, fallback, nil)
	require.NoError(t, err)
	assert.Equal(t, MethodCascade, l.Name())

	faces, err := l.Locate(colorspace.Uniform(20, 20, 0, 0, 0))
	require.NoError(t, err)
	assert.Len(t, faces, 1)
	assert.Equal(t, 1, fallback.getCalls())

	require.NoError(t, l.Close())
	assert.True(t, fallback.closed)
}

func TestFallbackLocator_NoLocators(t *testing.T) {
	_, err := NewFallbackLocator(nil, nil, nil)
	assert.Error(t, err)
}

func TestStaticLocator(t *testing.T) {
	l := NewStaticLocator(
		FaceBox{X: 90, Y: 90, Width: 50, Height: 50},
		FaceBox{X: 200, Y: 200, Width: 10, Height: 10},
	)
	faces, err := l.Locate(colorspace.Uniform(100, 100, 0, 0, 0))
	require.NoError(t, err)
	require.Len(t, faces, 1)
	assert.Equal(t, FaceBox{X: 90, Y: 90, Width: 10, Height: 10, Confidence: 1, Source: MethodManual}, faces[0])
}

func TestParseBox(t *testing.T) {
	box, err := ParseBox("10, 20,30,40")
	require.NoError(t, err)
	assert.Equal(t, FaceBox{X: 10, Y: 20, Width: 30, Height: 40}, box)

	for _, s := range []string{"", "1,2,3", "a,b,c,d", "-1,0,10,10", "0,0,0,10"} {
		_, err := ParseBox(s)
		assert.Error(t, err, s)
	}
}

func TestClip(t *testing.T) {
	b, ok := clip(FaceBox{X: 80, Y: -10, Width: 40, Height: 40}, 100, 100)
	require.True(t, ok)
	assert.Equal(t, FaceBox{X: 80, Y: 0, Width: 20, Height: 30}, b)

	_, ok = clip(FaceBox{X: 120, Y: 0, Width: 10, Height: 10}, 100, 100)
	assert.False(t, ok)
}

func TestNewDNNLocator_MissingModel(t *testing.T) {
	_, err := NewDNNLocator(DNNOptions{})
	assert.Error(t, err)
}

func TestCascadeLocator(t *testing.T) {
	if _, err := os.Stat(testCascadeFile); err != nil {
		t.Skip("カスケードファイルがありません")
	}

	l, err := NewCascadeLocator(CascadeOptions{CascadeFile: testCascadeFile})
	require.NoError(t, err)
	defer l.Close()

	// 顔のない単色画像では何も検出されない
	faces, err := l.Locate(colorspace.Uniform(120, 120, 255, 255, 255))
	require.NoError(t, err)
	assert.Empty(t, faces)
	assert.Equal(t, MethodCascade, l.Name())
}

func TestNewCascadeLocator_InvalidFile(t *testing.T) {
	_, err := NewCascadeLocator(CascadeOptions{})
	assert.Error(t, err)
}
