package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *Error
		wantType   ErrorType
		wantStatus int
	}{
		{"不正な入力", InvalidInput("空のバッファ", nil), ErrorTypeInvalidInput, http.StatusBadRequest},
		{"顔未検出", NoFaceDetected(), ErrorTypeNoFaceDetected, http.StatusUnprocessableEntity},
		{"肌領域不足", InsufficientSkinRegion(50, 100), ErrorTypeInsufficientSkinRegion, http.StatusUnprocessableEntity},
		{"分類失敗", ClassificationFailure("panic", nil), ErrorTypeClassificationFailure, http.StatusUnprocessableEntity},
		{"想定外", Unexpected("boom", nil), ErrorTypeUnexpected, http.StatusInternalServerError},
		{"サイズ超過", InvalidInput("too large", nil).WithCode(ErrCodeRequestTooLarge), ErrorTypeInvalidInput, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode())
			assert.True(t, IsType(tt.err, tt.wantType))
		})
	}
}

func TestInsufficientSkinRegionMessage(t *testing.T) {
	err := InsufficientSkinRegion(50, 100)
	assert.Contains(t, err.Message, "50")
	assert.Contains(t, err.Message, "100")
}

func TestErrorWrapping(t *testing.T) {
	cause := stderrors.New("decode failed")
	err := InvalidInput("画像のデコードに失敗", cause)

	wrapped := fmt.Errorf("handler: %w", err)
	assert.True(t, Is(wrapped, cause))
	assert.True(t, IsType(wrapped, ErrorTypeInvalidInput))
	assert.Contains(t, err.Error(), "decode failed")
	assert.Contains(t, err.Error(), ErrCodeInvalidInput)
}

func TestFrom(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, From(nil))
	})

	t.Run("既存のError", func(t *testing.T) {
		orig := NoFaceDetected()
		got := From(fmt.Errorf("wrap: %w", orig))
		require.NotNil(t, got)
		assert.Same(t, orig, got)
	})

	t.Run("標準エラー", func(t *testing.T) {
		got := From(stderrors.New("plain"))
		require.NotNil(t, got)
		assert.Equal(t, ErrorTypeUnexpected, got.Type)
		assert.Equal(t, http.StatusInternalServerError, got.StatusCode())
	})
}

func TestOpenCVError(t *testing.T) {
	assert.Nil(t, OpenCVError("cvtColor", nil))

	err := OpenCVError("cvtColor", stderrors.New("Mat: Empty"))
	require.NotNil(t, err)
	assert.Equal(t, ErrOpenCVEmptyMat.Error(), err.Message)
	assert.Equal(t, ErrorTypeOpenCV, err.Type)
}

func TestGetStatusCode_Unknown(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetStatusCode("SOMETHING_ELSE"))
}

func TestWithRequestID(t *testing.T) {
	err := NoFaceDetected().WithRequestID("req-1")
	assert.Equal(t, "req-1", err.RequestID)
}
