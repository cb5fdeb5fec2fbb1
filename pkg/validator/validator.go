package validator

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/okamyuji/skin-tone-analyzer/config"
	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
)

// デコード前に拒否する総ピクセル数の上限
const maxPixels = 50_000_000

// 画像のバリデーション
type ImageValidator struct {
	config *config.ImageConfig
}

// 検証済み画像の情報
type ImageInfo struct {
	MimeType string
	Width    int
	Height   int
}

// 新しいImageValidator
func NewImageValidator(cfg *config.ImageConfig) *ImageValidator {
	return &ImageValidator{
		config: cfg,
	}
}

// アップロードされた画像データを検証
// 形式は内容から判定し、拡張子やContent-Typeは信用しない
func (v *ImageValidator) Validate(data []byte) (ImageInfo, error) {
	if len(data) == 0 {
		return ImageInfo{}, errors.InvalidInput("画像データが空です", nil)
	}

	// サイズチェック
	if int64(len(data)) > v.config.MaxSize {
		return ImageInfo{}, errors.InvalidInput(
			fmt.Sprintf("画像サイズが大きすぎます: %d bytes", len(data)), nil).
			WithCode(errors.ErrCodeRequestTooLarge)
	}

	// MIMEタイプの検証
	mtype := mimetype.Detect(data)
	if !v.isAllowedMimeType(mtype.String()) {
		return ImageInfo{}, errors.InvalidInput(
			fmt.Sprintf(errors.MsgUnsupportedMediaType, mtype.String()), nil).
			WithCode(errors.ErrCodeUnsupportedMediaType)
	}

	// 画像フォーマットと寸法の検証
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, errors.InvalidInput(
			fmt.Sprintf(errors.MsgInvalidImage, "ヘッダーを読み取れません"), err).
			WithCode(errors.ErrCodeInvalidImage)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPixels {
		return ImageInfo{}, errors.InvalidInput(
			fmt.Sprintf(errors.MsgInvalidImage, fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)), nil).
			WithCode(errors.ErrCodeInvalidImage)
	}

	return ImageInfo{
		MimeType: mtype.String(),
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

// 許可されたMIMEタイプかどうかを判定
func (v *ImageValidator) isAllowedMimeType(mimeType string) bool {
	for _, allowed := range v.config.AllowedTypes {
		if mimeType == allowed {
			return true
		}
	}
	return false
}

// HTTPリクエストの検証
type RequestValidator struct {
	config *config.SecurityConfig
}

// 新しいRequestValidator
func NewRequestValidator(cfg *config.SecurityConfig) *RequestValidator {
	return &RequestValidator{
		config: cfg,
	}
}

// Originヘッダーを検証
func (v *RequestValidator) ValidateOrigin(origin string) error {
	if origin == "" {
		return nil // 同一オリジンの場合はスキップ
	}

	allowedOrigins := strings.Split(v.config.AllowedOrigins, ",")
	for _, allowed := range allowedOrigins {
		allowed = strings.TrimSpace(allowed)
		if allowed == "*" || origin == allowed {
			return nil
		}
	}

	return fmt.Errorf("許可されていないオリジン: %s", origin)
}
