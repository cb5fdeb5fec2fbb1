package errors

import (
	"net/http"
)

// エラーコードの定義
const (
	// 入力検証エラー (4xx)
	ErrCodeInvalidInput           = "INVALID_INPUT"
	ErrCodeInvalidImage           = "INVALID_IMAGE"
	ErrCodeUnsupportedMediaType   = "UNSUPPORTED_MEDIA_TYPE"
	ErrCodeRequestTooLarge        = "REQUEST_TOO_LARGE"
	ErrCodeRateLimitExceeded      = "RATE_LIMIT_EXCEEDED"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeForbidden              = "FORBIDDEN"
	ErrCodeNoFaceDetected         = "NO_FACE_DETECTED"
	ErrCodeInsufficientSkinRegion = "INSUFFICIENT_SKIN_REGION"
	ErrCodeClassificationFailure  = "CLASSIFICATION_FAILURE"

	// 処理エラー (5xx)
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeOpenCVError       = "OPENCV_ERROR"
	ErrCodeResourceExhausted = "RESOURCE_EXHAUSTED"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeUnavailable       = "SERVICE_UNAVAILABLE"

	// AWS関連エラー
	ErrCodeAWSError = "AWS_ERROR"
)

// エラーメッセージのテンプレート
const (
	MsgInvalidInput           = "不正な入力データです: %s"
	MsgInvalidImage           = "不正な画像フォーマットです: %s"
	MsgUnsupportedMediaType   = "対応していないファイル形式です: %s"
	MsgRequestTooLarge        = "リクエストサイズが大きすぎます"
	MsgRateLimitExceeded      = "レート制限を超過しました"
	MsgNotFound               = "リソースが見つかりません: %s"
	MsgNoFaceDetected         = "画像から顔を検出できませんでした"
	MsgInsufficientSkinRegion = "肌領域のピクセル数が不足しています: %d (必要数: %d)"
	MsgClassificationFailure  = "肌色の分類に失敗しました"
	MsgInternalError          = "内部エラーが発生しました"
	MsgOpenCVError            = "画像処理エラーが発生しました: %s"
	MsgResourceExhausted      = "リソースが枯渇しました"
	MsgTimeout                = "処理がタイムアウトしました"
	MsgUnavailable            = "サービスが利用できません"
)

// HTTPステータスコードとエラーコードのマッピング
var statusCodeMap = map[string]int{
	ErrCodeInvalidInput:           http.StatusBadRequest,
	ErrCodeInvalidImage:           http.StatusBadRequest,
	ErrCodeUnsupportedMediaType:   http.StatusBadRequest,
	ErrCodeRequestTooLarge:        http.StatusRequestEntityTooLarge,
	ErrCodeRateLimitExceeded:      http.StatusTooManyRequests,
	ErrCodeNotFound:               http.StatusNotFound,
	ErrCodeForbidden:              http.StatusForbidden,
	ErrCodeNoFaceDetected:         http.StatusUnprocessableEntity,
	ErrCodeInsufficientSkinRegion: http.StatusUnprocessableEntity,
	ErrCodeClassificationFailure:  http.StatusUnprocessableEntity,
	ErrCodeInternalError:          http.StatusInternalServerError,
	ErrCodeOpenCVError:            http.StatusInternalServerError,
	ErrCodeResourceExhausted:      http.StatusServiceUnavailable,
	ErrCodeTimeout:                http.StatusGatewayTimeout,
	ErrCodeUnavailable:            http.StatusServiceUnavailable,
	ErrCodeAWSError:               http.StatusInternalServerError,
}

// エラーコードに対応するHTTPステータスコードを返す
func GetStatusCode(code string) int {
	if status, ok := statusCodeMap[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
