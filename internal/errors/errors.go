package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// エラーの種類を表す
type ErrorType string

const (
	ErrorTypeInvalidInput           ErrorType = "INVALID_INPUT"
	ErrorTypeNoFaceDetected         ErrorType = "NO_FACE_DETECTED"
	ErrorTypeInsufficientSkinRegion ErrorType = "INSUFFICIENT_SKIN_REGION"
	ErrorTypeClassificationFailure  ErrorType = "CLASSIFICATION_FAILURE"
	ErrorTypeOpenCV                 ErrorType = "OPENCV_ERROR"
	ErrorTypeAWS                    ErrorType = "AWS_ERROR"
	ErrorTypeResource               ErrorType = "RESOURCE_ERROR"
	ErrorTypeUnexpected             ErrorType = "UNEXPECTED_ERROR"
)

// カスタムエラー型
type Error struct {
	Type      ErrorType
	Message   string
	Code      string
	Err       error
	Stack     []Frame
	RequestID string
}

// スタックフレームを表す
type Frame struct {
	File     string
	Line     int
	Function string
}

// OpenCVのエラー定義
var (
	ErrOpenCVClosed   = errors.New("OpenCVリソースは既に解放されています")
	ErrOpenCVEmptyMat = errors.New("画像データが空です")
)

// errorインターフェースを実装
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Type, e.Message)
	if e.Code != "" {
		fmt.Fprintf(&b, " (code: %s)", e.Code)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// errors.Unwrapのサポート
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPステータスコードを返す
func (e *Error) StatusCode() int {
	if e.Code != "" {
		return GetStatusCode(e.Code)
	}
	return GetStatusCode(string(e.Type))
}

// リクエストIDを付与
func (e *Error) WithRequestID(id string) *Error {
	e.RequestID = id
	return e
}

// エラーコードを上書き
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// スタックトレースを追加
func (e *Error) WithStack() *Error {
	if len(e.Stack) > 0 {
		return e
	}

	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	stack := make([]Frame, 0, n)
	for {
		frame, more := frames.Next()
		if strings.Contains(frame.File, "github.com/okamyuji") {
			stack = append(stack, Frame{
				File:     frame.File,
				Line:     frame.Line,
				Function: frame.Function,
			})
		}
		if !more {
			break
		}
	}
	e.Stack = stack
	return e
}

// 新しいエラーを作成
func NewError(errType ErrorType, message string, err error) *Error {
	e := &Error{
		Type:    errType,
		Message: message,
		Err:     err,
	}
	return e.WithStack()
}

// 入力エラーを作成
func InvalidInput(message string, err error) *Error {
	return NewError(ErrorTypeInvalidInput, message, err).WithCode(ErrCodeInvalidInput)
}

// 顔未検出エラーを作成
func NoFaceDetected() *Error {
	return NewError(ErrorTypeNoFaceDetected, MsgNoFaceDetected, nil).WithCode(ErrCodeNoFaceDetected)
}

// 肌領域不足エラーを作成
func InsufficientSkinRegion(pixels, required int) *Error {
	msg := fmt.Sprintf(MsgInsufficientSkinRegion, pixels, required)
	return NewError(ErrorTypeInsufficientSkinRegion, msg, nil).WithCode(ErrCodeInsufficientSkinRegion)
}

// 分類失敗エラーを作成
func ClassificationFailure(message string, err error) *Error {
	return NewError(ErrorTypeClassificationFailure, message, err).WithCode(ErrCodeClassificationFailure)
}

// OpenCVのエラーを変換
func OpenCVError(operation string, err error) *Error {
	if err == nil {
		return nil
	}

	var message string
	switch err.Error() {
	case "Mat: Already closed":
		message = ErrOpenCVClosed.Error()
	case "Mat: Empty":
		message = ErrOpenCVEmptyMat.Error()
	default:
		message = fmt.Sprintf(MsgOpenCVError, operation)
	}

	return NewError(ErrorTypeOpenCV, message, err).WithCode(ErrCodeOpenCVError)
}

// リソースエラーを作成
func ResourceError(message string, err error) *Error {
	return NewError(ErrorTypeResource, message, err)
}

// AWSエラーを作成
func AWSError(service, operation string, err error) *Error {
	message := fmt.Sprintf("AWS %s: %s failed", service, operation)
	return NewError(ErrorTypeAWS, message, err).WithCode(ErrCodeAWSError)
}

// 想定外のエラーを作成
func Unexpected(message string, err error) *Error {
	return NewError(ErrorTypeUnexpected, message, err).WithCode(ErrCodeInternalError)
}

// エラーの種類を判定
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if ok := As(err, &e); ok {
		return e.Type == errType
	}
	return false
}

// 任意のエラーを*Errorに変換
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if As(err, &e) {
		return e
	}
	return Unexpected(MsgInternalError, err)
}

// errors.Asのラッパー
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// errors.Isのラッパー
func Is(err, target error) bool {
	return errors.Is(err, target)
}
