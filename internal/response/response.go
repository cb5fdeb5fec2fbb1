package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
)

// エラーレスポンス
type ErrorResponse struct {
	Error     string `json:"error"`
	Type      string `json:"type"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

// JSONレスポンスを送信
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("レスポンスの送信に失敗", "error", err)
	}
}

// エラーをJSONで送信
// 想定外のエラーは内部メッセージを返さない
func Error(w http.ResponseWriter, err error, requestID string) {
	e := errors.From(err)
	if requestID != "" {
		e = e.WithRequestID(requestID)
	}

	message := e.Message
	if e.Type == errors.ErrorTypeUnexpected {
		message = errors.MsgInternalError
	}

	JSON(w, e.StatusCode(), ErrorResponse{
		Error:     message,
		Type:      string(e.Type),
		Code:      e.Code,
		RequestID: e.RequestID,
	})
}
