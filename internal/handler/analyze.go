package handler

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/okamyuji/skin-tone-analyzer/config"
	"github.com/okamyuji/skin-tone-analyzer/internal/analyzer"
	"github.com/okamyuji/skin-tone-analyzer/internal/colorspace"
	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
	"github.com/okamyuji/skin-tone-analyzer/internal/interfaces"
	"github.com/okamyuji/skin-tone-analyzer/internal/middleware"
	"github.com/okamyuji/skin-tone-analyzer/internal/response"
	"github.com/okamyuji/skin-tone-analyzer/internal/worker"
	"github.com/okamyuji/skin-tone-analyzer/pkg/validator"
)

// マルチパートのフィールド名
const uploadField = "file"

// マルチパートのヘッダー分の余裕
const multipartOverhead = 64 << 10

// 分析成功時のレスポンス
type AnalyzeResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
	Filename  string `json:"filename"`
	Timestamp string `json:"timestamp"`
	*analyzer.AnalysisResult
}

// 画像分析のハンドラ
type AnalyzeHandler struct {
	analyzer  analyzer.SkinAnalyzerInterface
	pool      interfaces.WorkerPool
	validator *validator.ImageValidator
	imageCfg  config.ImageConfig
	timeout   time.Duration
}

// 新しいAnalyzeHandlerを作成
// poolがnilの場合はリクエストのgoroutineで直接分析する
func NewAnalyzeHandler(a analyzer.SkinAnalyzerInterface, pool interfaces.WorkerPool, imageCfg config.ImageConfig, timeout time.Duration) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzer:  a,
		pool:      pool,
		validator: validator.NewImageValidator(&imageCfg),
		imageCfg:  imageCfg,
		timeout:   timeout,
	}
}

// POST /api/v1/analyze
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.RequestIDFromContext(ctx)
	logger := middleware.LoggerFromContext(ctx)

	data, filename, err := h.readUpload(w, r)
	if err != nil {
		h.fail(w, logger, err, requestID)
		return
	}

	info, err := h.validator.Validate(data)
	if err != nil {
		h.fail(w, logger, err, requestID)
		return
	}
	logger.Debug("画像を受信",
		"filename", filename,
		"mime_type", info.MimeType,
		"width", info.Width,
		"height", info.Height,
		"bytes", len(data))

	result, err := h.analyze(ctx, data)
	if err != nil {
		h.fail(w, logger, err, requestID)
		return
	}

	response.JSON(w, http.StatusOK, AnalyzeResponse{
		Success:        true,
		Message:        "Skin tone analysis completed successfully",
		RequestID:      requestID,
		Filename:       filename,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		AnalysisResult: result,
	})
}

// マルチパートから画像を読み取る
func (h *AnalyzeHandler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.imageCfg.MaxSize+multipartOverhead)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			return nil, "", errors.InvalidInput(errors.MsgRequestTooLarge, err).
				WithCode(errors.ErrCodeRequestTooLarge)
		}
		return nil, "", errors.InvalidInput(
			fmt.Sprintf(errors.MsgInvalidInput, "multipartフィールド'file'がありません"), err)
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(file, h.imageCfg.MaxSize+1)); err != nil {
		return nil, "", errors.InvalidInput(
			fmt.Sprintf(errors.MsgInvalidInput, "ファイルの読み取りに失敗しました"), err)
	}
	return buf.Bytes(), header.Filename, nil
}

// ワーカープール上でデコードと分析を行う
func (h *AnalyzeHandler) analyze(ctx context.Context, data []byte) (*analyzer.AnalysisResult, error) {
	run := func(ctx context.Context) (interface{}, error) {
		buf, err := colorspace.Decode(data, h.imageCfg.MaxDimension)
		if err != nil {
			return nil, err
		}
		return h.analyzer.Analyze(buf)
	}

	if h.pool == nil {
		v, err := run(ctx)
		if err != nil {
			return nil, err
		}
		return v.(*analyzer.AnalysisResult), nil
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	v, err := h.pool.Submit(ctx, worker.Task{Execute: run})
	switch {
	case err == nil:
		return v.(*analyzer.AnalysisResult), nil
	case stderrors.Is(err, context.DeadlineExceeded):
		return nil, errors.ResourceError(errors.MsgTimeout, err).WithCode(errors.ErrCodeTimeout)
	case stderrors.Is(err, worker.ErrPoolShutdown):
		return nil, errors.ResourceError(errors.MsgUnavailable, err).WithCode(errors.ErrCodeUnavailable)
	default:
		return nil, err
	}
}

// エラーを記録して送信
// 顔未検出や肌領域不足は障害ではないのでinfoで記録
func (h *AnalyzeHandler) fail(w http.ResponseWriter, logger *slog.Logger, err error, requestID string) {
	e := errors.From(err)
	switch status := e.StatusCode(); {
	case status >= http.StatusInternalServerError,
		e.Type == errors.ErrorTypeClassificationFailure:
		logger.Error("分析に失敗", "error", err, "code", e.Code)
	default:
		logger.Info("分析リクエストを拒否", "error", e.Message, "code", e.Code)
	}
	response.Error(w, e, requestID)
}
