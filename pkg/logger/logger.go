package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/okamyuji/skin-tone-analyzer/config"
)

// Logger
// レベルは実行中に変更できる
type Logger struct {
	*slog.Logger
	level  *slog.LevelVar
	closer io.Closer
}

// カスタムJSONハンドラ
type JSONHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	group  string
	fields map[string]string
}

func NewLogger(cfg *config.LoggingConfig) (*Logger, error) {
	return newLogger(cfg, nil)
}

// 出力先を指定してLoggerを作成
func NewWithWriter(cfg *config.LoggingConfig, w io.Writer) (*Logger, error) {
	return newLogger(cfg, w)
}

func newLogger(cfg *config.LoggingConfig, w io.Writer) (*Logger, error) {
	l := &Logger{level: new(slog.LevelVar)}
	l.level.Set(parseLevel(cfg.Level))

	output := w
	if output == nil {
		switch cfg.Output {
		case "", "stdout":
			output = os.Stdout
		case "stderr":
			output = os.Stderr
		default:
			file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
			if err != nil {
				return nil, fmt.Errorf("ログファイルのオープンに失敗: %w", err)
			}
			output = file
			l.closer = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = &JSONHandler{
			mu:     &sync.Mutex{},
			out:    output,
			level:  l.level,
			fields: cfg.Fields,
		}
	default:
		handler = slog.NewTextHandler(output, &slog.HandlerOptions{
			Level: l.level,
		})
	}

	l.Logger = slog.New(handler)
	return l, nil
}

// ログレベルを変更
func (l *Logger) SetLevel(level string) {
	l.level.Set(parseLevel(level))
}

// 現在のログレベル
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// ログファイルを閉じる
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// JSONハンドラ
func (h *JSONHandler) Handle(ctx context.Context, r slog.Record) error {
	data := make(map[string]interface{})

	// 基本フィールドの設定
	data["timestamp"] = r.Time.Format(time.RFC3339)
	data["level"] = r.Level.String()
	data["message"] = r.Message

	// カスタムフィールドの追加
	for k, v := range h.fields {
		data[k] = v
	}

	// ソースコードの位置情報
	if r.PC != 0 {
		fr, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		data["caller"] = fmt.Sprintf("%s:%d", fr.File, fr.Line)
	}

	for _, a := range h.attrs {
		h.put(data, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.put(data, a)
		return true
	})

	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.out.Write(b)
	return err
}

func (h *JSONHandler) put(data map[string]interface{}, a slog.Attr) {
	key := a.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	v := a.Value.Resolve().Any()
	// errorはJSONで空オブジェクトになるため文字列にする
	if err, ok := v.(error); ok {
		v = err.Error()
	}
	data[key] = v
}

func (h *JSONHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *JSONHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *JSONHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	if h.group != "" {
		name = h.group + "." + name
	}
	next.group = name
	return &next
}

// ログレベルのパース
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
