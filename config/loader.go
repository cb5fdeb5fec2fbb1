package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 基本設定ファイル名
const baseConfigFile = "config.yaml"

// 設定ファイルの読み込み
type ConfigLoader struct {
	configDir string
}

// 新しいConfigLoaderを作成
// configDirが空の場合は既定値と環境変数のみを使う
func NewConfigLoader(configDir string) *ConfigLoader {
	return &ConfigLoader{
		configDir: configDir,
	}
}

// 環境に応じた設定を読み込む
// 既定値 → config.yaml → config.<env>.yaml → 環境変数 の順に上書きする
func (l *ConfigLoader) LoadConfig() (*Config, error) {
	if err := l.loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := Default()

	if l.configDir != "" {
		if err := l.overlayFile(cfg, baseConfigFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}

		env := l.GetEnvironment()
		if err := l.overlayFile(cfg, fmt.Sprintf("config.%s.yaml", env)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := l.overrideWithEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// .envファイルを読み込む
// 既に設定されている環境変数は上書きしない
func (l *ConfigLoader) loadDotEnv() error {
	path := ".env"
	if l.configDir != "" {
		path = filepath.Join(l.configDir, ".env")
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf(".envファイルの読み込みに失敗: %w", err)
	}
	return nil
}

// 設定ファイルの内容を既存の設定に重ねる
// ファイルに書かれていない項目は元の値が残る
func (l *ConfigLoader) overlayFile(cfg *Config, filename string) error {
	data, err := l.loadFile(filename)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("YAMLのパースに失敗 (%s): %w", filename, err)
	}
	return nil
}

// 指定されたファイルを読み込む
func (l *ConfigLoader) loadFile(filename string) ([]byte, error) {
	// パスのバリデーション
	if !strings.HasSuffix(filename, ".yaml") && !strings.HasSuffix(filename, ".yml") {
		return nil, fmt.Errorf("不正なファイル形式です: %s", filename)
	}

	cleanPath := filepath.Clean(filename)
	if strings.Contains(cleanPath, "..") {
		return nil, fmt.Errorf("不正なファイルパスです: %s", filename)
	}

	data, err := os.ReadFile(filepath.Join(l.configDir, cleanPath))
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}
	return data, nil
}

// 環境変数で設定を上書きする
func (l *ConfigLoader) overrideWithEnv(config *Config) error {
	// アプリケーション設定
	if env := os.Getenv("APP_ENV"); env != "" {
		config.App.Env = env
	}
	if debug := os.Getenv("DEBUG"); debug != "" {
		config.App.Debug = debug == "true"
	}

	// サーバー設定
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
	if host := os.Getenv("HOST"); host != "" {
		config.Server.Host = host
	}

	// セキュリティ設定
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.Security.AllowedOrigins = origins
	}
	if err := envInt("RATE_LIMIT_REQUESTS", &config.Security.RateLimit.RequestsPerMinute); err != nil {
		return err
	}

	// 顔検出設定
	if err := envBool("DETECTOR_USE_DNN", &config.Detector.UseDNN); err != nil {
		return err
	}
	if v := os.Getenv("DNN_PROTO_PATH"); v != "" {
		config.Detector.ProtoPath = v
	}
	if v := os.Getenv("DNN_MODEL_PATH"); v != "" {
		config.Detector.ModelPath = v
	}
	if v := os.Getenv("CASCADE_FILE"); v != "" {
		config.Detector.CascadeFile = v
	}

	// パレット設定
	if v := os.Getenv("PALETTE_FILE"); v != "" {
		config.Palette.File = v
	}

	// ワーカー設定
	var maxWorkers int
	if err := envInt("WORKER_MAX", &maxWorkers); err != nil {
		return err
	}
	if maxWorkers > 0 {
		config.Worker.MaxWorkers = int32(maxWorkers)
	}

	// メトリクス設定
	if err := envBool("CLOUDWATCH_ENABLED", &config.Metrics.CloudWatch.Enabled); err != nil {
		return err
	}
	if v := os.Getenv("CLOUDWATCH_NAMESPACE"); v != "" {
		config.Metrics.CloudWatch.Namespace = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		config.Metrics.CloudWatch.Region = v
	}

	// ロギング設定
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.Logging.Level = logLevel
	}
	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		config.Logging.Format = logFormat
	}

	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%sの解析に失敗: %w", key, err)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%sの解析に失敗: %w", key, err)
	}
	*dst = b
	return nil
}

// 設定ファイルの変更を監視
// ctxが終了すると監視を停止する
func (l *ConfigLoader) WatchConfig(ctx context.Context, callback func(*Config)) error {
	if l.configDir == "" {
		return fmt.Errorf("設定ディレクトリが指定されていません")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("設定の監視開始に失敗: %w", err)
	}

	// 設定ファイルを監視対象に追加
	configFile := filepath.Join(l.configDir, baseConfigFile)
	if err := watcher.Add(configFile); err != nil {
		watcher.Close()
		return fmt.Errorf("設定ファイルの監視に失敗: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Write == fsnotify.Write {
					cfg, err := l.LoadConfig()
					if err != nil {
						slog.Warn("設定の再読み込みに失敗", "error", err)
						continue
					}
					callback(cfg)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("設定の監視中にエラー", "error", err)
			}
		}
	}()

	return nil
}

// 現在の環境を取得
func (l *ConfigLoader) GetEnvironment() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	return env
}

// 本番環境かどうかを判定
func (l *ConfigLoader) IsProduction() bool {
	return l.GetEnvironment() == "production"
}

// 開発環境かどうかを判定
func (l *ConfigLoader) IsDevelopment() bool {
	return l.GetEnvironment() == "development"
}
