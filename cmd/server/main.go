package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/okamyuji/skin-tone-analyzer/config"
	"github.com/okamyuji/skin-tone-analyzer/internal/app"
	"github.com/okamyuji/skin-tone-analyzer/pkg/logger"
)

// バージョン情報
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)

func main() {
	// コマンドライン引数の解析
	var (
		showVersion bool
		configDir   string
	)
	flag.BoolVar(&showVersion, "version", false, "バージョン情報を表示")
	flag.StringVar(&configDir, "config", "config", "設定ファイルのディレクトリ")
	flag.Parse()

	// バージョン情報の表示
	if showVersion {
		printVersion(os.Stdout)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configDir); err != nil {
		slog.Error("サーバーが異常終了しました", "error", err)
		os.Exit(1)
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "Version: %s\nCommit: %s\nBuild Time: %s\n", Version, CommitHash, BuildTime)
}

func run(ctx context.Context, configDir string) error {
	loader := config.NewConfigLoader(configDir)
	cfg, err := loader.LoadConfig()
	if err != nil {
		return err
	}
	if Version != "dev" {
		cfg.App.Version = Version
	}

	log, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	// 設定ファイルの変更はログレベルにのみ反映する
	if err := loader.WatchConfig(ctx, func(next *config.Config) {
		log.SetLevel(next.Logging.Level)
		log.Info("ログレベルを更新しました", "level", next.Logging.Level)
	}); err != nil {
		log.Debug("設定ファイルを監視しません", "error", err)
	}

	service, err := app.New(cfg, log.Logger)
	if err != nil {
		return fmt.Errorf("サービスの初期化に失敗: %w", err)
	}
	return service.Run(ctx)
}

// 構造化ロギングをセットアップ
func initLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log.Logger)
	log.Info("設定を読み込みました",
		"env", cfg.App.Env,
		"version", cfg.App.Version,
		"commit", CommitHash,
	)
	return log, nil
}
