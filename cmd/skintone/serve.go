package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okamyuji/skin-tone-analyzer/config"
	"github.com/okamyuji/skin-tone-analyzer/internal/app"
	"github.com/okamyuji/skin-tone-analyzer/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "HTTPサーバーを起動",
	Long: `肌トーン分析のHTTP APIを起動します。

エンドポイント:
  POST /api/v1/analyze                     画像の分析 (multipart/form-data, fileフィールド)
  GET  /api/v1/palettes/{depth}/{undertone} 推奨色の取得
  GET  /health                             ヘルスチェック
  GET  /metrics                            Prometheusメトリクス`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("port", "", "待ち受けるポート (設定ファイルより優先)")
	serveCmd.Flags().String("host", "", "待ち受けるアドレス (設定ファイルより優先)")
}

func runServe(cmd *cobra.Command, args []string) error {
	loader, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port := mustGetString(cmd, "port"); port != "" {
		cfg.Server.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Server.Host = host
	}

	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := loader.WatchConfig(ctx, func(next *config.Config) {
		log.SetLevel(next.Logging.Level)
		log.Info("ログレベルを更新しました", "level", next.Logging.Level)
	}); err != nil {
		log.Debug("設定ファイルを監視しません", "error", err)
	}

	service, err := app.New(cfg, log.Logger)
	if err != nil {
		return err
	}
	return service.Run(ctx)
}
