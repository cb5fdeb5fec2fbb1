package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/okamyuji/skin-tone-analyzer/config"
	"github.com/okamyuji/skin-tone-analyzer/pkg/logger"
)

var (
	configDir string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "skintone",
	Short: "顔写真から肌のトーンを分析するツール",
	Long: `skintoneは顔写真から肌の明るさとアンダートーンを分類し、
似合う色の組み合わせを提案するコマンドラインツールです。

画像ファイルを直接分析するほか、HTTPサーバーとして起動することもできます。`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "config", "設定ファイルのディレクトリ")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "ログレベル (debug, info, warn, error)")
}

func initConfig() {
	// .envは任意
	_ = godotenv.Load()
}

// 設定を読み込み、フラグの指定を反映する
func loadConfig() (*config.ConfigLoader, *config.Config, error) {
	loader := config.NewConfigLoader(configDir)
	cfg, err := loader.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if Version != "dev" {
		cfg.App.Version = Version
	}
	return loader, cfg, nil
}

// 標準出力を結果に使うコマンド向けのロガー
func newCLILogger(cfg *config.Config) (*logger.Logger, error) {
	logCfg := cfg.Logging
	logCfg.Output = "stderr"
	logCfg.Format = "text"
	if logLevel == "" {
		logCfg.Level = "warn"
	}
	return logger.NewLogger(&logCfg)
}
