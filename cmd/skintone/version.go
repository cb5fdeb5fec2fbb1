package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ビルド時に-ldflagsで設定する
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "バージョン情報を表示",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "skintone %s\n", Version)
		fmt.Fprintf(out, "  Commit: %s\n", CommitSHA)
		fmt.Fprintf(out, "  Built:  %s\n", BuildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
