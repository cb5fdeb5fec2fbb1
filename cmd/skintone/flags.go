package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// 定義済みのフラグを取得する
// 取得に失敗するのはフラグ定義の誤りなのでパニックする
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("--%sの取得に失敗: %v", name, err))
	}
	return val
}

func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("--%sの取得に失敗: %v", name, err))
	}
	return val
}

func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("--%sの取得に失敗: %v", name, err))
	}
	return val
}
