package resource

import (
	"os"
	"path/filepath"
	"runtime"
)

var (
	// モデルファイルなどの基準ディレクトリ
	BaseDir string
)

func init() {
	// 実行ファイルのディレクトリを取得
	execDir, err := os.Executable()
	if err != nil {
		execDir = "."
	}
	execDir = filepath.Dir(execDir)

	// 開発モードかどうかを判定
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		BaseDir = execDir
		return
	}

	// 開発モード時はプロジェクトルートを使用
	projectRoot := filepath.Join(filepath.Dir(filename), "..", "..")
	if _, err := os.Stat(filepath.Join(projectRoot, "go.mod")); err == nil {
		BaseDir = projectRoot
		return
	}

	BaseDir = execDir
}

// 相対パスをベースディレクトリからのパスに解決する
// 空文字と絶対パスはそのまま返す
func ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(BaseDir, path)
}

// 通常ファイルとして存在するか
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
