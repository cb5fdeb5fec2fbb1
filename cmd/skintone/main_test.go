package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
	"github.com/okamyuji/skin-tone-analyzer/internal/handler"
	"github.com/okamyuji/skin-tone-analyzer/internal/testutil"
)

const permissiveConfig = `
skin:
  h_min: 0
  h_max: 50
  s_min: 10
  s_max: 255
  v_min: 0
  v_max: 255
`

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	os.Exit(m.Run())
}

// 前回の実行で設定されたフラグを既定値に戻す
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func configDirWith(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))
	return dir
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "skintone "+Version)
	assert.Contains(t, out, "Commit: "+CommitSHA)
	assert.Contains(t, out, "Built:  "+BuildDate)
}

func TestAnalyzeCommand_JSON(t *testing.T) {
	dir := configDirWith(t, permissiveConfig)
	face := testutil.WriteTempImage(t, "face.png", testutil.FacePNG(t))
	notes := testutil.WriteTempImage(t, "notes.txt", []byte("not an image"))
	missing := filepath.Join(t.TempDir(), "missing.png")

	out, err := execute(t, "analyze", "--config", dir, "--json", "--face", "60,60,80,80",
		"--concurrency", "2", face, notes, missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2/3")

	var results []fileResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 3)

	// 入力の順序を保つ
	assert.Equal(t, face, results[0].File)
	require.NotNil(t, results[0].Result)
	assert.Nil(t, results[0].Error)
	assert.Equal(t, "Fair-Warm", results[0].Result.Skin.Category)
	assert.Equal(t, "manual", results[0].Result.Details.FaceDetectionMethod)

	require.NotNil(t, results[1].Error)
	assert.Equal(t, errors.ErrCodeUnsupportedMediaType, results[1].Error.Code)
	assert.Nil(t, results[1].Result)

	require.NotNil(t, results[2].Error)
	assert.Equal(t, errors.ErrCodeInvalidInput, results[2].Error.Code)
}

func TestAnalyzeCommand_Table(t *testing.T) {
	dir := configDirWith(t, permissiveConfig)
	face := testutil.WriteTempImage(t, "face.png", testutil.FacePNG(t))

	out, err := execute(t, "analyze", "--config", dir, "--no-progress", "--face", "60,60,80,80", face)
	require.NoError(t, err)
	assert.Contains(t, out, "CATEGORY")
	assert.Contains(t, out, "Fair-Warm")
	assert.Contains(t, out, "manual")
}

func TestAnalyzeCommand_InvalidFlags(t *testing.T) {
	dir := configDirWith(t, permissiveConfig)
	face := testutil.WriteTempImage(t, "face.png", testutil.FacePNG(t))

	tests := []struct {
		name string
		args []string
	}{
		{"引数なし", []string{"analyze", "--config", dir}},
		{"不正な顔領域", []string{"analyze", "--config", dir, "--face", "1,2,3", face}},
		{"並列数が0", []string{"analyze", "--config", dir, "--concurrency", "0", face}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestPaletteCommand(t *testing.T) {
	dir := configDirWith(t, "")

	t.Run("テキスト出力", func(t *testing.T) {
		out, err := execute(t, "palette", "--config", dir, "Fair", "Warm")
		require.NoError(t, err)
		assert.Contains(t, out, "Fair-Warm (legacy)")
		assert.Contains(t, out, "#F5D7C3")
	})

	t.Run("拡張方式のJSON", func(t *testing.T) {
		out, err := execute(t, "palette", "--config", dir, "--scheme", "extended", "--json", "very-fair", "olive")
		require.NoError(t, err)

		var resp handler.PaletteResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, handler.SchemeExtended, resp.Scheme)
		assert.Equal(t, "Very Fair-Olive", resp.Category)
		assert.NotEmpty(t, resp.Recommendations.Clothing.BestColors.HexCodes)
	})

	t.Run("未知の区分", func(t *testing.T) {
		_, err := execute(t, "palette", "--config", dir, "Pale", "Warm")
		assert.Error(t, err)
	})

	t.Run("未知の方式", func(t *testing.T) {
		_, err := execute(t, "palette", "--config", dir, "--scheme", "seasonal", "Fair", "Warm")
		assert.Error(t, err)
	})
}
