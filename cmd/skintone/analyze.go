package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okamyuji/skin-tone-analyzer/config"
	"github.com/okamyuji/skin-tone-analyzer/internal/analyzer"
	"github.com/okamyuji/skin-tone-analyzer/internal/app"
	"github.com/okamyuji/skin-tone-analyzer/internal/colorspace"
	"github.com/okamyuji/skin-tone-analyzer/internal/detector"
	"github.com/okamyuji/skin-tone-analyzer/internal/errors"
	"github.com/okamyuji/skin-tone-analyzer/pkg/validator"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>...",
	Short: "画像ファイルの肌トーンを分析",
	Long: `指定した画像ファイルから顔を検出し、肌トーンを分類します。

例:
  # 1枚の画像を分析
  skintone analyze face.jpg

  # 複数の画像を並列に分析してJSONで出力
  skintone analyze --json --concurrency 4 photos/*.jpg

  # 顔の位置を指定して検出を省略
  skintone analyze --face 120,80,200,200 face.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().Bool("json", false, "JSONで出力")
	analyzeCmd.Flags().Int("concurrency", runtime.NumCPU(), "並列に分析するファイル数")
	analyzeCmd.Flags().String("face", "", "顔の矩形 (x,y,width,height)")
	analyzeCmd.Flags().Bool("no-progress", false, "進捗バーを表示しない")
}

// 1ファイル分の分析結果
type fileResult struct {
	File   string                   `json:"file"`
	Result *analyzer.AnalysisResult `json:"result,omitempty"`
	Error  *fileError               `json:"error,omitempty"`
}

type fileError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	concurrency := mustGetInt(cmd, "concurrency")
	face := mustGetString(cmd, "face")
	noProgress := mustGetBool(cmd, "no-progress")

	if concurrency < 1 {
		return fmt.Errorf("--concurrencyは1以上を指定してください")
	}

	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// 単発の実行ではメトリクスを収集しない
	cfg.Metrics.Enabled = false

	log, err := newCLILogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	opts := []app.Option{app.WithoutServer()}
	if face != "" {
		box, err := detector.ParseBox(face)
		if err != nil {
			return err
		}
		opts = append(opts, app.WithLocator(detector.NewStaticLocator(box)))
	}

	service, err := app.New(cfg, log.Logger, opts...)
	if err != nil {
		return err
	}
	defer service.Close()

	var bar *progressbar.ProgressBar
	if !noProgress && !jsonOutput {
		bar = newProgressBar(cmd.ErrOrStderr(), len(args))
	}

	results, err := analyzeFiles(cmd.Context(), service.Analyzer(), cfg.Image, args, concurrency, bar)
	if err != nil {
		return err
	}
	if bar != nil {
		fmt.Fprintln(cmd.ErrOrStderr())
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		printResults(out, results)
	}

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d/%d件の分析に失敗しました", failed, len(results))
	}
	return nil
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("分析中"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// ファイルを並列に分析する
// 個々のファイルの失敗は結果に記録し、中断はctxの終了時のみ
func analyzeFiles(ctx context.Context, a analyzer.SkinAnalyzerInterface, imageCfg config.ImageConfig,
	paths []string, concurrency int, bar *progressbar.ProgressBar) ([]fileResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	v := validator.NewImageValidator(&imageCfg)
	results := make([]fileResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = analyzeFile(a, v, imageCfg.MaxDimension, path)
			if bar != nil {
				bar.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func analyzeFile(a analyzer.SkinAnalyzerInterface, v *validator.ImageValidator, maxDimension int, path string) fileResult {
	res := fileResult{File: path}

	result, err := func() (*analyzer.AnalysisResult, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("ファイルを読み込めません: %s", filepath.Base(path)), err)
		}
		if _, err := v.Validate(data); err != nil {
			return nil, err
		}
		buf, err := colorspace.Decode(data, maxDimension)
		if err != nil {
			return nil, err
		}
		return a.Analyze(buf)
	}()
	if err != nil {
		e := errors.From(err)
		msg := e.Message
		if e.Err != nil {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
		res.Error = &fileError{Code: e.Code, Message: msg}
		return res
	}
	res.Result = result
	return res
}

func printResults(w io.Writer, results []fileResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tCATEGORY\tEXTENDED\tCONFIDENCE\tMETHOD\tNOTE")
	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t%s\n", r.File, r.Error.Message)
			continue
		}
		note := ""
		if r.Result.Details.NeedsRetry {
			note = "撮り直しを推奨"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
			r.File,
			r.Result.Skin.Category,
			r.Result.Extended.Category,
			r.Result.Skin.Confidence,
			r.Result.Details.FaceDetectionMethod,
			note,
		)
	}
	tw.Flush()
}
