package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/okamyuji/skin-tone-analyzer/config"
	"github.com/okamyuji/skin-tone-analyzer/internal/analyzer"
	"github.com/okamyuji/skin-tone-analyzer/internal/detector"
	"github.com/okamyuji/skin-tone-analyzer/internal/handler"
	"github.com/okamyuji/skin-tone-analyzer/internal/metrics"
	"github.com/okamyuji/skin-tone-analyzer/internal/palette"
	"github.com/okamyuji/skin-tone-analyzer/internal/skin"
	"github.com/okamyuji/skin-tone-analyzer/internal/worker"
)

// 組み立て済みのサービス
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	locator   detector.Locator
	status    handler.StatusProvider
	palettes  *palette.Table
	analyzer  *analyzer.Analyzer
	pool      *worker.Pool
	collector *metrics.MetricsCollector
	server    *http.Server

	closeOnce sync.Once
	closeErr  error
}

type Option func(*options)

type options struct {
	locator    detector.Locator
	withServer bool
}

// 顔検出器を差し替える
// 指定した場合はモデルファイルを読み込まない
func WithLocator(l detector.Locator) Option {
	return func(o *options) {
		o.locator = l
	}
}

// HTTPサーバーを組み立てない
// コマンドラインでの分析のみに使う
func WithoutServer() Option {
	return func(o *options) {
		o.withServer = false
	}
}

// 固定の検出器の状態
type locatorStatus struct {
	name string
}

func (s locatorStatus) GetStatus() analyzer.Status {
	return analyzer.Status{Method: s.name}
}

// 設定からサービスを組み立てる
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("設定が指定されていません")
	}
	if logger == nil {
		logger = slog.Default()
	}
	o := options{withServer: true}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg, logger: logger}

	palettes, err := palette.Load(cfg.Palette.File)
	if err != nil {
		return nil, fmt.Errorf("パレット表の読み込みに失敗: %w", err)
	}
	a.palettes = palettes

	extractor, err := skin.NewExtractor(cfg.Skin.Options())
	if err != nil {
		return nil, fmt.Errorf("肌領域抽出器の初期化に失敗: %w", err)
	}

	if o.locator != nil {
		a.locator = o.locator
		a.status = locatorStatus{name: o.locator.Name()}
	} else {
		rm, err := analyzer.NewResourceManager(cfg.Detector.ResourceOptions(), logger)
		if err != nil {
			return nil, err
		}
		a.locator = rm
		a.status = rm
	}

	analyzerOpts := []analyzer.Option{analyzer.WithLogger(logger)}
	if cfg.Metrics.Enabled {
		a.collector = metrics.NewMetricsCollector()
		analyzerOpts = append(analyzerOpts, analyzer.WithMetrics(a.collector))
	}

	a.analyzer, err = analyzer.New(a.locator, extractor, palettes, analyzerOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	if o.withServer {
		a.pool = worker.NewPool(cfg.Worker.MinWorkers, cfg.Worker.MaxWorkers)
		a.server = &http.Server{
			Addr:           net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:        a.router(),
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			IdleTimeout:    cfg.Server.IdleTimeout,
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		}
	}

	return a, nil
}

func (a *App) router() http.Handler {
	deps := handler.Dependencies{
		Config:       a.cfg,
		Analyzer:     a.analyzer,
		Palettes:     a.palettes,
		Detector:     a.status,
		DetectorName: a.analyzer.DetectorName(),
		Pool:         a.pool,
		Logger:       a.logger,
	}
	if a.collector != nil {
		deps.Metrics = a.collector
		deps.MetricsHandler = a.collector.Handler()
	}
	return handler.NewRouter(deps)
}

func (a *App) Analyzer() *analyzer.Analyzer {
	return a.analyzer
}

func (a *App) Palettes() *palette.Table {
	return a.palettes
}

// HTTPハンドラー
// WithoutServerで組み立てた場合はnil
func (a *App) Handler() http.Handler {
	if a.server == nil {
		return nil
	}
	return a.server.Handler
}

func (a *App) Addr() string {
	if a.server == nil {
		return ""
	}
	return a.server.Addr
}

// サーバーを起動し、ctxが終了したら停止する
func (a *App) Run(ctx context.Context) error {
	if a.server == nil {
		return fmt.Errorf("HTTPサーバーが組み立てられていません")
	}

	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return stderrors.Join(fmt.Errorf("リッスンに失敗: %w", err), a.Close())
	}
	return a.Serve(ctx, ln)
}

// 指定したリスナーでサーバーを起動する
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	if a.server == nil {
		ln.Close()
		return fmt.Errorf("HTTPサーバーが組み立てられていません")
	}

	if err := a.startExporter(ctx); err != nil {
		// CloudWatchは任意のため起動は続ける
		a.logger.Warn("CloudWatchエクスポーターを開始できません", "error", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("サーバーを起動します", "addr", ln.Addr().String(), "detector", a.analyzer.DetectorName())
		if err := a.server.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		// サーバーが停止した時点でプールと検出器も解放する
		closeErr := a.Close()
		if err != nil {
			return stderrors.Join(fmt.Errorf("サーバーの起動に失敗: %w", err), closeErr)
		}
		return closeErr
	case <-ctx.Done():
	}

	a.logger.Info("サーバーを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

func (a *App) startExporter(ctx context.Context) error {
	cw := a.cfg.Metrics.CloudWatch
	if a.collector == nil || !cw.Enabled {
		return nil
	}
	client, err := metrics.NewCloudWatchClient(ctx, cw.Region)
	if err != nil {
		return err
	}
	exporter := metrics.NewCloudWatchExporter(client, cw.Namespace, cw.Interval).WithLogger(a.logger)
	go exporter.Start(ctx, a.collector)
	a.logger.Info("CloudWatchへのエクスポートを開始", "namespace", cw.Namespace, "interval", cw.Interval)
	return nil
}

// 受付中のリクエストを待ってから全リソースを解放する
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("サーバーの停止に失敗: %w", err))
		}
	}
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}
	return stderrors.Join(errs...)
}

// ワーカープール、メトリクス、顔検出器を解放する
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		var errs []error
		if a.pool != nil {
			ctx, cancel := context.WithTimeout(context.Background(), poolDrainTimeout(a.cfg))
			if err := a.pool.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("ワーカープールの停止に失敗: %w", err))
			}
			cancel()
		}
		if a.collector != nil {
			a.collector.Close()
		}
		if a.locator != nil {
			if err := a.locator.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		a.closeErr = stderrors.Join(errs...)
	})
	return a.closeErr
}

func poolDrainTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}
