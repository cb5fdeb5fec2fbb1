package config

import (
	"fmt"
	"time"
)

// アプリケーション設定
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
		Env     string `yaml:"env"`
		Debug   bool   `yaml:"debug"`
	} `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Security SecurityConfig `yaml:"security"`
	Image    ImageConfig    `yaml:"image"`
	Detector DetectorConfig `yaml:"detector"`
	Skin     SkinConfig     `yaml:"skin"`
	Palette  PaletteConfig  `yaml:"palette"`
	Worker   WorkerConfig   `yaml:"worker"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// サーバー設定
type ServerConfig struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes"`
}

// セキュリティ設定
type SecurityConfig struct {
	AllowedOrigins string            `yaml:"allowed_origins"`
	RateLimit      RateLimitConfig   `yaml:"rate_limit"`
	CORS           CORSConfig        `yaml:"cors"`
	Headers        map[string]string `yaml:"headers"`
}

// レートリミット設定
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// CORS設定
type CORSConfig struct {
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// 画像設定
type ImageConfig struct {
	MaxSize      int64    `yaml:"max_size"`
	AllowedTypes []string `yaml:"allowed_types"`
	MaxDimension int      `yaml:"max_dimension"`
}

// 顔検出設定
type DetectorConfig struct {
	UseDNN        bool    `yaml:"use_dnn"`
	ProtoPath     string  `yaml:"proto_path"`
	ModelPath     string  `yaml:"model_path"`
	MinConfidence float64 `yaml:"min_confidence"`
	InputSize     int     `yaml:"input_size"`
	CascadeFile   string  `yaml:"cascade_file"`
	ScaleFactor   float64 `yaml:"scale_factor"`
	MinNeighbors  int     `yaml:"min_neighbors"`
	MinFaceSize   int     `yaml:"min_face_size"`
}

// 肌領域抽出設定
// H は 0-180、S/V は 0-255 のOpenCVスケール
type SkinConfig struct {
	HMin       float64 `yaml:"h_min"`
	HMax       float64 `yaml:"h_max"`
	SMin       float64 `yaml:"s_min"`
	SMax       float64 `yaml:"s_max"`
	VMin       float64 `yaml:"v_min"`
	VMax       float64 `yaml:"v_max"`
	Padding    float64 `yaml:"padding"`
	KernelSize int     `yaml:"kernel_size"`
	MinPixels  int     `yaml:"min_pixels"`
}

// パレット設定
// Fileが空の場合は組み込みのパレット表を使う
type PaletteConfig struct {
	File string `yaml:"file"`
}

// ワーカープール設定
type WorkerConfig struct {
	MinWorkers int32         `yaml:"min_workers"`
	MaxWorkers int32         `yaml:"max_workers"`
	Timeout    time.Duration `yaml:"timeout"`
}

// メトリクス設定
type MetricsConfig struct {
	Enabled    bool             `yaml:"enabled"`
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

// CloudWatch設定
type CloudWatchConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Namespace string        `yaml:"namespace"`
	Region    string        `yaml:"region"`
	Interval  time.Duration `yaml:"interval"`
}

// ログ設定
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	Fields map[string]string `yaml:"fields"`
}

// 既定値の設定
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:            "8080",
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxHeaderBytes:  1 << 20,
		},
		Security: SecurityConfig{
			AllowedOrigins: "*",
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				Burst:             10,
			},
			CORS: CORSConfig{
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
				MaxAge:         3600,
			},
		},
		Image: ImageConfig{
			MaxSize:      5 << 20,
			AllowedTypes: []string{"image/jpeg", "image/png"},
			MaxDimension: 4096,
		},
		Detector: DetectorConfig{
			UseDNN:        true,
			ProtoPath:     "models/deploy.prototxt",
			ModelPath:     "models/res10_300x300_ssd_iter_140000.caffemodel",
			MinConfidence: 0.5,
			InputSize:     300,
			CascadeFile:   "models/haarcascade_frontalface_default.xml",
			ScaleFactor:   1.1,
			MinNeighbors:  4,
			MinFaceSize:   30,
		},
		Skin: SkinConfig{
			HMin:       0,
			HMax:       50,
			SMin:       5,
			SMax:       65,
			VMin:       25,
			VMax:       95,
			Padding:    0.2,
			KernelSize: 5,
			MinPixels:  100,
		},
		Worker: WorkerConfig{
			MinWorkers: 2,
			MaxWorkers: 8,
			Timeout:    30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			CloudWatch: CloudWatchConfig{
				Namespace: "SkinToneAnalyzer",
				Interval:  time.Minute,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
	cfg.App.Name = "skin-tone-analyzer"
	cfg.App.Version = "1.0.0"
	cfg.App.Env = "development"
	return cfg
}

// 設定値の検証
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("アプリケーション名が設定されていません")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("サーバーポートが設定されていません")
	}
	if c.Image.MaxSize <= 0 {
		return fmt.Errorf("不正な最大画像サイズです")
	}
	if c.Image.MaxDimension <= 0 {
		return fmt.Errorf("不正な最大画像寸法です")
	}
	if c.Detector.ScaleFactor <= 1.0 {
		return fmt.Errorf("不正なスケールファクターです")
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("DNNの信頼度しきい値は0から1の範囲で指定してください")
	}
	if c.Skin.HMin > c.Skin.HMax || c.Skin.SMin > c.Skin.SMax || c.Skin.VMin > c.Skin.VMax {
		return fmt.Errorf("肌色のHSV範囲が不正です")
	}
	if c.Skin.KernelSize <= 0 {
		return fmt.Errorf("不正なカーネルサイズです")
	}
	if c.Skin.MinPixels < 0 {
		return fmt.Errorf("不正な最小ピクセル数です")
	}
	if c.Worker.MinWorkers <= 0 || c.Worker.MaxWorkers < c.Worker.MinWorkers {
		return fmt.Errorf("ワーカー数の設定が不正です")
	}
	if c.Metrics.CloudWatch.Enabled && c.Metrics.CloudWatch.Namespace == "" {
		return fmt.Errorf("CloudWatchの名前空間が設定されていません")
	}
	return nil
}

// 開発環境かどうかを判定
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// 本番環境かどうかを判定
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
