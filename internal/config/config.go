// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hitoshi/dxhub/internal/model"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// 行幅や周波数の丸め精度といったノード全体の設定もここに属し、
// グローバル可変状態ではなく明示的にフォーマッタへ渡される。
type Config struct {
	// Database
	DatabaseURL string

	// Cluster
	ClusterCall   string        // このノードのコールサイン
	LineWidth     int           // スポット行のデフォルト表示幅（45〜130）
	FreqPrecision int           // 周波数表示の小数桁数
	SpotRetention time.Duration // スポットの保持期間（パージワーカーが使用）

	// Dispatch
	DispatchMaxConcurrent int // 1スポットあたりのセッション評価の最大並列数
	DispatchQueueSize     int // セッションごとの配信キュー長

	// Cty（bigcty国テーブルの更新）
	CtyURL             string
	CtyRefreshInterval time.Duration
	CtyTimeout         time.Duration
	CtyMaxSize         int64

	// Rate Limit
	RateLimitGeneral int // 一般API req/min
	RateLimitIngest  int // スポット取り込み req/min

	// Server
	ServerPort string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.ClusterCall = os.Getenv("CLUSTER_CALL")
	if cfg.ClusterCall == "" {
		missing = append(missing, "CLUSTER_CALL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.LineWidth = getEnvInt("LINE_WIDTH", model.DefaultLineWidth)
	if cfg.LineWidth < model.MinLineWidth || cfg.LineWidth > model.MaxLineWidth {
		return nil, fmt.Errorf("LINE_WIDTH must be between %d and %d, got %d",
			model.MinLineWidth, model.MaxLineWidth, cfg.LineWidth)
	}
	cfg.FreqPrecision = getEnvInt("FREQ_PRECISION", 1)
	cfg.SpotRetention = getEnvDuration("SPOT_RETENTION", 365*24*time.Hour)
	cfg.DispatchMaxConcurrent = getEnvInt("DISPATCH_MAX_CONCURRENT", 32)
	cfg.DispatchQueueSize = getEnvInt("DISPATCH_QUEUE_SIZE", 64)
	cfg.CtyURL = getEnvString("CTY_URL", "https://www.country-files.com/bigcty/download/cty.csv")
	cfg.CtyRefreshInterval = getEnvDuration("CTY_REFRESH_INTERVAL", 7*24*time.Hour)
	cfg.CtyTimeout = getEnvDuration("CTY_TIMEOUT", 30*time.Second)
	cfg.CtyMaxSize = getEnvInt64("CTY_MAX_SIZE", 2097152)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitIngest = getEnvInt("RATE_LIMIT_INGEST", 600)
	cfg.ServerPort = getEnvString("SERVER_PORT", "7300")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
