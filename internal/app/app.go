// Package app はアプリケーションの初期化と起動を提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/dxhub/internal/config"
	"github.com/hitoshi/dxhub/internal/database"
	"github.com/hitoshi/dxhub/internal/dispatch"
	"github.com/hitoshi/dxhub/internal/dxcc"
	"github.com/hitoshi/dxhub/internal/filter"
	"github.com/hitoshi/dxhub/internal/handler"
	"github.com/hitoshi/dxhub/internal/logger"
	"github.com/hitoshi/dxhub/internal/metrics"
	"github.com/hitoshi/dxhub/internal/middleware"
	"github.com/hitoshi/dxhub/internal/query"
	"github.com/hitoshi/dxhub/internal/repository"
	"github.com/hitoshi/dxhub/internal/security"
	"github.com/hitoshi/dxhub/internal/spot"
	"github.com/hitoshi/dxhub/internal/user"
	"github.com/hitoshi/dxhub/internal/worker/ctyfetch"
	"github.com/hitoshi/dxhub/internal/worker/purge"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "7300"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("cluster_call", cfg.ClusterCall),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はクラスタノードモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーと
// バックグラウンドワーカー（スポットパージ、国テーブル更新）を起動する。
// セッションはプロセス内メモリに存在するため、ワーカーはサーバーと同一プロセスで動作する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. 国・州分類テーブルの読み込み（埋め込みデータから）
	classifier, err := dxcc.New()
	if err != nil {
		return fmt.Errorf("failed to load country table: %w", err)
	}

	slog.Info("country table loaded", slog.Int("entities", classifier.Size()))

	// 3. リポジトリの初期化
	spotRepo := repository.NewPostgresSpotRepo(db)
	userRepo := repository.NewPostgresUserRepo(db)
	filterRepo := repository.NewPostgresFilterRepo(db)

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	clock := clockwork.NewRealClock()

	// 5. ドメインサービスの初期化
	engine := filter.NewEngine(classifier)
	dispatcher := dispatch.NewDispatcher(
		engine, collector, slog.Default(),
		cfg.DispatchMaxConcurrent, cfg.DispatchQueueSize,
	)

	normalizer := spot.NewNormalizer(classifier, clock)
	spotService := spot.NewService(normalizer, spotRepo, dispatcher, collector, clock, slog.Default())

	filterService := filter.NewService(filterRepo, classifier, slog.Default())
	filterService.SetRuleChangeListener(dispatcher.UpdateRules)

	userService := user.NewService(userRepo, clock, cfg.LineWidth, slog.Default())
	userService.SetSettingsChangeListener(dispatcher.UpdateSettings)

	formatter := query.NewFormatter(cfg.FreqPrecision)
	queryService := query.NewService(spotRepo, userRepo, filterRepo, engine, formatter)

	// 6. バックグラウンドワーカーの初期化
	purgeJob := purge.NewJob(spotRepo, collector, clock, slog.Default(), cfg.SpotRetention)

	ssrfGuard := security.NewSSRFGuard()
	ctyFetcher := ctyfetch.NewFetcher(
		classifier,
		ssrfGuard.NewSafeClient(cfg.CtyTimeout),
		cfg.CtyURL,
		cfg.CtyMaxSize,
		slog.Default(),
	)

	// 7. ルーターの構築
	rateLimiterCfg := middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitIngest)
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:      slog.Default(),
		RateLimiter: rateLimiter,

		SpotIngest:            spotService,
		AnnouncementPublisher: dispatcher,

		QueryService:  queryService,
		FilterService: filterService,
		UserService:   userService,

		Dispatcher: dispatcher,
		Formatter:  formatter,

		Gatherer: registry,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// 配信ストリームは長時間接続のためWriteTimeoutは設定しない
		IdleTimeout: 60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// パージジョブと国テーブル更新をバックグラウンドで起動
	go purgeJob.Start(workerCtx, 24*time.Hour)
	go ctyFetcher.Start(workerCtx, cfg.CtyRefreshInterval)

	go func() {
		slog.Info("cluster node starting",
			slog.String("addr", server.Addr),
			slog.String("cluster_call", cfg.ClusterCall),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down cluster node...")
	cancelWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("cluster node stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
