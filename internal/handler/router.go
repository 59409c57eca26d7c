package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/dxhub/internal/metrics"
	"github.com/hitoshi/dxhub/internal/middleware"
	"github.com/hitoshi/dxhub/internal/query"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger      *slog.Logger
	RateLimiter *middleware.RateLimiter

	// 取り込み
	SpotIngest            SpotIngestInterface
	AnnouncementPublisher AnnouncementPublisherInterface

	// クエリ
	QueryService QueryServiceInterface

	// フィルタ
	FilterService FilterServiceInterface

	// ユーザー
	UserService UserServiceInterface

	// ストリーム
	Dispatcher DispatcherInterface
	Formatter  *query.Formatter

	// メトリクス
	Gatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	LoggingMiddleware → RecoveryMiddleware → RateLimitMiddleware
//
// 取り込みルート（/api/spots、/api/announcements）は中継ノード単位の
// 専用レート制限を使用し、クエリ・設定系の制限とは独立に動作する。
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware())

	spotHandler := NewSpotHandler(deps.SpotIngest, deps.AnnouncementPublisher)
	queryHandler := NewQueryHandler(deps.QueryService)
	filterHandler := NewFilterHandler(deps.FilterService)
	userHandler := NewUserHandler(deps.UserService)
	streamHandler := NewStreamHandler(deps.UserService, deps.FilterService, deps.Dispatcher, deps.Formatter)

	// --- 運用ルート（レート制限なし） ---

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- 取り込みルート ---
	// 中継ノード（接続元ホスト）単位のレート制限
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.IngestMiddleware())

		r.Post("/api/spots", spotHandler.IngestSpot)
		r.Post("/api/announcements", spotHandler.IngestAnnouncement)
	})

	// --- クエリ・設定系ルート ---
	// コールサイン単位のレート制限
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/users/{call}", func(r chi.Router) {
			r.Get("/", userHandler.GetUser)
			r.Put("/settings", userHandler.UpdateSettings)

			// 履歴スポット検索
			r.Get("/spots", queryHandler.ListSpots)

			// フィルタ管理
			r.Route("/filters", func(r chi.Router) {
				r.Get("/", filterHandler.ListFilters)
				r.Delete("/", filterHandler.ResetFilters)
				r.Put("/{category}", filterHandler.SetFilter)
				r.Delete("/{category}", filterHandler.ClearFilter)
			})
		})

		// リアルタイム配信ストリーム
		r.Get("/api/stream/{call}", streamHandler.Stream)
	})

	return r
}
