package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/dxhub/internal/model"
)

// QueryServiceInterface はクエリハンドラーが必要とするサービスインターフェース。
// 各操作は照会ユーザーのフィルタを事後適用した整形済みテキスト行を返す。
type QueryServiceInterface interface {
	Recent(ctx context.Context, userCall string, limit int) ([]string, error)
	ByCall(ctx context.Context, userCall, call string, limit int) ([]string, error)
	BySpotter(ctx context.Context, userCall, call string, limit int) ([]string, error)
	ByDX(ctx context.Context, userCall, call string, limit int) ([]string, error)
	ByBand(ctx context.Context, userCall, band string, limit int) ([]string, error)
	ByFreqRange(ctx context.Context, userCall string, low, high float64, limit int) ([]string, error)
	ByPrefix(ctx context.Context, userCall, prefix string, limit int) ([]string, error)
	ByComment(ctx context.Context, userCall, substr string, limit int) ([]string, error)
}

// QueryHandler は履歴スポット検索のHTTPハンドラー。
// SH/DXコマンドファミリーのクエリ境界に対応する。
type QueryHandler struct {
	service QueryServiceInterface
}

// NewQueryHandler はQueryHandlerを生成する。
func NewQueryHandler(service QueryServiceInterface) *QueryHandler {
	return &QueryHandler{service: service}
}

// ListSpots は指定された検索形で履歴スポットを返す。
// GET /api/users/{call}/spots?by=<shape>&...
//
// 検索形（byパラメータ）:
//
//	recent（デフォルト） - 直近のスポット
//	call&arg=<call>      - 発信元コールサイン一致
//	spotter&arg=<call>   - 発信元コールサイン一致（callのエイリアス）
//	dx&arg=<call>        - スポットされたDX局一致
//	band&arg=<band>      - バンド一致
//	range&low=&high=     - 周波数範囲（kHz）
//	prefix&arg=<pfx>     - 発信元プレフィックス前方一致
//	comment&arg=<text>   - コメント部分一致
//
// レスポンスはtext/plainで1スポット1行。行幅はユーザー設定に従う。
func (h *QueryHandler) ListSpots(w http.ResponseWriter, r *http.Request) {
	userCall := chi.URLParam(r, "call")
	q := r.URL.Query()

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidQueryError("limitが数値ではありません"))
			return
		}
		limit = n
	}

	arg := q.Get("arg")
	var lines []string
	var err error

	switch strings.ToLower(q.Get("by")) {
	case "", "recent":
		lines, err = h.service.Recent(r.Context(), userCall, limit)
	case "call":
		lines, err = h.service.ByCall(r.Context(), userCall, arg, limit)
	case "spotter":
		lines, err = h.service.BySpotter(r.Context(), userCall, arg, limit)
	case "dx":
		lines, err = h.service.ByDX(r.Context(), userCall, arg, limit)
	case "band":
		lines, err = h.service.ByBand(r.Context(), userCall, arg, limit)
	case "range":
		var low, high float64
		low, err = strconv.ParseFloat(q.Get("low"), 64)
		if err == nil {
			high, err = strconv.ParseFloat(q.Get("high"), 64)
		}
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidQueryError("low/highが数値ではありません"))
			return
		}
		lines, err = h.service.ByFreqRange(r.Context(), userCall, low, high, limit)
	case "prefix":
		lines, err = h.service.ByPrefix(r.Context(), userCall, arg, limit)
	case "comment":
		lines, err = h.service.ByComment(r.Context(), userCall, arg, limit)
	default:
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidQueryError("未定義の検索形です: "+q.Get("by")))
		return
	}

	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	for _, line := range lines {
		w.Write([]byte(line + "\n"))
	}
}
