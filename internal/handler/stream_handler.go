package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/dxhub/internal/dispatch"
	"github.com/hitoshi/dxhub/internal/model"
	"github.com/hitoshi/dxhub/internal/query"
)

// StreamUserInterface はストリーム開始時のプロファイル解決インターフェース。
type StreamUserInterface interface {
	GetOrCreate(ctx context.Context, call string) (*model.User, error)
}

// StreamFilterInterface はストリーム開始時のルールセット読み込みインターフェース。
type StreamFilterInterface interface {
	List(ctx context.Context, call string) (model.FilterRuleSet, error)
}

// DispatcherInterface はセッションの登録・解除インターフェース。
type DispatcherInterface interface {
	Attach(user *model.User, rules model.FilterRuleSet) *dispatch.Session
	Detach(sessionID string)
}

// StreamHandler はリアルタイム配信ストリームのHTTPハンドラー。
// 接続ごとにトランジェントなセッションを生成し、切断で破棄する。
type StreamHandler struct {
	users      StreamUserInterface
	filters    StreamFilterInterface
	dispatcher DispatcherInterface
	formatter  *query.Formatter
}

// NewStreamHandler はStreamHandlerを生成する。
func NewStreamHandler(users StreamUserInterface, filters StreamFilterInterface, dispatcher DispatcherInterface, formatter *query.Formatter) *StreamHandler {
	return &StreamHandler{
		users:      users,
		filters:    filters,
		dispatcher: dispatcher,
		formatter:  formatter,
	}
}

// Stream は接続を維持し、フィルタを通過したスポット・アナウンスを
// テキスト行としてチャンク転送で配信する。
// GET /api/stream/{call}
// 初回接続のコールサインにはデフォルト設定のプロファイルが暗黙的に作成される。
// 同一コールサインの複数接続はそれぞれ独立したセッションとなる。
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	call := chi.URLParam(r, "call")

	user, err := h.users.GetOrCreate(r.Context(), call)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	rules, err := h.filters.List(r.Context(), user.Call)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
			Code:     "STREAMING_UNSUPPORTED",
			Message:  "ストリーミング配信に対応していない接続です。",
			Category: "system",
			Action:   "チャンク転送に対応したクライアントで接続してください。",
		})
		return
	}

	session := h.dispatcher.Attach(user, rules)
	defer h.dispatcher.Detach(session.ID())

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "Hello %s, welcome to DXHub\n", user.Call)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-session.Events():
			if !ok {
				return
			}
			line := h.formatLine(ev, user.LineWidth)
			if line == "" {
				continue
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// formatLine はイベントをユーザーの行幅設定でテキスト行に整形する。
func (h *StreamHandler) formatLine(ev dispatch.Event, width int) string {
	switch {
	case ev.Spot != nil:
		return h.formatter.Line(ev.Spot, width)
	case ev.Announcement != nil:
		return h.formatter.Announcement(ev.Announcement)
	}
	return ""
}
