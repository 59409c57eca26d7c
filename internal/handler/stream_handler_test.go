package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/dxhub/internal/dispatch"
	"github.com/hitoshi/dxhub/internal/filter"
	"github.com/hitoshi/dxhub/internal/metrics"
	"github.com/hitoshi/dxhub/internal/model"
	"github.com/hitoshi/dxhub/internal/query"
)

// syncRecorder は並行書き込みに安全なResponseWriter。
// ストリームハンドラーをゴルーチンで動かしながらボディを観測するために使用する。
type syncRecorder struct {
	mu     sync.Mutex
	header http.Header
	body   strings.Builder
	status int
}

func newSyncRecorder() *syncRecorder {
	return &syncRecorder{header: make(http.Header)}
}

func (r *syncRecorder) Header() http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.header
}

func (r *syncRecorder) WriteHeader(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = code
}

func (r *syncRecorder) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.Write(b)
}

func (r *syncRecorder) Flush() {}

func (r *syncRecorder) snapshot() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.String()
}

// waitForBody はボディに部分文字列が現れるまでポーリングする。
func waitForBody(t *testing.T, rec *syncRecorder, substr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(rec.snapshot(), substr) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("body does not contain %q within deadline: %q", substr, rec.snapshot())
}

func newTestDispatcher(t *testing.T) *dispatch.Dispatcher {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	collector := metrics.NewCollector(prometheus.NewRegistry())
	return dispatch.NewDispatcher(filter.NewEngine(nil), collector, logger, 4, 16)
}

func TestStreamHandler_Stream_DeliversSpotsAndAnnouncements(t *testing.T) {
	dispatcher := newTestDispatcher(t)
	h := NewStreamHandler(&mockUserService{}, &mockFilterService{}, dispatcher, query.NewFormatter(1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/stream/K8SMC", nil).WithContext(ctx)
	req = withChiURLParam(req, "call", "K8SMC")
	rec := newSyncRecorder()

	done := make(chan struct{})
	go func() {
		h.Stream(rec, req)
		close(done)
	}()

	// ウェルカム行が出力された時点でセッションは登録済み
	waitForBody(t, rec, "Hello K8SMC")
	if dispatcher.SessionCount() != 1 {
		t.Errorf("session count = %d, want 1", dispatcher.SessionCount())
	}

	dispatcher.PublishSpot(&model.Spot{
		ID:        "spot-1",
		DE:        "KB8OTK",
		Frequency: 14205.0,
		DX:        "EA8TL",
		Comment:   "Spanish",
		Time:      time.Date(2026, 3, 1, 22, 41, 0, 0, time.UTC),
	})
	waitForBody(t, rec, "DX de KB8OTK:")
	waitForBody(t, rec, "2241Z")

	dispatcher.PublishAnnouncement(&model.Announcement{
		ID:   "ann-1",
		Call: "W6BSD",
		Kind: model.AnnouncementWeather,
		Text: "Storm warning",
		Time: time.Now().UTC(),
	})
	waitForBody(t, rec, "To WX de W6BSD: Storm warning")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after context cancellation")
	}

	// 切断でセッションが登録解除される
	if dispatcher.SessionCount() != 0 {
		t.Errorf("session count after disconnect = %d, want 0", dispatcher.SessionCount())
	}
}

func TestStreamHandler_Stream_RespectsSpotsDisabled(t *testing.T) {
	dispatcher := newTestDispatcher(t)

	users := &mockUserService{
		getOrCreateFn: func(ctx context.Context, call string) (*model.User, error) {
			return &model.User{Call: call, SpotsEnabled: false, AnnEnabled: true, LineWidth: model.DefaultLineWidth}, nil
		},
	}
	h := NewStreamHandler(users, &mockFilterService{}, dispatcher, query.NewFormatter(1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/stream/K8SMC", nil).WithContext(ctx)
	req = withChiURLParam(req, "call", "K8SMC")
	rec := newSyncRecorder()

	done := make(chan struct{})
	go func() {
		h.Stream(rec, req)
		close(done)
	}()

	waitForBody(t, rec, "Hello K8SMC")

	// スポット配信は無効なので届かず、アナウンスのみ届く
	dispatcher.PublishSpot(&model.Spot{
		ID: "spot-1", DE: "KB8OTK", Frequency: 14205.0, DX: "EA8TL",
		Time: time.Now().UTC(),
	})
	dispatcher.PublishAnnouncement(&model.Announcement{
		ID: "ann-1", Call: "W6BSD", Kind: model.AnnouncementGeneral, Text: "hello",
		Time: time.Now().UTC(),
	})
	waitForBody(t, rec, "To All de W6BSD: hello")

	if strings.Contains(rec.snapshot(), "DX de KB8OTK") {
		t.Error("spot was delivered despite spots_enabled = false")
	}

	cancel()
	<-done
}

func TestStreamHandler_Stream_UserServiceError(t *testing.T) {
	dispatcher := newTestDispatcher(t)

	users := &mockUserService{
		getOrCreateFn: func(ctx context.Context, call string) (*model.User, error) {
			return nil, model.NewUserNotFoundError(call)
		},
	}
	h := NewStreamHandler(users, &mockFilterService{}, dispatcher, query.NewFormatter(1))

	req := httptest.NewRequest(http.MethodGet, "/api/stream/", nil)
	req = withChiURLParam(req, "call", "")
	w := httptest.NewRecorder()

	h.Stream(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
	if dispatcher.SessionCount() != 0 {
		t.Errorf("session count = %d, want 0", dispatcher.SessionCount())
	}
}
