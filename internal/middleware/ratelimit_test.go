package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// newTestRateLimiter は小さいバーストのRateLimiterを生成するヘルパー。
func newTestRateLimiter(t *testing.T, generalBurst, ingestBurst int) *RateLimiter {
	t.Helper()

	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(1.0 / 60.0),
		GeneralBurst:    generalBurst,
		IngestRate:      rate.Limit(1.0 / 60.0),
		IngestBurst:     ingestBurst,
		CleanupInterval: time.Hour,
	})
	t.Cleanup(rl.Stop)
	return rl
}

// withCallParam はchiのルートパラメータcallを設定したリクエストを返す。
func withCallParam(r *http.Request, call string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("call", call)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// okHandler は常に200を返すハンドラー。
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// TestGeneralMiddleware_AllowsWithinBurst はバースト内のリクエストが通過することを検証する。
func TestGeneralMiddleware_AllowsWithinBurst(t *testing.T) {
	rl := newTestRateLimiter(t, 3, 1)
	handler := rl.GeneralMiddleware()(okHandler)

	for i := 0; i < 3; i++ {
		req := withCallParam(httptest.NewRequest(http.MethodGet, "/api/users/K8SMC/spots", nil), "K8SMC")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, w.Code)
		}
	}
}

// TestGeneralMiddleware_ExceedingBurstReturns429 はバースト超過時に429が返ることを検証する。
func TestGeneralMiddleware_ExceedingBurstReturns429(t *testing.T) {
	rl := newTestRateLimiter(t, 2, 1)
	handler := rl.GeneralMiddleware()(okHandler)

	for i := 0; i < 2; i++ {
		req := withCallParam(httptest.NewRequest(http.MethodGet, "/api/users/K8SMC/spots", nil), "K8SMC")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
	}

	req := withCallParam(httptest.NewRequest(http.MethodGet, "/api/users/K8SMC/spots", nil), "K8SMC")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body["code"] != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("code = %q, want RATE_LIMIT_EXCEEDED", body["code"])
	}
}

// TestGeneralMiddleware_KeysAreIndependent はコールサインごとに独立して制限されることを検証する。
func TestGeneralMiddleware_KeysAreIndependent(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 1)
	handler := rl.GeneralMiddleware()(okHandler)

	req1 := withCallParam(httptest.NewRequest(http.MethodGet, "/api/users/K8SMC/spots", nil), "K8SMC")
	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, req1)

	// K8SMCのバーストは使い切ったが、W6BSDは別キーなので通過する
	req2 := withCallParam(httptest.NewRequest(http.MethodGet, "/api/users/W6BSD/spots", nil), "W6BSD")
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req2)

	if w2.Code != http.StatusOK {
		t.Errorf("different call status = %d, want 200", w2.Code)
	}

	if rl.GeneralLimiterCount() != 2 {
		t.Errorf("general limiter count = %d, want 2", rl.GeneralLimiterCount())
	}
}

// TestGeneralMiddleware_CallKeyIsCaseInsensitive はコールサインキーが大文字に正規化されることを検証する。
func TestGeneralMiddleware_CallKeyIsCaseInsensitive(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 1)
	handler := rl.GeneralMiddleware()(okHandler)

	req1 := withCallParam(httptest.NewRequest(http.MethodGet, "/api/users/k8smc/spots", nil), "k8smc")
	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, req1)

	req2 := withCallParam(httptest.NewRequest(http.MethodGet, "/api/users/K8SMC/spots", nil), "K8SMC")
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req2)

	if w2.Code != http.StatusTooManyRequests {
		t.Errorf("same call different case status = %d, want 429", w2.Code)
	}
	if rl.GeneralLimiterCount() != 1 {
		t.Errorf("general limiter count = %d, want 1", rl.GeneralLimiterCount())
	}
}

// TestGeneralMiddleware_FallsBackToRemoteHost はコールサインがない場合に接続元ホストをキーにすることを検証する。
func TestGeneralMiddleware_FallsBackToRemoteHost(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 1)
	handler := rl.GeneralMiddleware()(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "203.0.113.5:41000"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.RemoteAddr = "203.0.113.5:41001"
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req2)

	// ポートが変わっても同一ホストとして制限される
	if w2.Code != http.StatusTooManyRequests {
		t.Errorf("same host status = %d, want 429", w2.Code)
	}
}

// TestIngestMiddleware_KeyedByRemoteHost は取り込みが接続元ホスト単位で制限されることを検証する。
func TestIngestMiddleware_KeyedByRemoteHost(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 2)
	handler := rl.IngestMiddleware()(okHandler)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/spots", nil)
		req.RemoteAddr = "198.51.100.7:5000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/spots", nil)
	req.RemoteAddr = "198.51.100.7:5001"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}

	// 別ホストは独立したバーストを持つ
	req2 := httptest.NewRequest(http.MethodPost, "/api/spots", nil)
	req2.RemoteAddr = "198.51.100.8:5000"
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req2)

	if w2.Code != http.StatusOK {
		t.Errorf("different host status = %d, want 200", w2.Code)
	}
	if rl.IngestLimiterCount() != 2 {
		t.Errorf("ingest limiter count = %d, want 2", rl.IngestLimiterCount())
	}
}

// TestIngestAndGeneralLimitersAreIndependent は取り込みとクエリ系の制限が干渉しないことを検証する。
func TestIngestAndGeneralLimitersAreIndependent(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 1)
	ingestHandler := rl.IngestMiddleware()(okHandler)
	generalHandler := rl.GeneralMiddleware()(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/spots", nil)
	req.RemoteAddr = "198.51.100.7:5000"
	w := httptest.NewRecorder()
	ingestHandler.ServeHTTP(w, req)

	// 取り込みのバーストを使い切ってもクエリ系は通過する
	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.RemoteAddr = "198.51.100.7:5001"
	w2 := httptest.NewRecorder()
	generalHandler.ServeHTTP(w2, req2)

	if w2.Code != http.StatusOK {
		t.Errorf("general status = %d, want 200", w2.Code)
	}
}

// TestLimiterSet_Cleanup は期限切れエントリがクリーンアップで削除されることを検証する。
func TestLimiterSet_Cleanup(t *testing.T) {
	s := newLimiterSet(rate.Limit(1), 1)

	s.getOrCreate("K8SMC")
	s.getOrCreate("W6BSD")
	if s.count() != 2 {
		t.Fatalf("count = %d, want 2", s.count())
	}

	// TTL 0で全エントリが期限切れになる
	time.Sleep(time.Millisecond)
	s.cleanup(0)

	if s.count() != 0 {
		t.Errorf("count after cleanup = %d, want 0", s.count())
	}
}

// TestNewRateLimiterConfig_FromPerMinuteLimits はreq/min設定からレートとバーストが
// 導出されることを検証する。ノード設定のRATE_LIMIT_GENERAL/INGESTがここを通る。
func TestNewRateLimiterConfig_FromPerMinuteLimits(t *testing.T) {
	cfg := NewRateLimiterConfig(60, 300)

	if cfg.GeneralRate != rate.Limit(1.0) {
		t.Errorf("GeneralRate = %v, want 1.0", cfg.GeneralRate)
	}
	if cfg.GeneralBurst != 60 {
		t.Errorf("GeneralBurst = %d, want 60", cfg.GeneralBurst)
	}
	if cfg.IngestRate != rate.Limit(5.0) {
		t.Errorf("IngestRate = %v, want 5.0", cfg.IngestRate)
	}
	if cfg.IngestBurst != 300 {
		t.Errorf("IngestBurst = %d, want 300", cfg.IngestBurst)
	}
}

// TestNewRateLimiterConfig_ClampsNonPositiveLimits は0以下の上限が1に繰り上がることを検証する。
func TestNewRateLimiterConfig_ClampsNonPositiveLimits(t *testing.T) {
	cfg := NewRateLimiterConfig(0, -5)

	if cfg.GeneralBurst != 1 || cfg.IngestBurst != 1 {
		t.Errorf("bursts = (%d, %d), want (1, 1)", cfg.GeneralBurst, cfg.IngestBurst)
	}
}

// TestDefaultRateLimiterConfig はデフォルト値（120/600 req/min）を検証する。
func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()

	if cfg.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", cfg.GeneralBurst)
	}
	if cfg.IngestBurst != 600 {
		t.Errorf("IngestBurst = %d, want 600", cfg.IngestBurst)
	}
}

// TestWriteRateLimitResponse_RetryAfterAtLeastOneSecond はRetry-Afterが最低1秒になることを検証する。
func TestWriteRateLimitResponse_RetryAfterAtLeastOneSecond(t *testing.T) {
	w := httptest.NewRecorder()
	writeRateLimitResponse(w, rate.Limit(1000))

	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want %q", got, "1")
	}
}
