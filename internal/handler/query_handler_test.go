package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/dxhub/internal/model"
)

// mockQueryService はQueryServiceInterfaceのモック実装。
type mockQueryService struct {
	recentFn      func(ctx context.Context, userCall string, limit int) ([]string, error)
	byCallFn      func(ctx context.Context, userCall, call string, limit int) ([]string, error)
	bySpotterFn   func(ctx context.Context, userCall, call string, limit int) ([]string, error)
	byDXFn        func(ctx context.Context, userCall, call string, limit int) ([]string, error)
	byBandFn      func(ctx context.Context, userCall, band string, limit int) ([]string, error)
	byFreqRangeFn func(ctx context.Context, userCall string, low, high float64, limit int) ([]string, error)
	byPrefixFn    func(ctx context.Context, userCall, prefix string, limit int) ([]string, error)
	byCommentFn   func(ctx context.Context, userCall, substr string, limit int) ([]string, error)
}

func (m *mockQueryService) Recent(ctx context.Context, userCall string, limit int) ([]string, error) {
	if m.recentFn != nil {
		return m.recentFn(ctx, userCall, limit)
	}
	return nil, nil
}

func (m *mockQueryService) ByCall(ctx context.Context, userCall, call string, limit int) ([]string, error) {
	if m.byCallFn != nil {
		return m.byCallFn(ctx, userCall, call, limit)
	}
	return nil, nil
}

func (m *mockQueryService) BySpotter(ctx context.Context, userCall, call string, limit int) ([]string, error) {
	if m.bySpotterFn != nil {
		return m.bySpotterFn(ctx, userCall, call, limit)
	}
	return nil, nil
}

func (m *mockQueryService) ByDX(ctx context.Context, userCall, call string, limit int) ([]string, error) {
	if m.byDXFn != nil {
		return m.byDXFn(ctx, userCall, call, limit)
	}
	return nil, nil
}

func (m *mockQueryService) ByBand(ctx context.Context, userCall, band string, limit int) ([]string, error) {
	if m.byBandFn != nil {
		return m.byBandFn(ctx, userCall, band, limit)
	}
	return nil, nil
}

func (m *mockQueryService) ByFreqRange(ctx context.Context, userCall string, low, high float64, limit int) ([]string, error) {
	if m.byFreqRangeFn != nil {
		return m.byFreqRangeFn(ctx, userCall, low, high, limit)
	}
	return nil, nil
}

func (m *mockQueryService) ByPrefix(ctx context.Context, userCall, prefix string, limit int) ([]string, error) {
	if m.byPrefixFn != nil {
		return m.byPrefixFn(ctx, userCall, prefix, limit)
	}
	return nil, nil
}

func (m *mockQueryService) ByComment(ctx context.Context, userCall, substr string, limit int) ([]string, error) {
	if m.byCommentFn != nil {
		return m.byCommentFn(ctx, userCall, substr, limit)
	}
	return nil, nil
}

// --- GET /api/users/{call}/spots テスト ---

func TestQueryHandler_ListSpots_DefaultsToRecent(t *testing.T) {
	svc := &mockQueryService{
		recentFn: func(ctx context.Context, userCall string, limit int) ([]string, error) {
			if userCall != "K8SMC" {
				t.Errorf("userCall = %q, want %q", userCall, "K8SMC")
			}
			if limit != 0 {
				t.Errorf("limit = %d, want 0 (service applies default)", limit)
			}
			return []string{"line1", "line2"}, nil
		},
	}

	h := NewQueryHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/K8SMC/spots", nil)
	req = withChiURLParam(req, "call", "K8SMC")
	w := httptest.NewRecorder()

	h.ListSpots(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
	if got := w.Body.String(); got != "line1\nline2\n" {
		t.Errorf("body = %q, want %q", got, "line1\nline2\n")
	}
}

func TestQueryHandler_ListSpots_ByCallPassesArgAndLimit(t *testing.T) {
	svc := &mockQueryService{
		byCallFn: func(ctx context.Context, userCall, call string, limit int) ([]string, error) {
			if call != "EA8TL" {
				t.Errorf("call = %q, want %q", call, "EA8TL")
			}
			if limit != 5 {
				t.Errorf("limit = %d, want 5", limit)
			}
			return []string{"line"}, nil
		},
	}

	h := NewQueryHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/K8SMC/spots?by=call&arg=EA8TL&limit=5", nil)
	req = withChiURLParam(req, "call", "K8SMC")
	w := httptest.NewRecorder()

	h.ListSpots(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestQueryHandler_ListSpots_ByRangeParsesBounds(t *testing.T) {
	svc := &mockQueryService{
		byFreqRangeFn: func(ctx context.Context, userCall string, low, high float64, limit int) ([]string, error) {
			if low != 7000 || high != 7100 {
				t.Errorf("range = [%v, %v], want [7000, 7100]", low, high)
			}
			return nil, nil
		},
	}

	h := NewQueryHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/K8SMC/spots?by=range&low=7000&high=7100", nil)
	req = withChiURLParam(req, "call", "K8SMC")
	w := httptest.NewRecorder()

	h.ListSpots(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestQueryHandler_ListSpots_ByRangeInvalidBounds_ReturnsBadRequest(t *testing.T) {
	h := NewQueryHandler(&mockQueryService{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/K8SMC/spots?by=range&low=abc&high=7100", nil)
	req = withChiURLParam(req, "call", "K8SMC")
	w := httptest.NewRecorder()

	h.ListSpots(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestQueryHandler_ListSpots_UnknownShape_ReturnsBadRequest(t *testing.T) {
	h := NewQueryHandler(&mockQueryService{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/K8SMC/spots?by=frobnicate", nil)
	req = withChiURLParam(req, "call", "K8SMC")
	w := httptest.NewRecorder()

	h.ListSpots(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}

	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeInvalidQuery {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeInvalidQuery)
	}
}

func TestQueryHandler_ListSpots_InvalidLimit_ReturnsBadRequest(t *testing.T) {
	h := NewQueryHandler(&mockQueryService{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/K8SMC/spots?limit=ten", nil)
	req = withChiURLParam(req, "call", "K8SMC")
	w := httptest.NewRecorder()

	h.ListSpots(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestQueryHandler_ListSpots_UserNotFound_ReturnsNotFound(t *testing.T) {
	svc := &mockQueryService{
		recentFn: func(ctx context.Context, userCall string, limit int) ([]string, error) {
			return nil, model.NewUserNotFoundError(userCall)
		},
	}

	h := NewQueryHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/NOCALL/spots", nil)
	req = withChiURLParam(req, "call", "NOCALL")
	w := httptest.NewRecorder()

	h.ListSpots(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}
