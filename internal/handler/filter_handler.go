package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/dxhub/internal/model"
)

// FilterServiceInterface はフィルタハンドラーが必要とするサービスインターフェース。
type FilterServiceInterface interface {
	// Set はカテゴリのルールを設定する。未知トークンのリストを警告として返す。
	Set(ctx context.Context, call, category, disposition string, tokens []string) (model.FilterRule, []string, error)
	// Clear はカテゴリのルールを削除する。
	Clear(ctx context.Context, call, category string) error
	// Reset はユーザーの全ルールを削除する。
	Reset(ctx context.Context, call string) error
	// List はユーザーの現在のルールセットを返す。
	List(ctx context.Context, call string) (model.FilterRuleSet, error)
}

// FilterHandler はフィルタルール管理のHTTPハンドラー。
type FilterHandler struct {
	service FilterServiceInterface
}

// NewFilterHandler はFilterHandlerを生成する。
func NewFilterHandler(service FilterServiceInterface) *FilterHandler {
	return &FilterHandler{service: service}
}

// setFilterRequest はルール設定のリクエストボディ。
type setFilterRequest struct {
	Disposition string   `json:"disposition"` // "PASS" または "REJECT"
	Tokens      []string `json:"tokens"`
}

// filterRuleResponse は1カテゴリのルールのレスポンス表現。
type filterRuleResponse struct {
	Category    string   `json:"category"`
	Disposition string   `json:"disposition"`
	Tokens      []string `json:"tokens"`
}

// setFilterResponse はルール設定結果のレスポンスボディ。
// 未知トークンは拒否せず、UNKNOWN_FILTER_TOKENの警告として返す。
type setFilterResponse struct {
	Rule          filterRuleResponse `json:"rule"`
	UnknownTokens []string           `json:"unknown_tokens,omitempty"`
	Warning       *apiErrorResponse  `json:"warning,omitempty"`
}

// SetFilter はカテゴリのフィルタルールを設定する。
// PUT /api/users/{call}/filters/{category}
// 同一カテゴリへの再設定は前のルールを置き換える。
func (h *FilterHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	call := chi.URLParam(r, "call")
	category := chi.URLParam(r, "category")

	var req setFilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidQueryError("JSONボディが不正です"))
		return
	}

	rule, unknown, err := h.service.Set(r.Context(), call, category, req.Disposition, req.Tokens)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := setFilterResponse{
		Rule:          toFilterRuleResponse(rule),
		UnknownTokens: unknown,
	}
	if len(unknown) > 0 {
		resp.Warning = toAPIErrorResponse(model.NewUnknownFilterTokenError(unknown))
	}

	writeJSONResponse(w, http.StatusOK, resp)
}

// ListFilters はユーザーの現在のルールセットを返す。
// GET /api/users/{call}/filters
func (h *FilterHandler) ListFilters(w http.ResponseWriter, r *http.Request) {
	call := chi.URLParam(r, "call")

	rules, err := h.service.List(r.Context(), call)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]filterRuleResponse, 0, len(rules))
	for _, rule := range rules {
		resp = append(resp, toFilterRuleResponse(rule))
	}

	writeJSONResponse(w, http.StatusOK, map[string][]filterRuleResponse{"filters": resp})
}

// ClearFilter はカテゴリのルールを削除する。
// DELETE /api/users/{call}/filters/{category}
// ルールが存在しない場合も成功として扱う。
func (h *FilterHandler) ClearFilter(w http.ResponseWriter, r *http.Request) {
	call := chi.URLParam(r, "call")
	category := chi.URLParam(r, "category")

	if err := h.service.Clear(r.Context(), call, category); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ResetFilters はユーザーの全ルールを削除する。
// DELETE /api/users/{call}/filters
// リセット後のルールセットは空となり、すべてのスポットを許可する。
func (h *FilterHandler) ResetFilters(w http.ResponseWriter, r *http.Request) {
	call := chi.URLParam(r, "call")

	if err := h.service.Reset(r.Context(), call); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toFilterRuleResponse はドメインのFilterRuleをレスポンス型に変換する。
func toFilterRuleResponse(rule model.FilterRule) filterRuleResponse {
	tokens := rule.Tokens
	if tokens == nil {
		tokens = []string{}
	}
	return filterRuleResponse{
		Category:    strings.ToUpper(string(rule.Category)),
		Disposition: string(rule.Disposition),
		Tokens:      tokens,
	}
}
