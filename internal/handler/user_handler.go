package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/dxhub/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Get は指定コールサインのプロファイルを返す。
	Get(ctx context.Context, call string) (*model.User, error)
	// GetOrCreate はプロファイルを返す。存在しない場合はデフォルト設定で作成する。
	GetOrCreate(ctx context.Context, call string) (*model.User, error)
	// UpdateSettings は配信設定を部分更新する。nilのフィールドは変更しない。
	UpdateSettings(ctx context.Context, call string, spotsEnabled, annEnabled *bool, lineWidth *int) (*model.User, error)
}

// UserHandler はユーザープロファイルのHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// userResponse はプロファイルのレスポンスボディ。
type userResponse struct {
	Call         string    `json:"call"`
	SpotsEnabled bool      `json:"spots_enabled"`
	AnnEnabled   bool      `json:"ann_enabled"`
	LineWidth    int       `json:"line_width"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GetUser は指定コールサインのプロファイルを返す。
// GET /api/users/{call}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	call := chi.URLParam(r, "call")

	user, err := h.service.Get(r.Context(), call)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toUserResponse(user))
}

// updateSettingsRequest は設定更新のリクエストボディ。
// 省略されたフィールドは変更されない。
type updateSettingsRequest struct {
	SpotsEnabled *bool `json:"spots_enabled,omitempty"`
	AnnEnabled   *bool `json:"ann_enabled,omitempty"`
	LineWidth    *int  `json:"line_width,omitempty"`
}

// UpdateSettings はプロファイルの配信設定を部分更新する。
// PUT /api/users/{call}/settings
func (h *UserHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	call := chi.URLParam(r, "call")

	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidQueryError("JSONボディが不正です"))
		return
	}

	user, err := h.service.UpdateSettings(r.Context(), call, req.SpotsEnabled, req.AnnEnabled, req.LineWidth)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toUserResponse(user))
}

// toUserResponse はドメインのUserをレスポンス型に変換する。
func toUserResponse(u *model.User) userResponse {
	return userResponse{
		Call:         u.Call,
		SpotsEnabled: u.SpotsEnabled,
		AnnEnabled:   u.AnnEnabled,
		LineWidth:    u.LineWidth,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
