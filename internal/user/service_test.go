package user

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hitoshi/dxhub/internal/model"
)

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) FindByCall(ctx context.Context, call string) (*model.User, error) {
	user, ok := m.users[call]
	if !ok {
		return nil, nil
	}
	u := *user
	return &u, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	u := *user
	m.users[user.Call] = &u
	return nil
}

func (m *mockUserRepo) UpdateSettings(ctx context.Context, user *model.User) error {
	u := *user
	m.users[user.Call] = &u
	return nil
}

func newTestUserService(t *testing.T) (*Service, *mockUserRepo) {
	t.Helper()
	repo := newMockUserRepo()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	return NewService(repo, clock, model.DefaultLineWidth, slog.Default()), repo
}

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }

// TestService_GetOrCreate_CreatesProfileOnFirstConnect は初回接続でプロファイルが
// デフォルト設定（大文字正規化、配信有効）で作成されることを検証する。
func TestService_GetOrCreate_CreatesProfileOnFirstConnect(t *testing.T) {
	svc, repo := newTestUserService(t)

	user, err := svc.GetOrCreate(context.Background(), "k8smc")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	if user.Call != "K8SMC" {
		t.Errorf("Call = %q, want K8SMC", user.Call)
	}
	if !user.SpotsEnabled || !user.AnnEnabled {
		t.Error("delivery not enabled by default")
	}
	if user.LineWidth != model.DefaultLineWidth {
		t.Errorf("LineWidth = %d, want %d", user.LineWidth, model.DefaultLineWidth)
	}
	if _, ok := repo.users["K8SMC"]; !ok {
		t.Error("profile not persisted")
	}
}

// TestService_GetOrCreate_UsesConfiguredLineWidth は新規プロファイルの行幅が
// ノード設定のLINE_WIDTHから初期化されることを検証する。
func TestService_GetOrCreate_UsesConfiguredLineWidth(t *testing.T) {
	repo := newMockUserRepo()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	svc := NewService(repo, clock, 120, slog.Default())

	user, err := svc.GetOrCreate(context.Background(), "K8SMC")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if user.LineWidth != 120 {
		t.Errorf("LineWidth = %d, want 120", user.LineWidth)
	}
}

// TestService_NewService_InvalidDefaultWidthFallsBack は範囲外のデフォルト行幅が
// 80にフォールバックすることを検証する。
func TestService_NewService_InvalidDefaultWidthFallsBack(t *testing.T) {
	repo := newMockUserRepo()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))

	for _, width := range []int{0, 44, 131, -1} {
		svc := NewService(repo, clock, width, slog.Default())
		if svc.defaultLineWidth != model.DefaultLineWidth {
			t.Errorf("width=%d: defaultLineWidth = %d, want %d", width, svc.defaultLineWidth, model.DefaultLineWidth)
		}
	}
}

// TestService_GetOrCreate_ReusesExistingProfile は再接続で既存の設定が保持されることを検証する。
func TestService_GetOrCreate_ReusesExistingProfile(t *testing.T) {
	svc, repo := newTestUserService(t)
	repo.users["K8SMC"] = &model.User{Call: "K8SMC", SpotsEnabled: false, AnnEnabled: true, LineWidth: 100}

	user, err := svc.GetOrCreate(context.Background(), "K8SMC")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	if user.SpotsEnabled {
		t.Error("existing SpotsEnabled setting lost")
	}
	if user.LineWidth != 100 {
		t.Errorf("LineWidth = %d, want 100", user.LineWidth)
	}
}

// TestService_UpdateSettings_PartialUpdate はnilフィールドが変更されないことを検証する。
func TestService_UpdateSettings_PartialUpdate(t *testing.T) {
	svc, repo := newTestUserService(t)
	repo.users["K8SMC"] = &model.User{Call: "K8SMC", SpotsEnabled: true, AnnEnabled: true, LineWidth: 80}

	user, err := svc.UpdateSettings(context.Background(), "K8SMC", boolPtr(false), nil, intPtr(120))
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}

	if user.SpotsEnabled {
		t.Error("SpotsEnabled = true, want false")
	}
	if !user.AnnEnabled {
		t.Error("AnnEnabled = false, want true (unspecified field must be kept)")
	}
	if user.LineWidth != 120 {
		t.Errorf("LineWidth = %d, want 120", user.LineWidth)
	}
}

// TestService_UpdateSettings_InvalidLineWidth は範囲外の行幅が拒否され保存されないことを検証する。
func TestService_UpdateSettings_InvalidLineWidth(t *testing.T) {
	svc, repo := newTestUserService(t)
	repo.users["K8SMC"] = &model.User{Call: "K8SMC", SpotsEnabled: true, AnnEnabled: true, LineWidth: 80}

	for _, width := range []int{44, 131, 0, -1} {
		_, err := svc.UpdateSettings(context.Background(), "K8SMC", nil, nil, intPtr(width))
		if err == nil {
			t.Errorf("width=%d: error = nil, want INVALID_LINE_WIDTH", width)
			continue
		}
		apiErr, ok := err.(*model.APIError)
		if !ok || apiErr.Code != model.ErrCodeInvalidLineWidth {
			t.Errorf("width=%d: error = %v, want INVALID_LINE_WIDTH", width, err)
		}
	}

	// 失敗した更新は保存されない。
	if repo.users["K8SMC"].LineWidth != 80 {
		t.Errorf("stored LineWidth = %d, want 80", repo.users["K8SMC"].LineWidth)
	}
}

// TestService_UpdateSettings_UnknownUser は未知ユーザーの更新がUSER_NOT_FOUNDになることを検証する。
func TestService_UpdateSettings_UnknownUser(t *testing.T) {
	svc, _ := newTestUserService(t)

	_, err := svc.UpdateSettings(context.Background(), "XX9XX", boolPtr(true), nil, nil)
	if err == nil {
		t.Fatal("UpdateSettings() error = nil, want USER_NOT_FOUND")
	}
	apiErr, ok := err.(*model.APIError)
	if !ok || apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("error = %v, want USER_NOT_FOUND", err)
	}
}

// TestService_UpdateSettings_NotifiesListener は設定変更がリスナーへ通知されることを検証する。
func TestService_UpdateSettings_NotifiesListener(t *testing.T) {
	svc, repo := newTestUserService(t)
	repo.users["K8SMC"] = &model.User{Call: "K8SMC", SpotsEnabled: true, AnnEnabled: true, LineWidth: 80}

	var gotCall string
	var gotSpots, gotAnn bool
	svc.SetSettingsChangeListener(func(call string, spotsEnabled, annEnabled bool) {
		gotCall = call
		gotSpots = spotsEnabled
		gotAnn = annEnabled
	})

	if _, err := svc.UpdateSettings(context.Background(), "K8SMC", boolPtr(false), boolPtr(true), nil); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}

	if gotCall != "K8SMC" || gotSpots || !gotAnn {
		t.Errorf("notified = (%q, %v, %v), want (K8SMC, false, true)", gotCall, gotSpots, gotAnn)
	}
}
