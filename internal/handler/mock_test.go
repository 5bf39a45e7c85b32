package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/autoblog/internal/middleware"
	"github.com/hitoshi/autoblog/internal/model"
)

// --- モック ---

type mockConfigService struct {
	getFn            func(ctx context.Context) (*model.AutomationConfig, error)
	updateFn         func(ctx context.Context, patch model.ConfigPatch) (*model.AutomationConfig, error)
	updateScheduleFn func(ctx context.Context, patch model.SchedulePatch) (*model.AutomationConfig, error)
}

func (m *mockConfigService) Get(ctx context.Context) (*model.AutomationConfig, error) {
	return m.getFn(ctx)
}

func (m *mockConfigService) Update(ctx context.Context, patch model.ConfigPatch) (*model.AutomationConfig, error) {
	return m.updateFn(ctx, patch)
}

func (m *mockConfigService) UpdateSchedule(ctx context.Context, patch model.SchedulePatch) (*model.AutomationConfig, error) {
	return m.updateScheduleFn(ctx, patch)
}

type mockPostService struct {
	listFn func(ctx context.Context, limit, offset int) ([]*model.Post, error)
}

func (m *mockPostService) List(ctx context.Context, limit, offset int) ([]*model.Post, error) {
	return m.listFn(ctx, limit, offset)
}

type mockGenerator struct {
	generateNowFn func(ctx context.Context, cfg *model.AutomationConfig, topics []string) (*model.Post, error)
}

func (m *mockGenerator) GenerateNow(ctx context.Context, cfg *model.AutomationConfig, topics []string) (*model.Post, error) {
	return m.generateNowFn(ctx, cfg, topics)
}

type mockStateReader struct {
	state model.SchedulerState
}

func (m *mockStateReader) State() model.SchedulerState {
	return m.state
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

// --- ヘルパー ---

func testConfig() *model.AutomationConfig {
	cfg := model.DefaultAutomationConfig("default")
	cfg.Niches = []string{"ai", "ev"}
	return cfg
}

// decodeError はエラーレスポンスのボディを読み取る。
func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("エラーレスポンスのデコードに失敗した: %v\nraw: %s", err, w.Body.String())
	}
	return body
}
