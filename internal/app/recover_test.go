package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/autoblog/internal/model"
	"github.com/hitoshi/autoblog/internal/repository"
	"github.com/hitoshi/autoblog/internal/worker/cadence"
)

type failingConfigRepo struct{}

func (failingConfigRepo) FindByTenant(ctx context.Context, tenantID string) (*model.AutomationConfig, error) {
	return nil, model.NewStoreError("設定の取得", errors.New("connection refused"))
}

func (failingConfigRepo) Save(ctx context.Context, cfg *model.AutomationConfig) error {
	return nil
}

func TestRecoverScheduler_RebuildsStateBeforeFirstTick(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	configs := repository.NewMemoryConfigRepo()
	if err := configs.Save(ctx, model.DefaultAutomationConfig("default")); err != nil {
		t.Fatalf("設定の保存に失敗: %v", err)
	}
	posts := repository.NewMemoryPostRepo()
	for _, at := range []time.Time{now.Add(-24 * time.Hour), now.Add(-9 * time.Hour), now.Add(-time.Hour)} {
		p := &model.Post{TenantID: "default", Title: "seed", Trigger: model.TriggerCadence, CreatedAt: at}
		if _, err := posts.Append(ctx, p); err != nil {
			t.Fatalf("Append がエラーを返した: %v", err)
		}
	}

	var logs bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&logs, nil))
	s := cadence.NewScheduler(configs, posts, nil, nil, nil, log, "default", time.Hour)

	recoverScheduler(ctx, s, log, now)

	state := s.State()
	if state.PostsGeneratedToday != 2 {
		t.Errorf("PostsGeneratedToday = %d, want 2", state.PostsGeneratedToday)
	}
	if want := now.Add(-time.Hour); state.LastGenerationAt == nil || !state.LastGenerationAt.Equal(want) {
		t.Errorf("LastGenerationAt = %v, want %v", state.LastGenerationAt, want)
	}
	if strings.Contains(logs.String(), "recovery failed") {
		t.Errorf("成功時に警告が出力された: %s", logs.String())
	}
}

func TestRecoverScheduler_FailureIsLoggedNotFatal(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&logs, nil))
	s := cadence.NewScheduler(failingConfigRepo{}, repository.NewMemoryPostRepo(), nil, nil, nil, log, "default", time.Hour)

	recoverScheduler(context.Background(), s, log, time.Now())

	out := logs.String()
	if !strings.Contains(out, "scheduler state recovery failed") || !strings.Contains(out, `"level":"WARN"`) {
		t.Errorf("警告ログが出力されていない: %s", out)
	}
	if !strings.Contains(out, "connection refused") {
		t.Errorf("エラー内容がログに含まれていない: %s", out)
	}
	if got := s.State().PostsGeneratedToday; got != 0 {
		t.Errorf("PostsGeneratedToday = %d, want 0", got)
	}
}
