package cadence

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/autoblog/internal/content"
	"github.com/hitoshi/autoblog/internal/metrics"
	"github.com/hitoshi/autoblog/internal/model"
	"github.com/hitoshi/autoblog/internal/repository"
)

// ContentPipeline は投稿1件分のコンテンツを生成するインターフェース。
type ContentPipeline interface {
	Generate(ctx context.Context, cfg *model.AutomationConfig) (*model.Post, error)
	GenerateFromTopics(ctx context.Context, cfg *model.AutomationConfig, topics []string) (*model.Post, error)
}

// TickResult はティック1回の結果。
type TickResult struct {
	Outcome string      // metrics.TickOutcome*
	Post    *model.Post // 生成した投稿。生成しなかった場合はnil
}

// Scheduler はティックごとに設定と当日の生成状況を確認し、投稿ペースに従って記事を生成する。
// 状態はプロセス内に保持し、起動後最初のティックでPost Storeから再構築する。
type Scheduler struct {
	configs   repository.ConfigRepository
	posts     repository.PostRepository
	pipeline  ContentPipeline
	publisher content.Publisher
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	tenantID  string
	tolerance time.Duration
	now       func() time.Time

	// tickMu はOnTickの多重実行を防ぐ。
	tickMu sync.Mutex
	// stateMu はstateの読み書きと投稿の保存を直列化する。
	stateMu   sync.Mutex
	state     model.SchedulerState
	recovered bool
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// toleranceはティックのずれの許容幅で、投稿間隔の半分を上限として適用される。
func NewScheduler(
	configs repository.ConfigRepository,
	posts repository.PostRepository,
	pipeline ContentPipeline,
	publisher content.Publisher,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	tenantID string,
	tolerance time.Duration,
) *Scheduler {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Scheduler{
		configs:   configs,
		posts:     posts,
		pipeline:  pipeline,
		publisher: publisher,
		metrics:   collector,
		logger:    logger,
		tenantID:  tenantID,
		tolerance: tolerance,
		now:       time.Now,
	}
}

// State は現在のスケジューラ状態のコピーを返す。
func (s *Scheduler) State() model.SchedulerState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state.Snapshot()
}

// Recover はPost Storeから当日の生成数と最後の生成時刻を再構築する。
// 手動生成の投稿はティック契機の生成数と生成時刻に含めない。
func (s *Scheduler) Recover(ctx context.Context, now time.Time) error {
	cfg, err := s.configs.FindByTenant(ctx, s.tenantID)
	if err != nil {
		return err
	}
	loc := time.UTC
	if cfg != nil {
		loc = cfg.Location()
	}

	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.recoverLocked(ctx, now, loc)
}

func (s *Scheduler) recoverLocked(ctx context.Context, now time.Time, loc *time.Location) error {
	today := DayStart(now, loc)

	cadenceCount, err := s.posts.CountCreatedSince(ctx, s.tenantID, model.TriggerCadence, today)
	if err != nil {
		return err
	}
	manualCount, err := s.posts.CountCreatedSince(ctx, s.tenantID, model.TriggerManual, today)
	if err != nil {
		return err
	}
	last, err := s.posts.LatestCreatedAt(ctx, s.tenantID, model.TriggerCadence)
	if err != nil {
		return err
	}

	s.state.DayStart = today
	s.state.PostsGeneratedToday = cadenceCount
	s.state.ManualGeneratedToday = manualCount
	s.state.LastGenerationAt = last
	s.recovered = true
	s.metrics.SetPostsGeneratedToday(cadenceCount)

	s.logger.Info("スケジューラの状態を再構築しました",
		slog.String("tenant_id", s.tenantID),
		slog.Int("posts_generated_today", cadenceCount),
		slog.Int("manual_generated_today", manualCount),
	)
	return nil
}

// OnTick はティック1回分の判定と生成を行う。
// 前のティックが実行中の場合は何もせずTickOutcomeBusyを返す。
// 生成に失敗した場合は状態を進めずにエラーを返し、次のティックで再試行される。
func (s *Scheduler) OnTick(ctx context.Context, now time.Time) (TickResult, error) {
	if !s.tickMu.TryLock() {
		s.logger.Warn("前のティックが実行中のためスキップしました",
			slog.String("tenant_id", s.tenantID),
		)
		s.metrics.RecordTick(metrics.TickOutcomeBusy)
		return TickResult{Outcome: metrics.TickOutcomeBusy}, nil
	}
	defer s.tickMu.Unlock()

	result, err := s.tick(ctx, now)

	s.stateMu.Lock()
	s.state.LastTickAt = now
	s.stateMu.Unlock()

	s.metrics.RecordTick(result.Outcome)
	return result, err
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) (TickResult, error) {
	failed := TickResult{Outcome: metrics.TickOutcomeFailed}

	cfg, err := s.configs.FindByTenant(ctx, s.tenantID)
	if err != nil {
		return failed, err
	}
	if cfg == nil || !cfg.GenerationEnabled() {
		return TickResult{Outcome: metrics.TickOutcomeDisabled}, nil
	}
	loc := cfg.Location()

	s.stateMu.Lock()
	if !s.recovered {
		if err := s.recoverLocked(ctx, now, loc); err != nil {
			s.stateMu.Unlock()
			return failed, err
		}
	}
	if rollDay(&s.state, now, loc) {
		s.metrics.SetPostsGeneratedToday(0)
	}
	eligible := Eligible(s.state, cfg.PostsPerDay, now, s.tolerance)
	s.stateMu.Unlock()

	if !eligible {
		return TickResult{Outcome: metrics.TickOutcomeWaiting}, nil
	}

	draft, err := s.runPipeline(ctx, func() (*model.Post, error) {
		return s.pipeline.Generate(ctx, cfg)
	})
	if err != nil {
		return failed, err
	}
	draft.Trigger = model.TriggerCadence
	draft.CreatedAt = now

	s.stateMu.Lock()
	stored, err := s.posts.Append(ctx, draft)
	if err != nil {
		s.stateMu.Unlock()
		return failed, err
	}
	rollDay(&s.state, now, loc)
	generatedAt := now
	s.state.LastGenerationAt = &generatedAt
	s.state.PostsGeneratedToday++
	count := s.state.PostsGeneratedToday
	s.stateMu.Unlock()

	s.metrics.RecordGeneration(string(model.TriggerCadence))
	s.metrics.SetPostsGeneratedToday(count)
	s.logger.Info("投稿を生成しました",
		slog.String("tenant_id", s.tenantID),
		slog.String("post_id", stored.ID),
		slog.String("title", stored.Title),
		slog.Int("posts_generated_today", count),
		slog.Int("posts_per_day", cfg.PostsPerDay),
	)

	s.publish(ctx, stored)
	return TickResult{Outcome: metrics.TickOutcomeGenerated, Post: stored}, nil
}

// GenerateNow は投稿ペースの判定を行わずに投稿を1件生成する。
// 手動生成はティック契機の生成数と最後の生成時刻を変更しない。
// topicsが指定された場合はトレンド取得を行わずにそのトピックから生成する。
func (s *Scheduler) GenerateNow(ctx context.Context, cfg *model.AutomationConfig, topics []string) (*model.Post, error) {
	draft, err := s.runPipeline(ctx, func() (*model.Post, error) {
		if len(topics) > 0 {
			return s.pipeline.GenerateFromTopics(ctx, cfg, topics)
		}
		return s.pipeline.Generate(ctx, cfg)
	})
	if err != nil {
		return nil, err
	}
	now := s.now()
	draft.Trigger = model.TriggerManual
	draft.CreatedAt = now

	s.stateMu.Lock()
	stored, err := s.posts.Append(ctx, draft)
	if err != nil {
		s.stateMu.Unlock()
		return nil, err
	}
	if rollDay(&s.state, now, cfg.Location()) {
		s.metrics.SetPostsGeneratedToday(0)
	}
	s.state.ManualGeneratedToday++
	s.stateMu.Unlock()

	s.metrics.RecordGeneration(string(model.TriggerManual))
	s.logger.Info("手動で投稿を生成しました",
		slog.String("tenant_id", s.tenantID),
		slog.String("post_id", stored.ID),
		slog.String("title", stored.Title),
	)

	s.publish(ctx, stored)
	return stored, nil
}

// runPipeline はパイプラインを実行し、所要時間と失敗段階を記録する。
func (s *Scheduler) runPipeline(ctx context.Context, generate func() (*model.Post, error)) (*model.Post, error) {
	start := time.Now()
	post, err := generate()
	s.metrics.RecordPipelineLatency(time.Since(start))
	if err != nil {
		var pErr *model.PipelineError
		if errors.As(err, &pErr) {
			s.metrics.RecordPipelineFailure(pErr.Stage)
		} else {
			s.metrics.RecordPipelineFailure("unknown")
		}
		return nil, err
	}
	if post == nil {
		s.metrics.RecordPipelineFailure(model.PipelineStageArticle)
		return nil, model.NewPipelineError(model.PipelineStageArticle, errors.New("pipeline returned no post"))
	}
	post.TenantID = s.tenantID
	return post, nil
}

// publish は投稿を公開先へ送信し、公開が確定した場合はステータスを更新する。
// 公開の失敗は投稿の生成結果に影響しない。
func (s *Scheduler) publish(ctx context.Context, post *model.Post) {
	if s.publisher == nil {
		return
	}
	published, err := s.publisher.Publish(ctx, post)
	if err != nil {
		s.logger.Warn("投稿の公開に失敗しました",
			slog.String("post_id", post.ID),
			slog.String("publisher", s.publisher.Name()),
			slog.String("error", err.Error()),
		)
		return
	}
	if !published {
		return
	}

	publishedAt := s.now()
	if err := s.posts.UpdateStatus(ctx, post.ID, model.PostStatusPublished, publishedAt); err != nil {
		s.logger.Warn("投稿ステータスの更新に失敗しました",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	post.Status = model.PostStatusPublished
	post.PublishedAt = &publishedAt
}
