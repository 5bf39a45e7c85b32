package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/autoblog/internal/model"
)

// MemoryConfigRepo はプロセス内メモリに設定を保持するリポジトリ。
// STORAGE_DRIVER=memory の場合とテストで使用する。
type MemoryConfigRepo struct {
	mu      sync.RWMutex
	configs map[string]*model.AutomationConfig
}

// NewMemoryConfigRepo はMemoryConfigRepoを生成する。
func NewMemoryConfigRepo() *MemoryConfigRepo {
	return &MemoryConfigRepo{configs: make(map[string]*model.AutomationConfig)}
}

// FindByTenant は指定テナントの設定のコピーを返す。見つからない場合はnilを返す。
func (r *MemoryConfigRepo) FindByTenant(ctx context.Context, tenantID string) (*model.AutomationConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[tenantID]
	if !ok {
		return nil, nil
	}
	return cfg.Clone(), nil
}

// Save は設定のコピーを保存する。
func (r *MemoryConfigRepo) Save(ctx context.Context, cfg *model.AutomationConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs[cfg.TenantID] = cfg.Clone()
	return nil
}

// MemoryPostRepo はプロセス内メモリに投稿を保持するリポジトリ。
// 投稿は挿入順に保持され、created_atは挿入順で単調非減少に補正される。
type MemoryPostRepo struct {
	mu    sync.RWMutex
	posts []*model.Post
}

// NewMemoryPostRepo はMemoryPostRepoを生成する。
func NewMemoryPostRepo() *MemoryPostRepo {
	return &MemoryPostRepo{}
}

// Append は投稿を保存し、保存後のコピーを返す。
func (r *MemoryPostRepo) Append(ctx context.Context, post *model.Post) (*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := clonePost(post)
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	if stored.Status == "" {
		stored.Status = model.PostStatusDraft
	}
	for i := len(r.posts) - 1; i >= 0; i-- {
		if r.posts[i].TenantID == stored.TenantID {
			if stored.CreatedAt.Before(r.posts[i].CreatedAt) {
				stored.CreatedAt = r.posts[i].CreatedAt
			}
			break
		}
	}

	r.posts = append(r.posts, stored)
	return clonePost(stored), nil
}

// List はテナントの投稿をcreated_at降順（同値は挿入の新しい順）で返す。
func (r *MemoryPostRepo) List(ctx context.Context, tenantID string, limit, offset int) ([]*model.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.newestFirst(tenantID)
	result := make([]*model.Post, 0)
	for i := offset; i < len(matched) && len(result) < limit; i++ {
		result = append(result, clonePost(matched[i]))
	}
	return result, nil
}

// CountCreatedSince は指定時刻以降に指定契機で作成された投稿数を返す。
func (r *MemoryPostRepo) CountCreatedSince(ctx context.Context, tenantID string, trigger model.Trigger, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, p := range r.posts {
		if p.TenantID == tenantID && p.Trigger == trigger && !p.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// LatestCreatedAt は指定契機で作成された最新投稿のcreated_atを返す。
func (r *MemoryPostRepo) LatestCreatedAt(ctx context.Context, tenantID string, trigger model.Trigger) (*time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *time.Time
	for _, p := range r.posts {
		if p.TenantID != tenantID || p.Trigger != trigger {
			continue
		}
		if latest == nil || p.CreatedAt.After(*latest) {
			t := p.CreatedAt
			latest = &t
		}
	}
	return latest, nil
}

// RecentTopics は直近n件の投稿の先頭トピックを新しい順に返す。
func (r *MemoryPostRepo) RecentTopics(ctx context.Context, tenantID string, n int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var topics []string
	for _, p := range r.newestFirst(tenantID) {
		if len(topics) >= n {
			break
		}
		if len(p.Topics) > 0 {
			topics = append(topics, p.Topics[0])
		}
	}
	return topics, nil
}

// UpdateStatus は投稿の公開状態を更新する。
func (r *MemoryPostRepo) UpdateStatus(ctx context.Context, id string, status model.PostStatus, publishedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.posts {
		if p.ID == id {
			p.Status = status
			t := publishedAt
			p.PublishedAt = &t
			return nil
		}
	}
	return nil
}

// newestFirst はテナントの投稿を新しい順に並べたスライスを返す。呼び出し側でロックを保持すること。
func (r *MemoryPostRepo) newestFirst(tenantID string) []*model.Post {
	var matched []*model.Post
	for i := len(r.posts) - 1; i >= 0; i-- {
		if r.posts[i].TenantID == tenantID {
			matched = append(matched, r.posts[i])
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched
}

func clonePost(p *model.Post) *model.Post {
	cp := *p
	cp.Topics = append([]string(nil), p.Topics...)
	cp.Media = append([]model.MediaItem(nil), p.Media...)
	cp.Body.Headings = append([]string(nil), p.Body.Headings...)
	cp.Body.FAQ = append([]model.FAQEntry(nil), p.Body.FAQ...)
	cp.Body.Keywords = append([]string(nil), p.Body.Keywords...)
	cp.Body.Schema = append([]byte(nil), p.Body.Schema...)
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		cp.PublishedAt = &t
	}
	return &cp
}
