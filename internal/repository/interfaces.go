// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/autoblog/internal/model"
)

// ConfigRepository は自動投稿設定の永続化インターフェース。
// 1テナントにつき1件の設定を保持する。
type ConfigRepository interface {
	// FindByTenant は指定テナントの設定を取得する。見つからない場合はnilを返す。
	FindByTenant(ctx context.Context, tenantID string) (*model.AutomationConfig, error)

	// Save は設定を上書き保存する（UPSERT）。同時書き込みは後勝ち。
	Save(ctx context.Context, cfg *model.AutomationConfig) error
}

// PostRepository は生成済み投稿の永続化インターフェース。
// 追記のみで、削除操作は提供しない。
type PostRepository interface {
	// Append は投稿を保存し、保存後の投稿を返す。
	// IDとcreated_atが未設定の場合は採番する。
	// created_atはテナントの既存投稿の最新値より前にならないよう補正される。
	Append(ctx context.Context, post *model.Post) (*model.Post, error)

	// List はテナントの投稿をcreated_at降順で返す。投稿がない場合は空スライスを返す。
	List(ctx context.Context, tenantID string, limit, offset int) ([]*model.Post, error)

	// CountCreatedSince は指定時刻以降に指定契機で作成された投稿数を返す。
	CountCreatedSince(ctx context.Context, tenantID string, trigger model.Trigger, since time.Time) (int, error)

	// LatestCreatedAt は指定契機で作成された最新投稿のcreated_atを返す。投稿がない場合はnilを返す。
	LatestCreatedAt(ctx context.Context, tenantID string, trigger model.Trigger) (*time.Time, error)

	// RecentTopics は直近n件の投稿で使われた先頭トピックを新しい順に返す。
	RecentTopics(ctx context.Context, tenantID string, n int) ([]string, error)

	// UpdateStatus は投稿の公開状態を更新する。Publisherの公開確認時のみ使用する。
	UpdateStatus(ctx context.Context, id string, status model.PostStatus, publishedAt time.Time) error
}
