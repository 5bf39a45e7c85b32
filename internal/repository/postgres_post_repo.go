package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/autoblog/internal/model"
)

// postColumns はpostsテーブルのSELECT対象カラム。scanPostと順序を合わせること。
const postColumns = `id, tenant_id, title, body, topics, media, language,
        generated_by, status, created_at, published_at`

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// Append は投稿を保存する。
// created_atはテナントの既存投稿の最大値とGREATESTを取り、挿入順で単調非減少に保つ。
func (r *PostgresPostRepo) Append(ctx context.Context, post *model.Post) (*model.Post, error) {
	stored := *post
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	if stored.Status == "" {
		stored.Status = model.PostStatusDraft
	}

	body, err := json.Marshal(stored.Body)
	if err != nil {
		return nil, fmt.Errorf("投稿本文のエンコードに失敗しました: %w", err)
	}
	media, err := json.Marshal(mediaOrEmpty(stored.Media))
	if err != nil {
		return nil, fmt.Errorf("メディア情報のエンコードに失敗しました: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`INSERT INTO posts
		     (id, tenant_id, title, body, topics, media, language, generated_by, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9,
		         GREATEST($10::timestamptz,
		                  COALESCE((SELECT max(created_at) FROM posts WHERE tenant_id = $2), $10::timestamptz)))
		 RETURNING created_at`,
		stored.ID, stored.TenantID, stored.Title, body, pq.Array(stored.Topics), media,
		stored.Language, string(stored.Trigger), string(stored.Status), stored.CreatedAt,
	).Scan(&stored.CreatedAt)
	if err != nil {
		return nil, model.NewStoreError("投稿の保存", err)
	}

	return &stored, nil
}

// List はテナントの投稿をcreated_at降順で返す。
// created_atが同値の場合は挿入順（seq）の降順とする。
func (r *PostgresPostRepo) List(ctx context.Context, tenantID string, limit, offset int) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+`
		 FROM posts
		 WHERE tenant_id = $1
		 ORDER BY created_at DESC, seq DESC
		 LIMIT $2 OFFSET $3`,
		tenantID, limit, offset,
	)
	if err != nil {
		return nil, model.NewStoreError("投稿一覧の取得", err)
	}
	defer rows.Close()

	posts := make([]*model.Post, 0, limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStoreError("投稿一覧の読み取り", err)
	}

	return posts, nil
}

// CountCreatedSince は指定時刻以降に指定契機で作成された投稿数を返す。
func (r *PostgresPostRepo) CountCreatedSince(ctx context.Context, tenantID string, trigger model.Trigger, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM posts
		 WHERE tenant_id = $1 AND generated_by = $2 AND created_at >= $3`,
		tenantID, string(trigger), since,
	).Scan(&count)
	if err != nil {
		return 0, model.NewStoreError("投稿数の集計", err)
	}
	return count, nil
}

// LatestCreatedAt は指定契機で作成された最新投稿のcreated_atを返す。
func (r *PostgresPostRepo) LatestCreatedAt(ctx context.Context, tenantID string, trigger model.Trigger) (*time.Time, error) {
	var latest sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT max(created_at) FROM posts WHERE tenant_id = $1 AND generated_by = $2`,
		tenantID, string(trigger),
	).Scan(&latest)
	if err != nil {
		return nil, model.NewStoreError("最新投稿時刻の取得", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

// RecentTopics は直近n件の投稿の先頭トピックを新しい順に返す。
func (r *PostgresPostRepo) RecentTopics(ctx context.Context, tenantID string, n int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT topics[1] FROM posts
		 WHERE tenant_id = $1 AND cardinality(topics) > 0
		 ORDER BY created_at DESC, seq DESC
		 LIMIT $2`,
		tenantID, n,
	)
	if err != nil {
		return nil, model.NewStoreError("直近トピックの取得", err)
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var topic string
		if err := rows.Scan(&topic); err != nil {
			return nil, model.NewStoreError("直近トピックの読み取り", err)
		}
		topics = append(topics, topic)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStoreError("直近トピックの読み取り", err)
	}
	return topics, nil
}

// UpdateStatus は投稿の公開状態を更新する。
func (r *PostgresPostRepo) UpdateStatus(ctx context.Context, id string, status model.PostStatus, publishedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE posts SET status = $2, published_at = $3 WHERE id = $1`,
		id, string(status), publishedAt,
	)
	if err != nil {
		return model.NewStoreError("投稿ステータスの更新", err)
	}
	return nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPost はpostColumnsの順で1行を読み取る。
func scanPost(row rowScanner) (*model.Post, error) {
	post := &model.Post{}
	var body, media []byte
	var topics pq.StringArray
	var trigger, status string
	var publishedAt sql.NullTime

	if err := row.Scan(
		&post.ID, &post.TenantID, &post.Title, &body, &topics, &media, &post.Language,
		&trigger, &status, &post.CreatedAt, &publishedAt,
	); err != nil {
		return nil, model.NewStoreError("投稿の読み取り", err)
	}

	if err := json.Unmarshal(body, &post.Body); err != nil {
		return nil, model.NewStoreError("投稿本文のデコード", err)
	}
	if err := json.Unmarshal(media, &post.Media); err != nil {
		return nil, model.NewStoreError("メディア情報のデコード", err)
	}
	post.Topics = []string(topics)
	post.Trigger = model.Trigger(trigger)
	post.Status = model.PostStatus(status)
	if publishedAt.Valid {
		post.PublishedAt = &publishedAt.Time
	}

	return post, nil
}

// mediaOrEmpty はnilスライスを空スライスに置き換える（JSONで null ではなく [] を保存するため）。
func mediaOrEmpty(media []model.MediaItem) []model.MediaItem {
	if media == nil {
		return []model.MediaItem{}
	}
	return media
}
