package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/hitoshi/autoblog/internal/model"
)

// PostgresConfigRepo はPostgreSQLを使用した自動投稿設定リポジトリ。
type PostgresConfigRepo struct {
	db *sql.DB
}

// NewPostgresConfigRepo はPostgresConfigRepoを生成する。
func NewPostgresConfigRepo(db *sql.DB) *PostgresConfigRepo {
	return &PostgresConfigRepo{db: db}
}

// FindByTenant は指定テナントの設定を取得する。見つからない場合はnilを返す。
func (r *PostgresConfigRepo) FindByTenant(ctx context.Context, tenantID string) (*model.AutomationConfig, error) {
	cfg := &model.AutomationConfig{}
	var niches, countries pq.StringArray

	err := r.db.QueryRowContext(ctx,
		`SELECT tenant_id, niches, language, countries, posts_per_day, paused, timezone, updated_at
		 FROM automation_configs WHERE tenant_id = $1`,
		tenantID,
	).Scan(
		&cfg.TenantID, &niches, &cfg.Language, &countries,
		&cfg.PostsPerDay, &cfg.Paused, &cfg.Timezone, &cfg.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewStoreError("自動投稿設定の取得", err)
	}

	cfg.Niches = []string(niches)
	cfg.Countries = []string(countries)

	return cfg, nil
}

// Save は設定をUPSERTする。
func (r *PostgresConfigRepo) Save(ctx context.Context, cfg *model.AutomationConfig) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO automation_configs
		     (tenant_id, niches, language, countries, posts_per_day, paused, timezone, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (tenant_id) DO UPDATE SET
		     niches = EXCLUDED.niches,
		     language = EXCLUDED.language,
		     countries = EXCLUDED.countries,
		     posts_per_day = EXCLUDED.posts_per_day,
		     paused = EXCLUDED.paused,
		     timezone = EXCLUDED.timezone,
		     updated_at = EXCLUDED.updated_at`,
		cfg.TenantID, pq.Array(cfg.Niches), cfg.Language, pq.Array(cfg.Countries),
		cfg.PostsPerDay, cfg.Paused, cfg.Timezone, cfg.UpdatedAt,
	)
	if err != nil {
		return model.NewStoreError("自動投稿設定の保存", err)
	}
	return nil
}
