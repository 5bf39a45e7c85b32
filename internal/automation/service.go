// Package automation はテナントごとの自動投稿設定のドメインロジックを提供する。
package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/hitoshi/autoblog/internal/model"
	"github.com/hitoshi/autoblog/internal/repository"
)

// Service は自動投稿設定のサービス層。
// 設定の取得（未保存なら初期値を保存）、部分更新、投稿ペースの変更を提供する。
type Service struct {
	repo     repository.ConfigRepository
	tenantID string
	defaults *model.AutomationConfig
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// defaultsがnilの場合は組み込みの初期値を使用する。
func NewService(repo repository.ConfigRepository, tenantID string, defaults *model.AutomationConfig) *Service {
	if defaults == nil {
		defaults = model.DefaultAutomationConfig(tenantID)
	}
	seed := defaults.Clone()
	seed.TenantID = tenantID
	return &Service{
		repo:     repo,
		tenantID: tenantID,
		defaults: seed,
		now:      time.Now,
	}
}

// TenantID はサービスが扱うテナントIDを返す。
func (s *Service) TenantID() string {
	return s.tenantID
}

// Get は現在の設定を返す。
// 設定が未保存の場合は初期値を保存してから返す。
func (s *Service) Get(ctx context.Context) (*model.AutomationConfig, error) {
	cfg, err := s.repo.FindByTenant(ctx, s.tenantID)
	if err != nil {
		return nil, fmt.Errorf("自動投稿設定の取得に失敗しました: %w", err)
	}
	if cfg != nil {
		return cfg, nil
	}

	cfg = s.defaults.Clone()
	cfg.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, cfg); err != nil {
		return nil, fmt.Errorf("自動投稿設定の初期化に失敗しました: %w", err)
	}
	return cfg, nil
}

// Update は指定されたフィールドのみを検証・マージして保存する。
// 検証に失敗した場合は*model.ValidationErrorを返し、保存済みの設定は変更しない。
func (s *Service) Update(ctx context.Context, patch model.ConfigPatch) (*model.AutomationConfig, error) {
	normalized, err := normalizePatch(patch)
	if err != nil {
		return nil, err
	}

	cfg, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	applyPatch(cfg, normalized)
	cfg.UpdatedAt = s.now()

	if err := s.repo.Save(ctx, cfg); err != nil {
		return nil, fmt.Errorf("自動投稿設定の保存に失敗しました: %w", err)
	}
	return cfg, nil
}

// UpdateSchedule は投稿ペース（posts_per_day と paused）のみを更新する。
func (s *Service) UpdateSchedule(ctx context.Context, patch model.SchedulePatch) (*model.AutomationConfig, error) {
	return s.Update(ctx, patch.ToConfigPatch())
}

// Validate は設定全体を検証する。起動時に初期値ファイルの内容を確認するために使用する。
func Validate(cfg *model.AutomationConfig) error {
	_, err := normalizePatch(model.ConfigPatch{
		Niches:      &cfg.Niches,
		Language:    &cfg.Language,
		Countries:   &cfg.Countries,
		PostsPerDay: &cfg.PostsPerDay,
		Timezone:    &cfg.Timezone,
	})
	return err
}

// normalizePatch はパッチの各フィールドを検証し、正規化した値を持つパッチを返す。
func normalizePatch(patch model.ConfigPatch) (model.ConfigPatch, error) {
	out := model.ConfigPatch{Paused: patch.Paused}

	if patch.PostsPerDay != nil {
		n := *patch.PostsPerDay
		if n < 0 || n > model.MaxPostsPerDay {
			return out, model.NewValidationError("posts_per_day",
				fmt.Sprintf("0以上%d以下で指定してください", model.MaxPostsPerDay))
		}
		out.PostsPerDay = &n
	}

	if patch.Niches != nil {
		niches, err := normalizeNiches(*patch.Niches)
		if err != nil {
			return out, err
		}
		out.Niches = &niches
	}

	if patch.Language != nil {
		lang, err := normalizeLanguage(*patch.Language)
		if err != nil {
			return out, err
		}
		out.Language = &lang
	}

	if patch.Countries != nil {
		countries, err := normalizeCountries(*patch.Countries)
		if err != nil {
			return out, err
		}
		out.Countries = &countries
	}

	if patch.Timezone != nil {
		tz := strings.TrimSpace(*patch.Timezone)
		if tz == "" {
			return out, model.NewValidationError("timezone", "タイムゾーンを指定してください")
		}
		if _, err := time.LoadLocation(tz); err != nil {
			return out, model.NewValidationError("timezone", fmt.Sprintf("不明なタイムゾーンです: %s", tz))
		}
		out.Timezone = &tz
	}

	return out, nil
}

func normalizeNiches(niches []string) ([]string, error) {
	out := make([]string, 0, len(niches))
	for _, n := range niches {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, model.NewValidationError("niches", "空のニッチは指定できません")
		}
		out = append(out, n)
	}
	return out, nil
}

// normalizeLanguage はBCP 47の言語タグとして解釈できるかを検証し、正規形を返す。
func normalizeLanguage(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", model.NewValidationError("language", "言語コードを指定してください")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", model.NewValidationError("language", fmt.Sprintf("不正な言語コードです: %s", code))
	}
	return tag.String(), nil
}

// normalizeCountries はISO 3166-1 alpha-2の国コードとして検証し、大文字に正規化する。
func normalizeCountries(codes []string) ([]string, error) {
	if len(codes) == 0 {
		return nil, model.NewValidationError("countries", "国コードを1つ以上指定してください")
	}
	out := make([]string, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if len(code) != 2 {
			return nil, model.NewValidationError("countries", fmt.Sprintf("2文字の国コードを指定してください: %q", code))
		}
		region, err := language.ParseRegion(code)
		if err != nil || !region.IsCountry() {
			return nil, model.NewValidationError("countries", fmt.Sprintf("不正な国コードです: %s", code))
		}
		normalized := region.String()
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out, nil
}

func applyPatch(cfg *model.AutomationConfig, patch model.ConfigPatch) {
	if patch.Niches != nil {
		cfg.Niches = *patch.Niches
	}
	if patch.Language != nil {
		cfg.Language = *patch.Language
	}
	if patch.Countries != nil {
		cfg.Countries = *patch.Countries
	}
	if patch.PostsPerDay != nil {
		cfg.PostsPerDay = *patch.PostsPerDay
	}
	if patch.Paused != nil {
		cfg.Paused = *patch.Paused
	}
	if patch.Timezone != nil {
		cfg.Timezone = *patch.Timezone
	}
}
