// Package model はドメインモデルを定義する。
package model

import "time"

// MaxPostsPerDay は1日あたりの投稿数の上限。
// 1時間ごとのティックで1件ずつ生成できる上限に合わせている。
const MaxPostsPerDay = 24

// AutomationConfig はテナントごとの自動投稿設定を表す。
// 設定はテナントにつき1件で、削除されず上書き更新される。
type AutomationConfig struct {
	TenantID    string
	Niches      []string
	Language    string
	Countries   []string
	PostsPerDay int
	Paused      bool
	Timezone    string // IANAタイムゾーン名。ローカル日付の境界を決める
	UpdatedAt   time.Time
}

// GenerationEnabled は自動生成が許可されているかを返す。
// paused=false かつ posts_per_day>0 の場合のみ許可される。
func (c *AutomationConfig) GenerationEnabled() bool {
	return !c.Paused && c.PostsPerDay > 0
}

// Location は設定のタイムゾーンを返す。
// 未設定または不正な場合はUTCを返す。
func (c *AutomationConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Clone は設定のディープコピーを返す。
func (c *AutomationConfig) Clone() *AutomationConfig {
	cp := *c
	cp.Niches = append([]string(nil), c.Niches...)
	cp.Countries = append([]string(nil), c.Countries...)
	return &cp
}

// DefaultAutomationConfig はテナントの初期設定を返す。
func DefaultAutomationConfig(tenantID string) *AutomationConfig {
	return &AutomationConfig{
		TenantID:    tenantID,
		Niches:      []string{"technology"},
		Language:    "en",
		Countries:   []string{"US"},
		PostsPerDay: 3,
		Paused:      false,
		Timezone:    "UTC",
	}
}

// ConfigPatch は設定の部分更新リクエストを表す。
// nilのフィールドは変更しない。
type ConfigPatch struct {
	Niches      *[]string
	Language    *string
	Countries   *[]string
	PostsPerDay *int
	Paused      *bool
	Timezone    *string
}

// SchedulePatch は投稿ペースのみを変更する部分更新リクエストを表す。
type SchedulePatch struct {
	PostsPerDay *int
	Paused      *bool
}

// ToConfigPatch はSchedulePatchをConfigPatchに変換する。
func (p SchedulePatch) ToConfigPatch() ConfigPatch {
	return ConfigPatch{
		PostsPerDay: p.PostsPerDay,
		Paused:      p.Paused,
	}
}
