package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/hitoshi/autoblog/internal/model"
)

// automationDefaultsFile は自動投稿設定の初期値ファイルの構造。
// YAML/JSON/TOMLなどviperが扱える形式で記述できる。
type automationDefaultsFile struct {
	Niches      []string `mapstructure:"niches"`
	Language    string   `mapstructure:"language"`
	Countries   []string `mapstructure:"countries"`
	PostsPerDay int      `mapstructure:"posts_per_day"`
	Paused      bool     `mapstructure:"paused"`
	Timezone    string   `mapstructure:"timezone"`
}

// LoadAutomationDefaults は初期値ファイルから自動投稿設定の初期値を読み込む。
// pathが空の場合は組み込みの初期値を返す。ファイルで省略された項目も組み込みの初期値で補われる。
func LoadAutomationDefaults(path, tenantID string) (*model.AutomationConfig, error) {
	builtin := model.DefaultAutomationConfig(tenantID)
	if path == "" {
		return builtin, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("niches", builtin.Niches)
	v.SetDefault("language", builtin.Language)
	v.SetDefault("countries", builtin.Countries)
	v.SetDefault("posts_per_day", builtin.PostsPerDay)
	v.SetDefault("paused", builtin.Paused)
	v.SetDefault("timezone", builtin.Timezone)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read automation defaults file %s: %w", path, err)
	}

	var file automationDefaultsFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("failed to decode automation defaults file %s: %w", path, err)
	}

	return &model.AutomationConfig{
		TenantID:    tenantID,
		Niches:      file.Niches,
		Language:    file.Language,
		Countries:   file.Countries,
		PostsPerDay: file.PostsPerDay,
		Paused:      file.Paused,
		Timezone:    file.Timezone,
	}, nil
}
