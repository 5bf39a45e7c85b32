// Package post は生成済み投稿の参照を提供する。
package post

import (
	"context"
	"fmt"

	"github.com/hitoshi/autoblog/internal/model"
	"github.com/hitoshi/autoblog/internal/repository"
)

// 一覧取得の件数
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// Service は投稿一覧のサービス層。
type Service struct {
	repo     repository.PostRepository
	tenantID string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.PostRepository, tenantID string) *Service {
	return &Service{repo: repo, tenantID: tenantID}
}

// List は投稿を新しい順に返す。
// limitが0の場合はDefaultListLimitを使用する。範囲外の値は*model.ValidationErrorを返す。
func (s *Service) List(ctx context.Context, limit, offset int) ([]*model.Post, error) {
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit < 0 || limit > MaxListLimit {
		return nil, model.NewValidationError("limit", fmt.Sprintf("1以上%d以下で指定してください", MaxListLimit))
	}
	if offset < 0 {
		return nil, model.NewValidationError("offset", "0以上で指定してください")
	}

	posts, err := s.repo.List(ctx, s.tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	return posts, nil
}
