package content

import (
	"context"
	"io"
	"log/slog"
)

// --- モック ---

type mockTrendSource struct {
	name     string
	topicsFn func(ctx context.Context, niches []string, country string) ([]string, error)
}

func (m *mockTrendSource) Name() string { return m.name }

func (m *mockTrendSource) Topics(ctx context.Context, niches []string, country string) ([]string, error) {
	return m.topicsFn(ctx, niches, country)
}

type mockGenerator struct {
	generateFn func(ctx context.Context, req ArticleRequest) (*Article, error)
}

func (m *mockGenerator) Name() string { return "mock" }

func (m *mockGenerator) Generate(ctx context.Context, req ArticleRequest) (*Article, error) {
	return m.generateFn(ctx, req)
}

type mockHistory struct {
	recentFn func(ctx context.Context, tenantID string, n int) ([]string, error)
}

func (m *mockHistory) RecentTopics(ctx context.Context, tenantID string, n int) ([]string, error) {
	return m.recentFn(ctx, tenantID, n)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
