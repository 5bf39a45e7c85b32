package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/autoblog/internal/model"
	"github.com/hitoshi/autoblog/internal/security"
)

const (
	// recentTopicWindow はトピックの重複を避けるために参照する直近投稿数。
	recentTopicWindow = 10
	// maxRelatedTopics は記事生成に渡す関連トピックの最大数。
	maxRelatedTopics = 2
)

var errNoTopics = errors.New("no trending topics available")

// TopicHistory は直近の投稿で使用されたトピックを返す。
type TopicHistory interface {
	RecentTopics(ctx context.Context, tenantID string, n int) ([]string, error)
}

// Pipeline はトレンド取得、トピック選択、記事生成、検証、サニタイズを行い、
// 保存前の投稿を組み立てる。
type Pipeline struct {
	sources   []TrendSource
	generator ArticleGenerator
	sanitizer security.ArticleSanitizerService
	history   TopicHistory
	logger    *slog.Logger
}

// NewPipeline はPipelineを生成する。historyがnilの場合はトピックのローテーションを行わない。
func NewPipeline(
	sources []TrendSource,
	generator ArticleGenerator,
	sanitizer security.ArticleSanitizerService,
	history TopicHistory,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		sources:   sources,
		generator: generator,
		sanitizer: sanitizer,
		history:   history,
		logger:    logger,
	}
}

// Generate は設定のニッチと対象国からトレンドを集約して投稿を1件生成する。
// 失敗した場合は*model.PipelineErrorを返す。返す投稿はID、作成日時、生成契機が未設定。
func (p *Pipeline) Generate(ctx context.Context, cfg *model.AutomationConfig) (*model.Post, error) {
	candidates, err := AggregateTopics(ctx, p.logger, p.sources, cfg.Niches, cfg.Countries)
	if err != nil {
		return nil, model.NewPipelineError(model.PipelineStageTrends, err)
	}
	return p.generateFrom(ctx, cfg, candidates)
}

// GenerateFromTopics はトレンド取得を行わず、指定されたトピックから投稿を1件生成する。
func (p *Pipeline) GenerateFromTopics(ctx context.Context, cfg *model.AutomationConfig, topics []string) (*model.Post, error) {
	candidates := dedupeTopics(topics)
	if len(candidates) > MaxCandidateTopics {
		candidates = candidates[:MaxCandidateTopics]
	}
	return p.generateFrom(ctx, cfg, candidates)
}

func (p *Pipeline) generateFrom(ctx context.Context, cfg *model.AutomationConfig, candidates []string) (*model.Post, error) {
	if len(candidates) == 0 {
		return nil, model.NewPipelineError(model.PipelineStageTrends, errNoTopics)
	}

	topic := chooseTopic(candidates, p.recentTopics(ctx, cfg.TenantID))
	related := relatedTopics(candidates, topic)

	article, err := p.generator.Generate(ctx, ArticleRequest{
		Topic:         topic,
		RelatedTopics: related,
		Language:      cfg.Language,
		Niches:        cfg.Niches,
	})
	if err != nil {
		return nil, model.NewPipelineError(model.PipelineStageArticle, fmt.Errorf("%s: %w", p.generator.Name(), err))
	}
	if article == nil {
		return nil, model.NewPipelineError(model.PipelineStageArticle, fmt.Errorf("%s returned no article", p.generator.Name()))
	}

	body, err := p.buildBody(article)
	if err != nil {
		return nil, model.NewPipelineError(model.PipelineStageVerify, err)
	}

	return &model.Post{
		TenantID: cfg.TenantID,
		Title:    strings.TrimSpace(article.Title),
		Body:     *body,
		Topics:   append([]string{topic}, related...),
		Media:    article.Media,
		Language: cfg.Language,
		Status:   model.PostStatusDraft,
	}, nil
}

// buildBody は記事を検証し、サニタイズ済みの本文を組み立てる。
func (p *Pipeline) buildBody(article *Article) (*model.ArticleBody, error) {
	if strings.TrimSpace(article.Title) == "" {
		return nil, errEmptyTitle
	}
	for _, m := range article.Media {
		if (m.Type != model.MediaTypeImage && m.Type != model.MediaTypeVideo) || m.URL == "" {
			return nil, fmt.Errorf("invalid media item: type=%q url=%q", m.Type, m.URL)
		}
	}

	raw, err := inspectHTML(article.HTML)
	if err != nil {
		return nil, err
	}
	schema := article.Schema
	if len(schema) == 0 && len(raw.JSONLD) > 0 {
		schema = raw.JSONLD[0]
	}
	if len(schema) > 0 && !json.Valid(schema) {
		return nil, errInvalidSchema
	}

	sanitized := p.sanitizer.Sanitize(article.HTML)
	structure, err := inspectHTML(sanitized)
	if err != nil {
		return nil, err
	}
	if !structure.HasH1 {
		return nil, errMissingH1
	}

	return &model.ArticleBody{
		HTML:            sanitized,
		MetaDescription: strings.TrimSpace(article.MetaDescription),
		Headings:        structure.Headings,
		FAQ:             article.FAQ,
		Schema:          schema,
		Keywords:        article.Keywords,
	}, nil
}

// recentTopics は直近投稿のトピックを返す。取得に失敗した場合はローテーションせずに続行する。
func (p *Pipeline) recentTopics(ctx context.Context, tenantID string) []string {
	if p.history == nil {
		return nil
	}
	recent, err := p.history.RecentTopics(ctx, tenantID, recentTopicWindow)
	if err != nil {
		p.logger.Warn("直近トピックの取得に失敗しました",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return recent
}

func relatedTopics(candidates []string, chosen string) []string {
	var related []string
	for _, c := range candidates {
		if len(related) >= maxRelatedTopics {
			break
		}
		if !strings.EqualFold(c, chosen) {
			related = append(related, c)
		}
	}
	return related
}
