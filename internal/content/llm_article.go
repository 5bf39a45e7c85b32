package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/failsafe-go/failsafe-go"

	"github.com/hitoshi/autoblog/internal/model"
)

// maxLLMResponseSize はLLMレスポンスボディの上限（2MB）。
const maxLLMResponseSize = 2 * 1024 * 1024

// LLMConfig はOpenAI互換のチャット補完APIの接続設定。
type LLMConfig struct {
	Provider string
	Model    string
	APIKey   string
	APIURL   string
}

// LLMArticleGenerator はOpenAI互換のチャット補完APIで記事を生成するArticleGenerator。
type LLMArticleGenerator struct {
	client   *http.Client
	cfg      LLMConfig
	executor failsafe.Executor[*http.Response]
}

// NewLLMArticleGenerator はLLMArticleGeneratorを生成する。
func NewLLMArticleGenerator(client *http.Client, cfg LLMConfig, retry RetryConfig) *LLMArticleGenerator {
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.openai.com/v1"
	}
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	return &LLMArticleGenerator{
		client:   client,
		cfg:      cfg,
		executor: newHTTPExecutor(retry),
	}
}

func (g *LLMArticleGenerator) Name() string { return "llm:" + g.cfg.Provider }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string             `json:"model"`
	Messages       []chatMessage      `json:"messages"`
	Stream         bool               `json:"stream"`
	ResponseFormat chatResponseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// llmArticle はLLMに出力させる記事のJSON形式。
type llmArticle struct {
	Title           string           `json:"title"`
	MetaDescription string           `json:"meta_description"`
	HTML            string           `json:"html"`
	Keywords        []string         `json:"keywords"`
	FAQ             []model.FAQEntry `json:"faq"`
}

const articleSystemPrompt = `You are an SEO content writer. Reply with a single JSON object with the keys
"title", "meta_description", "html", "keywords" and "faq". "html" must be an <article> element that
starts with an <h1> containing the title, has a table of contents in <nav>, <h2> sections with id
attributes, and an FAQ section. "faq" is a list of {"question", "answer"} objects. Do not include
scripts or inline styles.`

// Generate はLLMに記事を生成させる。
func (g *LLMArticleGenerator) Generate(ctx context.Context, req ArticleRequest) (*Article, error) {
	if g.cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}

	payload, err := json.Marshal(chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: articleSystemPrompt},
			{Role: "user", Content: articlePrompt(req)},
		},
		ResponseFormat: chatResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	body, err := doWithRetry(ctx, g.executor, g.client, maxLLMResponseSize, func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.APIURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if g.cfg.APIKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
		}
		return httpReq, nil
	})
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("llm: decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("llm: response has no choices")
	}

	var out llmArticle
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("llm: decode article: %w", err)
	}

	article := &Article{
		Title:           out.Title,
		HTML:            out.HTML,
		MetaDescription: out.MetaDescription,
		Keywords:        out.Keywords,
		FAQ:             out.FAQ,
	}
	if len(out.FAQ) > 0 {
		schema, err := faqPageSchema(out.FAQ)
		if err != nil {
			return nil, err
		}
		article.Schema = schema
	}
	return article, nil
}

func articlePrompt(req ArticleRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a long-form blog article about %q.\n", req.Topic)
	fmt.Fprintf(&b, "Language: %s\n", req.Language)
	if len(req.Niches) > 0 {
		fmt.Fprintf(&b, "Audience interests: %s\n", strings.Join(req.Niches, ", "))
	}
	if len(req.RelatedTopics) > 0 {
		fmt.Fprintf(&b, "Mention related trends where relevant: %s\n", strings.Join(req.RelatedTopics, ", "))
	}
	return b.String()
}
