package content

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/hitoshi/autoblog/internal/model"
)

// ArticleRequest は記事生成の入力。
type ArticleRequest struct {
	Topic         string
	RelatedTopics []string
	Language      string
	Niches        []string
}

// Article は記事生成元が返す記事。HTMLはサニタイズ前の値。
type Article struct {
	Title           string
	HTML            string
	MetaDescription string
	Keywords        []string
	FAQ             []model.FAQEntry
	Schema          json.RawMessage
	Media           []model.MediaItem
}

// ArticleGenerator は記事本文の生成元を表す。
type ArticleGenerator interface {
	Name() string
	Generate(ctx context.Context, req ArticleRequest) (*Article, error)
}

// TemplateArticleGenerator は固定テンプレートでSEO向けの記事を組み立てるArticleGenerator。
// 目次、要点、FAQとFAQPageのJSON-LDを含む。LLMが設定されていない場合に使用する。
type TemplateArticleGenerator struct{}

// NewTemplateArticleGenerator はTemplateArticleGeneratorを生成する。
func NewTemplateArticleGenerator() *TemplateArticleGenerator {
	return &TemplateArticleGenerator{}
}

func (g *TemplateArticleGenerator) Name() string { return "template" }

// Generate はトピックから記事を組み立てる。
func (g *TemplateArticleGenerator) Generate(ctx context.Context, req ArticleRequest) (*Article, error) {
	topic := normalizeTopic(req.Topic)
	if topic == "" {
		return nil, fmt.Errorf("topic is empty")
	}

	title := fmt.Sprintf("%s: What You Need to Know Right Now", topic)
	meta := fmt.Sprintf("Deep dive into %s with context, key takeaways, and FAQs.", topic)
	faq := []model.FAQEntry{
		{Question: fmt.Sprintf("What is %s?", topic), Answer: "High-level explanation to help readers get oriented."},
		{Question: fmt.Sprintf("Why does %s matter now?", topic), Answer: "Context on impact and timing."},
		{Question: "Where can I learn more?", Answer: "Official docs, reputable sources, and communities."},
	}

	schema, err := faqPageSchema(faq)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("<article>\n")
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(title))
	fmt.Fprintf(&b, "<p><em>%s</em></p>\n", html.EscapeString(meta))
	b.WriteString(`<nav aria-label="Table of contents"><ol>` +
		`<li><a href="#overview">Overview</a></li>` +
		`<li><a href="#key-points">Key Points</a></li>` +
		`<li><a href="#faq">FAQ</a></li>` +
		"</ol></nav>\n")
	b.WriteString(`<h2 id="overview">Overview</h2>` + "\n")
	fmt.Fprintf(&b, "<p>%s is trending right now. This article collects the background, the current status and what to watch next.</p>\n",
		html.EscapeString(topic))
	b.WriteString(`<h2 id="key-points">Key Points</h2>` + "\n")
	b.WriteString("<ul><li>Trend background and current status</li><li>Opportunities and risks</li><li>Useful resources</li></ul>\n")
	if len(req.RelatedTopics) > 0 {
		b.WriteString(`<h2 id="related">Related Topics</h2>` + "\n<ul>")
		for _, related := range req.RelatedTopics {
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(related))
		}
		b.WriteString("</ul>\n")
	}
	b.WriteString(`<h2 id="faq">FAQ</h2>` + "\n")
	for _, entry := range faq {
		fmt.Fprintf(&b, "<h3>%s</h3>\n<p>%s</p>\n", html.EscapeString(entry.Question), html.EscapeString(entry.Answer))
	}
	fmt.Fprintf(&b, `<script type="application/ld+json">%s</script>`+"\n", schema)
	b.WriteString("</article>")

	keywords := append([]string{topic}, req.RelatedTopics...)

	return &Article{
		Title:           title,
		HTML:            b.String(),
		MetaDescription: meta,
		Keywords:        keywords,
		FAQ:             faq,
		Schema:          schema,
	}, nil
}

type faqAnswer struct {
	Type string `json:"@type"`
	Text string `json:"text"`
}

type faqQuestion struct {
	Type           string    `json:"@type"`
	Name           string    `json:"name"`
	AcceptedAnswer faqAnswer `json:"acceptedAnswer"`
}

type faqPage struct {
	Context    string        `json:"@context"`
	Type       string        `json:"@type"`
	MainEntity []faqQuestion `json:"mainEntity"`
}

// faqPageSchema はFAQからschema.orgのFAQPage JSON-LDを生成する。
func faqPageSchema(faq []model.FAQEntry) (json.RawMessage, error) {
	page := faqPage{Context: "https://schema.org", Type: "FAQPage"}
	for _, entry := range faq {
		page.MainEntity = append(page.MainEntity, faqQuestion{
			Type:           "Question",
			Name:           entry.Question,
			AcceptedAnswer: faqAnswer{Type: "Answer", Text: entry.Answer},
		})
	}
	data, err := json.Marshal(page)
	if err != nil {
		return nil, fmt.Errorf("failed to encode FAQPage schema: %w", err)
	}
	return data, nil
}
