package content

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hitoshi/autoblog/internal/model"
)

func TestTemplateArticleGenerator_Generate(t *testing.T) {
	gen := NewTemplateArticleGenerator()

	article, err := gen.Generate(context.Background(), ArticleRequest{
		Topic:         "Electric vehicles",
		RelatedTopics: []string{"Tech layoffs"},
		Language:      "en",
	})
	if err != nil {
		t.Fatalf("Generate() returned error: %v", err)
	}

	if article.Title != "Electric vehicles: What You Need to Know Right Now" {
		t.Errorf("Title = %q", article.Title)
	}
	if !strings.Contains(article.MetaDescription, "Electric vehicles") {
		t.Errorf("MetaDescription = %q, want it to mention the topic", article.MetaDescription)
	}
	if len(article.FAQ) != 3 {
		t.Errorf("len(FAQ) = %d, want 3", len(article.FAQ))
	}
	if len(article.Keywords) != 2 || article.Keywords[0] != "Electric vehicles" {
		t.Errorf("Keywords = %v, want [Electric vehicles Tech layoffs]", article.Keywords)
	}

	structure, err := inspectHTML(article.HTML)
	if err != nil {
		t.Fatalf("inspectHTML() returned error: %v", err)
	}
	if !structure.HasH1 {
		t.Error("generated HTML has no h1")
	}
	for _, want := range []string{"Overview", "Key Points", "Related Topics", "FAQ"} {
		if !containsString(structure.Headings, want) {
			t.Errorf("Headings = %v, missing %q", structure.Headings, want)
		}
	}
	if len(structure.JSONLD) != 1 {
		t.Fatalf("len(JSONLD) = %d, want 1", len(structure.JSONLD))
	}
}

func TestTemplateArticleGenerator_EscapesTopic(t *testing.T) {
	gen := NewTemplateArticleGenerator()

	article, err := gen.Generate(context.Background(), ArticleRequest{Topic: "<b>bold</b> & co"})
	if err != nil {
		t.Fatalf("Generate() returned error: %v", err)
	}
	if strings.Contains(article.HTML, "<b>bold</b>") {
		t.Errorf("topic markup was not escaped: %s", article.HTML)
	}
}

func TestTemplateArticleGenerator_EmptyTopic(t *testing.T) {
	gen := NewTemplateArticleGenerator()

	if _, err := gen.Generate(context.Background(), ArticleRequest{Topic: "   "}); err == nil {
		t.Fatal("expected error for empty topic")
	}
}

func TestFAQPageSchema(t *testing.T) {
	schema, err := faqPageSchema([]model.FAQEntry{{Question: "Q1", Answer: "A1"}})
	if err != nil {
		t.Fatalf("faqPageSchema() returned error: %v", err)
	}

	var page map[string]any
	if err := json.Unmarshal(schema, &page); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}
	if page["@type"] != "FAQPage" {
		t.Errorf("@type = %v, want FAQPage", page["@type"])
	}
	if page["@context"] != "https://schema.org" {
		t.Errorf("@context = %v, want https://schema.org", page["@context"])
	}
	entities, ok := page["mainEntity"].([]any)
	if !ok || len(entities) != 1 {
		t.Fatalf("mainEntity = %v, want 1 entry", page["mainEntity"])
	}
	question := entities[0].(map[string]any)
	if question["name"] != "Q1" {
		t.Errorf("name = %v, want Q1", question["name"])
	}
}

func TestInspectHTML(t *testing.T) {
	fragment := `<article>
<h1>  Main   title </h1>
<h2>Section <em>one</em></h2>
<h5>ignored</h5>
<script type="application/ld+json">{"@type":"FAQPage"}</script>
<script>alert(1)</script>
</article>`

	s, err := inspectHTML(fragment)
	if err != nil {
		t.Fatalf("inspectHTML() returned error: %v", err)
	}
	if !s.HasH1 {
		t.Error("HasH1 = false, want true")
	}
	want := []string{"Main title", "Section one"}
	if len(s.Headings) != len(want) {
		t.Fatalf("Headings = %v, want %v", s.Headings, want)
	}
	for i := range want {
		if s.Headings[i] != want[i] {
			t.Errorf("Headings[%d] = %q, want %q", i, s.Headings[i], want[i])
		}
	}
	if len(s.JSONLD) != 1 || string(s.JSONLD[0]) != `{"@type":"FAQPage"}` {
		t.Errorf("JSONLD = %q, want one FAQPage entry", s.JSONLD)
	}
}

func TestInspectHTML_NoH1(t *testing.T) {
	s, err := inspectHTML("<p>text only</p>")
	if err != nil {
		t.Fatalf("inspectHTML() returned error: %v", err)
	}
	if s.HasH1 {
		t.Error("HasH1 = true, want false")
	}
	if len(s.Headings) != 0 {
		t.Errorf("Headings = %v, want empty", s.Headings)
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
