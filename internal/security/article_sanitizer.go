package security

import (
	"net/url"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// ArticleSanitizerService は生成記事のHTMLをサニタイズするインターフェースを定義する。
// 記事生成元（テンプレート、LLM）の出力を投稿として保存する前に使用される。
type ArticleSanitizerService interface {
	// Sanitize は記事構造のタグのみを残した安全なHTMLを返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string
}

// anchorID は見出しに付与できるid属性の形式（目次リンク用）。
var anchorID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type articleSanitizer struct {
	policy *bluemonday.Policy
}

// NewArticleSanitizer はArticleSanitizerServiceの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 記事構造: article, section, nav, h1〜h4, p, br, ul, ol, li, blockquote, pre, code, strong, em, figure, figcaption
//   - 見出しとsectionのid属性（英数字とハイフンのみ）、navのaria-label属性
//   - aタグ: httpsまたはページ内リンクのみ。外部リンクにはtarget="_blank"とrel="noopener noreferrer"
//   - imgタグ: httpsのsrcとalt
//   - script, style, iframe, on*イベント属性は除去（JSON-LDはサニタイズ前に抽出する）
func NewArticleSanitizer() *articleSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"article", "section", "nav",
		"h1", "h2", "h3", "h4",
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
		"figure", "figcaption",
	)
	p.AllowAttrs("id").Matching(anchorID).OnElements("h1", "h2", "h3", "h4", "section")
	p.AllowAttrs("aria-label").OnElements("nav")

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})

	return &articleSanitizer{policy: p}
}

// Sanitize はHTMLをサニタイズして返す。
func (s *articleSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
