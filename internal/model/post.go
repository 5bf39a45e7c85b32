package model

import (
	"encoding/json"
	"time"
)

// PostStatus は投稿の公開状態を表す。
type PostStatus string

const (
	// PostStatusDraft は生成済みで未公開の状態。
	PostStatusDraft PostStatus = "draft"
	// PostStatusPublished はPublisherが公開を確認した状態。
	PostStatusPublished PostStatus = "published"
)

// Trigger は投稿を生成した契機を表す。
type Trigger string

const (
	// TriggerCadence はスケジューラのティックによる生成。
	TriggerCadence Trigger = "cadence"
	// TriggerManual はControl APIからの即時生成。
	TriggerManual Trigger = "manual"
)

// Post は生成された投稿を表す。
// 作成後はステータス以外を変更しない。
type Post struct {
	ID          string
	TenantID    string
	Title       string
	Body        ArticleBody
	Topics      []string
	Media       []MediaItem
	Language    string
	Trigger     Trigger
	Status      PostStatus
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// ArticleBody は記事本文の構造化データ。
// postsテーブルのbodyカラムにJSONとして保存される。
type ArticleBody struct {
	HTML            string          `json:"html"` // サニタイズ済みHTML
	MetaDescription string          `json:"meta_description"`
	Headings        []string        `json:"headings"`
	FAQ             []FAQEntry      `json:"faq"`
	Schema          json.RawMessage `json:"schema,omitempty"` // JSON-LD (FAQPage)
	Keywords        []string        `json:"keywords"`
}

// FAQEntry はFAQの1問を表す。
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// MediaType は添付メディアの種別。
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// MediaItem は投稿に添付されるメディアの記述子。
type MediaItem struct {
	Type    MediaType `json:"type"`
	URL     string    `json:"url"`
	Alt     string    `json:"alt,omitempty"`
	Caption string    `json:"caption,omitempty"`
}
