package content

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/failsafe-go/failsafe-go"
	"github.com/mmcdole/gofeed"
)

// maxFeedSize はトレンドフィードのレスポンスボディの上限（5MB）。
const maxFeedSize = 5 * 1024 * 1024

// RSSTrendSource はRSS/Atomフィードの記事タイトルをトレンドとして扱うTrendSource。
// Google TrendsのデイリートレンドRSSのように、URLに国コードを埋め込めるフィードを想定する。
type RSSTrendSource struct {
	client      *http.Client
	urlTemplate string
	executor    failsafe.Executor[*http.Response]
}

// NewRSSTrendSource はRSSTrendSourceを生成する。
// urlTemplateに%sが含まれる場合は国コードで置換する。
// clientにはSSRF防止付きのクライアントを渡すこと。
func NewRSSTrendSource(client *http.Client, urlTemplate string, retry RetryConfig) *RSSTrendSource {
	return &RSSTrendSource{
		client:      client,
		urlTemplate: urlTemplate,
		executor:    newHTTPExecutor(retry),
	}
}

func (s *RSSTrendSource) Name() string { return "rss" }

// FeedURL は国コードに対応するフィードURLを返す。
func (s *RSSTrendSource) FeedURL(country string) string {
	if strings.Contains(s.urlTemplate, "%s") {
		return fmt.Sprintf(s.urlTemplate, country)
	}
	return s.urlTemplate
}

// Topics はフィードを取得し、各アイテムのタイトルを掲載順に返す。
func (s *RSSTrendSource) Topics(ctx context.Context, niches []string, country string) ([]string, error) {
	feedURL := s.FeedURL(country)

	body, err := doWithRetry(ctx, s.executor, s.client, maxFeedSize, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Autoblog/1.0 Trend Fetcher")
		req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trend feed %s: %w", feedURL, err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse trend feed %s: %w", feedURL, err)
	}

	topics := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		if title := normalizeTopic(item.Title); title != "" {
			topics = append(topics, title)
		}
	}
	return topics, nil
}
