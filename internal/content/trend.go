// Package content はトレンド取得から記事生成までのコンテンツパイプラインを提供する。
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// MaxCandidateTopics は集約後に保持するトピック候補の上限。
const MaxCandidateTopics = 20

// TrendSource はトレンドトピックの取得元を表す。
type TrendSource interface {
	// Name はログ出力用の取得元名を返す。
	Name() string
	// Topics は指定国のトレンドトピックを順位順に返す。
	Topics(ctx context.Context, niches []string, country string) ([]string, error)
}

// DefaultStaticTopics はStaticTrendSourceが返す固定のトピック。
var DefaultStaticTopics = []string{
	"AI breakthroughs",
	"Tech layoffs",
	"Electric vehicles",
	"Stock market today",
	"Climate action updates",
	"AskReddit life hacks",
	"New chip release",
}

// StaticTrendSource は固定のトピックを返すTrendSource。
// 外部のトレンド取得元が設定されていない場合に使用する。
type StaticTrendSource struct {
	topics []string
}

// NewStaticTrendSource はStaticTrendSourceを生成する。
// topicsが空の場合はDefaultStaticTopicsを使用する。
func NewStaticTrendSource(topics ...string) *StaticTrendSource {
	if len(topics) == 0 {
		topics = DefaultStaticTopics
	}
	return &StaticTrendSource{topics: append([]string(nil), topics...)}
}

func (s *StaticTrendSource) Name() string { return "static" }

// Topics は国に関係なく同じトピックを返す。
func (s *StaticTrendSource) Topics(ctx context.Context, niches []string, country string) ([]string, error) {
	return append([]string(nil), s.topics...), nil
}

// AggregateTopics は全取得元・全対象国のトピックを集約する。
// 空白を正規化し、大文字小文字を区別せずに重複を除去し、ニッチに一致するトピックを先頭に並べ、
// MaxCandidateTopics件に切り詰める。
// 一部の取得元が失敗しても他の取得元から候補が得られた場合は続行する。
// 候補が1件も得られず失敗があった場合はエラーを返す。
func AggregateTopics(ctx context.Context, logger *slog.Logger, sources []TrendSource, niches, countries []string) ([]string, error) {
	var raw []string
	var errs []error

	for _, country := range countries {
		for _, src := range sources {
			topics, err := src.Topics(ctx, niches, country)
			if err != nil {
				logger.Warn("トレンドの取得に失敗しました",
					slog.String("source", src.Name()),
					slog.String("country", country),
					slog.String("error", err.Error()),
				)
				errs = append(errs, fmt.Errorf("%s(%s): %w", src.Name(), country, err))
				continue
			}
			raw = append(raw, topics...)
		}
	}

	topics := dedupeTopics(raw)
	if len(topics) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	topics = prioritizeNiches(topics, niches)
	if len(topics) > MaxCandidateTopics {
		topics = topics[:MaxCandidateTopics]
	}
	return topics, nil
}

// normalizeTopic は連続する空白を1つにまとめ、前後の空白を除去する。
func normalizeTopic(topic string) string {
	return strings.Join(strings.Fields(topic), " ")
}

func dedupeTopics(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		s := normalizeTopic(t)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// prioritizeNiches はニッチ語を含むトピックを元の順序を保ったまま先頭に移動する。
func prioritizeNiches(topics, niches []string) []string {
	if len(niches) == 0 {
		return topics
	}
	lowered := make([]string, 0, len(niches))
	for _, n := range niches {
		if n = strings.ToLower(normalizeTopic(n)); n != "" {
			lowered = append(lowered, n)
		}
	}

	matches := func(topic string) bool {
		t := strings.ToLower(topic)
		for _, n := range lowered {
			if strings.Contains(t, n) {
				return true
			}
		}
		return false
	}

	out := append([]string(nil), topics...)
	sort.SliceStable(out, func(i, j int) bool {
		return matches(out[i]) && !matches(out[j])
	})
	return out
}

// chooseTopic は直近の投稿で使われていない最初のトピックを返す。
// すべて使用済みの場合は先頭のトピックを返す。
func chooseTopic(candidates, recent []string) string {
	used := make(map[string]bool, len(recent))
	for _, r := range recent {
		used[strings.ToLower(normalizeTopic(r))] = true
	}
	for _, c := range candidates {
		if !used[strings.ToLower(c)] {
			return c
		}
	}
	return candidates[0]
}
