package content

import (
	"context"
	"log/slog"

	"github.com/hitoshi/autoblog/internal/model"
)

// Publisher は生成済み投稿の公開先を表す。
type Publisher interface {
	Name() string
	// Publish は投稿を公開先へ送信し、公開が確定した場合にtrueを返す。
	Publish(ctx context.Context, post *model.Post) (bool, error)
}

// LogPublisher は投稿をログに記録するだけのPublisher。
// 公開を確定しないため、投稿は下書きのまま保持される。
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher はLogPublisherを生成する。
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Name() string { return "log" }

// Publish は投稿の概要をログ出力する。
func (p *LogPublisher) Publish(ctx context.Context, post *model.Post) (bool, error) {
	p.logger.Info("公開先が未設定のため投稿を下書きとして保持します",
		slog.String("post_id", post.ID),
		slog.String("title", post.Title),
		slog.String("trigger", string(post.Trigger)),
	)
	return false, nil
}
