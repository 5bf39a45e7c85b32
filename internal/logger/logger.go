// Package logger はJSON構造化ログの初期化を提供する。
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Options はロガーの生成オプション。
type Options struct {
	// Level はこれ未満のログを出力しない。ゼロ値はINFO。
	Level slog.Level
	// Service が空でなければすべてのログにservice属性を付与する。
	Service string
	// TenantID が空でなければすべてのログにtenant_id属性を付与する。
	TenantID string
}

// Setup はJSON構造化ログを出力するslog.Loggerを生成する。
func Setup(w io.Writer, opts Options) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level})

	var attrs []any
	if opts.Service != "" {
		attrs = append(attrs, slog.String("service", opts.Service))
	}
	if opts.TenantID != "" {
		attrs = append(attrs, slog.String("tenant_id", opts.TenantID))
	}
	return slog.New(handler).With(attrs...)
}

// SetupDefault はSetupで生成したロガーをグローバルロガーとして設定し、返す。
// wがnilの場合はos.Stdoutに出力する。
func SetupDefault(w io.Writer, opts Options) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	l := Setup(w, opts)
	slog.SetDefault(l)
	return l
}

// Component はcomponent属性を付与した子ロガーを返す。
// スケジューラ、パイプライン、HTTPなど出力元ごとにログを絞り込むために使う。
func Component(l *slog.Logger, name string) *slog.Logger {
	return l.With(slog.String("component", name))
}
