package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// RetryConfig は外部HTTP呼び出しの再試行設定。
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig は外部HTTP呼び出しの既定の再試行設定を返す。
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 2,
		BaseDelay:  2 * time.Second,
		MaxDelay:   10 * time.Second,
	}
}

// shouldRetry はネットワークエラー、429、5xxを再試行対象とする。
func shouldRetry(resp *http.Response, err error) bool {
	if err != nil || resp == nil {
		return true
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
}

// newHTTPExecutor は指数バックオフ付きの再試行ポリシーを持つexecutorを生成する。
//
//nolint:bodyclose // *http.Response is a type parameter here
func newHTTPExecutor(cfg RetryConfig) failsafe.Executor[*http.Response] {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}

	policy := retrypolicy.NewBuilder[*http.Response]().
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(shouldRetry).
		OnRetry(func(e failsafe.ExecutionEvent[*http.Response]) {
			// 再試行で破棄されるレスポンスのボディを閉じる
			if resp := e.LastResult(); resp != nil {
				resp.Body.Close()
			}
		}).
		Build()

	return failsafe.With(policy)
}

// doWithRetry はリクエストを再試行付きで実行し、2xxのレスポンスボディを最大maxBodyバイト読み込む。
// newRequestは試行ごとに呼ばれる（リクエストボディを再利用しないため）。
func doWithRetry(
	ctx context.Context,
	executor failsafe.Executor[*http.Response],
	client *http.Client,
	maxBody int64,
	newRequest func(ctx context.Context) (*http.Request, error),
) ([]byte, error) {
	resp, err := executor.WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := newRequest(ctx)
		if err != nil {
			return nil, err
		}
		return client.Do(req)
	})
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return body, nil
}
