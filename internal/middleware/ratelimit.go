package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/autoblog/internal/model"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）。120/60 = 2 req/sec
	GeneralBurst    int           // API全般のバーストサイズ
	GenerateRate    rate.Limit    // 即時生成のレート（req/sec）。10/60
	GenerateBurst   int           // 即時生成のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min/client、即時生成 10 req/min/client
func DefaultRateLimiterConfig() RateLimiterConfig {
	return NewRateLimiterConfig(120, 10)
}

// NewRateLimiterConfig は1分あたりのリクエスト数からレート制限設定を生成する。
// バーストサイズは1分あたりのリクエスト数と同じ値とする。
func NewRateLimiterConfig(generalPerMinute, generatePerMinute int) RateLimiterConfig {
	if generalPerMinute <= 0 {
		generalPerMinute = 120
	}
	if generatePerMinute <= 0 {
		generatePerMinute = 10
	}
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(generalPerMinute) / 60.0),
		GeneralBurst:    generalPerMinute,
		GenerateRate:    rate.Limit(float64(generatePerMinute) / 60.0),
		GenerateBurst:   generatePerMinute,
		CleanupInterval: 5 * time.Minute,
	}
}

// clientLimiter はクライアントごとのトークンバケットと最終アクセス時刻。
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterPool は同じレートを共有するクライアント別リミッターの集合。
type limiterPool struct {
	name  string
	rate  rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

func newLimiterPool(name string, r rate.Limit, burst int) *limiterPool {
	return &limiterPool{name: name, rate: r, burst: burst, clients: make(map[string]*clientLimiter)}
}

// allow はクライアントのバケットからトークンを1つ消費できるかを返す。
func (p *limiterPool) allow(clientID string, now time.Time) bool {
	p.mu.Lock()
	cl, ok := p.clients[clientID]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(p.rate, p.burst)}
		p.clients[clientID] = cl
	}
	cl.lastAccess = now
	p.mu.Unlock()

	return cl.limiter.AllowN(now, 1)
}

// evictIdle は最終アクセスからttl以上経過したクライアントを削除する。
func (p *limiterPool) evictIdle(now time.Time, ttl time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for clientID, cl := range p.clients {
		if now.Sub(cl.lastAccess) > ttl {
			delete(p.clients, clientID)
		}
	}
}

func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// RateLimiter はControl APIのクライアント別レート制限を管理する。
// API全般と即時生成（POST /generate）の2つのプールを独立に持つ。
type RateLimiter struct {
	config   RateLimiterConfig
	general  *limiterPool
	generate *limiterPool

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter はRateLimiterを生成し、アイドルなクライアントの掃除をバックグラウンドで開始する。
// 不要になったらStopを呼ぶこと。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:   config,
		general:  newLimiterPool("general", config.GeneralRate, config.GeneralBurst),
		generate: newLimiterPool("generate", config.GenerateRate, config.GenerateBurst),
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop は掃除ゴルーチンを停止する。複数回呼んでもよい。
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// GeneralMiddleware はControl API全般のレート制限ミドルウェアを返す。
// クライアントはTokenAuthMiddlewareが注入した識別子、なければ接続元IPで識別する。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.general)
}

// GenerateMiddleware は即時生成専用のレート制限ミドルウェアを返す。
// 記事生成は外部APIを呼ぶため、API全般とは別のより厳しい上限を課す。
func (rl *RateLimiter) GenerateMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.generate)
}

func (rl *RateLimiter) middleware(pool *limiterPool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := clientKey(r)

			if !pool.allow(clientID, time.Now()) {
				writeRateLimitResponse(w, pool.rate)
				slog.Warn("レート制限を超過しました",
					slog.String("client_id", clientID),
					slog.String("limit_type", pool.name),
					slog.String("path", r.URL.Path),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey はレート制限に使用するクライアント識別子を返す。
func clientKey(r *http.Request) string {
	if clientID, err := ClientIDFromContext(r.Context()); err == nil {
		return clientID
	}
	return clientIP(r)
}

// GeneralLimiterCount は追跡中のAPI全般のクライアント数を返す。
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.size()
}

// GenerateLimiterCount は追跡中の即時生成のクライアント数を返す。
func (rl *RateLimiter) GenerateLimiterCount() int {
	return rl.generate.size()
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			ttl := rl.config.CleanupInterval * 2
			rl.general.evictIdle(now, ttl)
			rl.generate.evictIdle(now, ttl)
		case <-rl.stopCh:
			return
		}
	}
}

// writeRateLimitResponse は429を書き込む。
// Retry-Afterには1トークンが補充されるまでの秒数（切り上げ、最低1秒）を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteErrorResponse(w, http.StatusTooManyRequests, model.NewRateLimitedAPIError())
}
