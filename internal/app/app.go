package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/autoblog/internal/automation"
	"github.com/hitoshi/autoblog/internal/config"
	"github.com/hitoshi/autoblog/internal/content"
	"github.com/hitoshi/autoblog/internal/database"
	"github.com/hitoshi/autoblog/internal/handler"
	"github.com/hitoshi/autoblog/internal/logger"
	"github.com/hitoshi/autoblog/internal/metrics"
	"github.com/hitoshi/autoblog/internal/middleware"
	"github.com/hitoshi/autoblog/internal/post"
	"github.com/hitoshi/autoblog/internal/repository"
	"github.com/hitoshi/autoblog/internal/security"
	"github.com/hitoshi/autoblog/internal/worker/cadence"
)

const serviceName = "autoblog"

// Init は環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// 設定の読み込みに失敗した場合もINFOレベルのロガーを設定してからエラーを返す。
func Init(w io.Writer) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		logger.SetupDefault(w, logger.Options{Service: serviceName})
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, logger.Options{
		Level:    cfg.LogLevel,
		Service:  serviceName,
		TenantID: cfg.TenantID,
	})
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	inv, err := ParseCommand(args)
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if inv.Command == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(inv.Command)),
		slog.String("port", cfg.ServerPort),
		slog.String("storage_driver", cfg.StorageDriver),
	)

	switch inv.Command {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg, inv.Migrate)
	default:
		return runServe(cfg)
	}
}

// components はserveとworkerで共有する依存関係。
type components struct {
	db            *sql.DB
	registry      *prometheus.Registry
	collector     *metrics.Collector
	configService *automation.Service
	postService   *post.Service
	scheduler     *cadence.Scheduler
}

// close はDB接続を閉じる。
func (c *components) close() {
	if c.db != nil {
		c.db.Close()
	}
}

// buildComponents はストレージ、コンテンツパイプライン、スケジューラを構築する。
// 設定が未保存の場合は初期値を保存する。
func buildComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	c := &components{}
	log := slog.Default()

	// 1. 自動投稿設定の初期値
	defaults, err := config.LoadAutomationDefaults(cfg.AutomationDefaultsFile, cfg.TenantID)
	if err != nil {
		return nil, err
	}
	if err := automation.Validate(defaults); err != nil {
		return nil, fmt.Errorf("invalid automation defaults: %w", err)
	}

	// 2. ストレージ
	var configRepo repository.ConfigRepository
	var postRepo repository.PostRepository
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		configRepo = repository.NewMemoryConfigRepo()
		postRepo = repository.NewMemoryPostRepo()
		slog.Warn("using in-memory storage; posts are lost on restart")
	default:
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		c.db = db
		configRepo = repository.NewPostgresConfigRepo(db)
		postRepo = repository.NewPostgresPostRepo(db)
	}

	// 3. メトリクス
	c.registry = prometheus.NewRegistry()
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.collector = metrics.NewCollector(c.registry)

	// 4. コンテンツパイプライン
	sources, err := newTrendSources(cfg)
	if err != nil {
		c.close()
		return nil, err
	}
	generator := newArticleGenerator(cfg)
	pipeline := content.NewPipeline(sources, generator, security.NewArticleSanitizer(), postRepo,
		logger.Component(log, "pipeline"))

	slog.Info("content pipeline configured",
		slog.String("trend_source", cfg.TrendSource),
		slog.String("article_generator", generator.Name()),
	)

	// 5. サービスとスケジューラ
	c.configService = automation.NewService(configRepo, cfg.TenantID, defaults)
	c.postService = post.NewService(postRepo, cfg.TenantID)
	c.scheduler = cadence.NewScheduler(
		configRepo, postRepo, pipeline, content.NewLogPublisher(logger.Component(log, "publisher")),
		c.collector, logger.Component(log, "scheduler"), cfg.TenantID, cfg.DriftTolerance,
	)

	if _, err := c.configService.Get(ctx); err != nil {
		c.close()
		return nil, fmt.Errorf("failed to initialize automation config: %w", err)
	}

	recoverScheduler(ctx, c.scheduler, log, time.Now())

	return c, nil
}

// recoverScheduler は起動時にPost Storeから当日の生成状況を再構築する。
// 失敗しても起動は止めない。再構築されていない状態は最初のティックで再試行される。
func recoverScheduler(ctx context.Context, s *cadence.Scheduler, log *slog.Logger, now time.Time) {
	if err := s.Recover(ctx, now); err != nil {
		log.Warn("scheduler state recovery failed; retrying on first tick",
			slog.String("error", err.Error()),
		)
	}
}

// openDatabase はDB接続を開き、未適用のマイグレーションを適用する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Connect(ctx, cfg.DatabaseURL, database.NewPoolConfig(cfg.DBMaxOpenConns))
	if err != nil {
		return nil, err
	}

	slog.Info("database connection established",
		slog.String("database_url", redactDatabaseURL(cfg.DatabaseURL)),
		slog.Int("max_open_conns", cfg.DBMaxOpenConns),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return db, nil
}

// newTrendSources は設定に応じたトレンド取得元を返す。
// rssの場合はSSRF対策済みのHTTPクライアントを使用する。
func newTrendSources(cfg *config.Config) ([]content.TrendSource, error) {
	if cfg.TrendSource != config.TrendSourceRSS {
		return []content.TrendSource{content.NewStaticTrendSource()}, nil
	}

	guard := security.NewSSRFGuard()
	if err := guard.ValidateURL(fmt.Sprintf(cfg.TrendFeedURL, "US")); err != nil {
		return nil, fmt.Errorf("invalid TREND_FEED_URL: %w", err)
	}
	client := guard.NewSafeClient(cfg.TrendFetchTimeout)

	return []content.TrendSource{
		content.NewRSSTrendSource(client, cfg.TrendFeedURL, content.DefaultRetryConfig()),
	}, nil
}

// newArticleGenerator は設定に応じた記事生成元を返す。
// LLM_API_KEYが未設定の場合はテンプレートによる生成を使用する。
func newArticleGenerator(cfg *config.Config) content.ArticleGenerator {
	if !cfg.LLMEnabled() {
		return content.NewTemplateArticleGenerator()
	}
	return content.NewLLMArticleGenerator(
		&http.Client{Timeout: cfg.LLMTimeout},
		content.LLMConfig{
			Provider: cfg.LLMProvider,
			Model:    cfg.LLMModel,
			APIKey:   cfg.LLMAPIKey,
			APIURL:   cfg.LLMAPIURL,
		},
		content.DefaultRetryConfig(),
	)
}

// newRouter はControl APIのルーターを構築する。
func newRouter(cfg *config.Config, c *components, rl *middleware.RateLimiter) http.Handler {
	deps := &handler.RouterDeps{
		Logger:            logger.Component(slog.Default(), "http"),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		APIToken:          cfg.APIToken,
		RateLimiter:       rl,
		Metrics:           c.collector,

		ConfigService:  c.configService,
		PostService:    c.postService,
		Generator:      c.scheduler,
		SchedulerState: c.scheduler,

		MetricsHandler: metrics.Handler(c.registry),
	}
	// インメモリストアの場合はDBの疎通確認を行わない
	if c.db != nil {
		deps.HealthChecker = c.db
	}
	return handler.NewRouter(deps)
}

// runServe はAPIサーバーモードで起動する。
// Control APIと投稿スケジューラを同一プロセスで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.close()

	if cfg.APIToken == "" {
		slog.Warn("API_TOKEN is not set; the control API accepts unauthenticated requests")
	}

	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitGenerate))
	defer rl.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      newRouter(cfg, c, rl),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 30*time.Second, // POST /generate は記事生成を同期で待つ
		IdleTimeout:  60 * time.Second,
	}

	// 投稿スケジューラをバックグラウンドで起動
	driver := cadence.NewDriver(c.scheduler, cfg.TickInterval, logger.Component(slog.Default(), "driver"))
	driverDone := make(chan struct{})
	go func() {
		defer close(driverDone)
		driver.Start(ctx)
	}()

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.Duration("tick_interval", cfg.TickInterval),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
		slog.Info("shutting down API server...")
	case err := <-serverErr:
		cancel()
		<-driverDone
		return fmt.Errorf("server listen error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	cancel()
	<-driverDone

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker は投稿スケジューラのみを起動する。Control APIは公開しない。
// serveと同時に同じテナントで起動しないこと。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("tick_interval", cfg.TickInterval),
		slog.Duration("drift_tolerance", cfg.DriftTolerance),
	)

	// 投稿スケジューラをメインgoroutineで実行（ブロッキング）
	cadence.NewDriver(c.scheduler, cfg.TickInterval, logger.Component(slog.Default(), "driver")).Start(ctx)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はスキーマのマイグレーションを操作する。
// upは未適用分をすべて適用し、downは直近の1つを取り消し、versionは適用済みバージョンをログに出す。
func runMigrate(cfg *config.Config, action MigrateAction) error {
	if cfg.StorageDriver == config.StorageDriverMemory {
		slog.Info("in-memory storage does not need migrations")
		return nil
	}

	log := slog.With(
		slog.String("action", string(action)),
		slog.String("database_url", redactDatabaseURL(cfg.DatabaseURL)),
	)

	switch action {
	case MigrateDown:
		if err := database.RollbackMigration(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration rollback failed: %w", err)
		}
	case MigrateVersion:
	default:
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	status, err := database.CurrentMigration(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	log.Info("database schema version",
		slog.Bool("applied", status.Applied),
		slog.Uint64("version", uint64(status.Version)),
		slog.Bool("dirty", status.Dirty),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// redactDatabaseURL はログ出力用にデータベースURLのパスワードを伏せる。
// URLとして解釈できない場合は全体を伏せる。
func redactDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
