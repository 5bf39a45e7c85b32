package cadence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Ticker はティックを受け取るスケジューラのインターフェース。
type Ticker interface {
	OnTick(ctx context.Context, now time.Time) (TickResult, error)
}

// Driver は一定間隔でTickerのOnTickを呼び出す定期実行ドライバー。
// 起動直後に1回実行し、前のティックが実行中の間は次のティックをスキップする。
type Driver struct {
	ticker   Ticker
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewDriver はDriverの新しいインスタンスを生成する。
func NewDriver(ticker Ticker, interval time.Duration, logger *slog.Logger) *Driver {
	return &Driver{
		ticker:   ticker,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start はドライバーを起動し、コンテキストがキャンセルされるまでブロックする。
// 停止時は実行中のティックの完了を待つ。
func (d *Driver) Start(ctx context.Context) {
	cl := cronLogger{logger: d.logger}
	c := cron.New(cron.WithLogger(cl))
	job := cron.NewChain(
		cron.Recover(cl),
		cron.SkipIfStillRunning(cl),
	).Then(cron.FuncJob(func() { d.runOnce(ctx) }))
	c.Schedule(cron.Every(d.interval), job)

	d.logger.Info("投稿スケジューラを開始しました",
		slog.Duration("interval", d.interval),
	)

	c.Start()

	// 起動直後に1回実行
	job.Run()

	<-ctx.Done()
	<-c.Stop().Done()
	d.logger.Info("投稿スケジューラを停止しました")
}

func (d *Driver) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	result, err := d.ticker.OnTick(ctx, d.now())
	if err != nil {
		d.logger.Error("ティックの実行に失敗しました",
			slog.String("outcome", result.Outcome),
			slog.String("error", err.Error()),
		)
	}
}

// cronLogger はcron.Loggerをslogに接続するアダプター。
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", fmt.Sprint(err))...)
}
