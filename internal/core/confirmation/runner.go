package confirmation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency  = 4
	defaultRetryDelay   = time.Minute
	defaultRetryAttempt = 10
)

// Sender は確認依頼を外部のメッセージ配信へ渡します。失敗時の再送は行いません。
type Sender interface {
	Send(ctx context.Context, req Request) error
}

// SweepClaimer は現地日付ごとの発火権を取得します。再起動や複数プロセスでの二重発火を防ぎます。
type SweepClaimer interface {
	ClaimSweep(ctx context.Context, day time.Time, firedAt time.Time) (bool, error)
}

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// Report は一回の配信結果です。
type Report struct {
	Day       time.Time
	Claimed   bool
	Requested int
	Delivered int
	Failed    int
}

// Runner は毎日決まった現地時刻に確認依頼を送ります。
type Runner struct {
	sweeper     *Sweeper
	claimer     SweepClaimer
	sender      Sender
	clock       Clock
	logger      *zap.Logger
	concurrency int
	retryDelay  time.Duration
	retries     int
	after       func(time.Duration) <-chan time.Time
	mu          sync.Mutex
}

// RunnerOption は Runner の任意設定です。
type RunnerOption func(*Runner)

// WithClock は時刻の取得元を差し替えます。
func WithClock(c Clock) RunnerOption {
	return func(r *Runner) {
		r.clock = c
	}
}

// WithConcurrency は同時配信数を設定します。
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithRetry は抽出に失敗した発火の再試行間隔と回数を設定します。
func WithRetry(delay time.Duration, attempts int) RunnerOption {
	return func(r *Runner) {
		if delay > 0 {
			r.retryDelay = delay
		}
		if attempts >= 0 {
			r.retries = attempts
		}
	}
}

// WithTimer は待機の実装を差し替えます。
func WithTimer(after func(time.Duration) <-chan time.Time) RunnerOption {
	return func(r *Runner) {
		r.after = after
	}
}

// NewRunner は Runner を生成します。
func NewRunner(sweeper *Sweeper, claimer SweepClaimer, sender Sender, logger *zap.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		sweeper:     sweeper,
		claimer:     claimer,
		sender:      sender,
		clock:       realClock{},
		logger:      logger,
		concurrency: defaultConcurrency,
		retryDelay:  defaultRetryDelay,
		retries:     defaultRetryAttempt,
		after:       time.After,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run はコンテキストがキャンセルされるまで毎日発火します。
func (r *Runner) Run(ctx context.Context) error {
	settings := r.sweeper.Settings()
	for {
		now := r.clock.Now()
		next := NextFireTime(now, settings.Hour, settings.Minute, settings.Location)
		r.logger.Info("next confirmation sweep scheduled", zap.Time("at", next))

		select {
		case <-ctx.Done():
			return nil
		case <-r.after(next.Sub(now)):
		}

		if err := r.fireWithRetry(ctx, next); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Error("confirmation sweep failed", zap.Time("fired_at", next), zap.Error(err))
		}
	}
}

// fireWithRetry は失敗した Fire を同じ発火時刻で retries 回まで再試行します。
func (r *Runner) fireWithRetry(ctx context.Context, firedAt time.Time) error {
	var err error
	for attempt := 0; ; attempt++ {
		if _, err = r.Fire(ctx, firedAt); err == nil {
			return nil
		}
		if attempt >= r.retries {
			return err
		}
		r.logger.Warn("confirmation sweep failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", r.retryDelay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.after(r.retryDelay):
		}
	}
}

// Fire は確認依頼を抽出し、firedAt の現地日付の発火権を取得できた場合のみ配信します。
// 抽出に失敗した場合は発火権を取得しないので、同じ日に再度 Fire できます。
func (r *Runner) Fire(ctx context.Context, firedAt time.Time) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	settings := r.sweeper.Settings()
	local := firedAt.In(settings.Location)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	requests, err := r.sweeper.Sweep(ctx, firedAt)
	if err != nil {
		return nil, err
	}

	report := &Report{Day: day}
	if r.claimer != nil {
		claimed, err := r.claimer.ClaimSweep(ctx, day, firedAt)
		if err != nil {
			return nil, err
		}
		if !claimed {
			r.logger.Info("confirmation sweep already fired", zap.String("day", day.Format(dayLayout)))
			return report, nil
		}
	}
	report.Claimed = true

	delivered, failed := r.Deliver(ctx, requests)
	report.Requested = len(requests)
	report.Delivered = delivered
	report.Failed = failed
	return report, nil
}

// Sweep は配信せずに確認依頼を抽出します。
func (r *Runner) Sweep(ctx context.Context, asOf time.Time) ([]Request, error) {
	return r.sweeper.Sweep(ctx, asOf)
}

// Deliver は確認依頼を同時実行数を制限して送ります。個々の失敗は記録のみ行います。
func (r *Runner) Deliver(ctx context.Context, requests []Request) (delivered, failed int) {
	var (
		g         errgroup.Group
		okCount   atomic.Int64
		failCount atomic.Int64
	)
	g.SetLimit(r.concurrency)

	for _, req := range requests {
		req := req
		g.Go(func() error {
			if err := r.sender.Send(ctx, req); err != nil {
				failCount.Add(1)
				r.logger.Warn("confirmation request not delivered",
					zap.String("shift_id", req.ShiftID),
					zap.String("operator_id", req.OperatorID),
					zap.Error(err),
				)
				return nil
			}
			okCount.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return int(okCount.Load()), int(failCount.Load())
}

// NextFireTime は now より後で最初に訪れる loc の hour:minute を返します。
// 夏時間の切り替えで存在しない時刻は time.Date の正規化に従います。
func NextFireTime(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	candidate := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !candidate.After(now) {
		candidate = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return candidate
}
