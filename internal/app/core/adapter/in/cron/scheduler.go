package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-clients/internal/app/metrics"
)

// AccrualRunner 每次排程執行的計息工作
type AccrualRunner interface {
	Run(ctx context.Context) (usecase.RunReport, error)
}

// Scheduler 以固定間隔觸發計息，上一輪尚未結束時跳過本輪
type Scheduler struct {
	cron     *cron.Cron
	runner   AccrualRunner
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// Option 定義 Scheduler 的配置選項
type Option func(*Scheduler)

// WithRunTimeout 單輪計息的最長執行時間，0 表示不限制
func WithRunTimeout(timeout time.Duration) Option {
	return func(s *Scheduler) {
		s.timeout = timeout
	}
}

// NewScheduler 建立排程器，interval 必須是整數秒 (cron.Every 會捨去秒以下的部分)
func NewScheduler(runner AccrualRunner, interval time.Duration, logger *zap.Logger, opts ...Option) (*Scheduler, error) {
	if interval < time.Second {
		return nil, fmt.Errorf("accrual interval must be at least 1s, got %s", interval)
	}
	if interval%time.Second != 0 {
		return nil, fmt.Errorf("accrual interval must be a whole number of seconds, got %s", interval)
	}
	s := &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger.Named("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}

	cl := cronLogger{s.logger.Sugar()}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		s.RunOnce(s.ctx)
	}))
	return s, nil
}

// Start 開始排程 (非阻塞)
func (s *Scheduler) Start() {
	s.logger.Info("accrual scheduler started", zap.Duration("interval", s.interval))
	s.cron.Start()
}

// Stop 停止排程並取消執行中的計息，等待其結束或 ctx 到期
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		s.logger.Info("accrual scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce 執行一輪計息並記錄結果
func (s *Scheduler) RunOnce(ctx context.Context) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	report, err := s.runner.Run(ctx)
	elapsed := time.Since(start)
	metrics.RecordAccrualRun(elapsed, err == nil)

	fields := []zap.Field{
		zap.Int("processed", report.Processed),
		zap.Int("accrued", report.Accrued),
		zap.Int("capped", report.Capped),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", elapsed),
	}
	if err != nil {
		s.logger.Error("accrual run finished with errors", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Info("accrual run finished", fields...)
}

// cronLogger 將 cron 內部日誌轉給 zap
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
