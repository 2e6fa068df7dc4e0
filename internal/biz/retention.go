package biz

import (
	"context"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

const defaultRetentionInterval = 6 * time.Hour

// RetentionConfig controls the background click-event cleanup.
// Days <= 0 disables the worker; events then only leave through the
// administrative cleanup endpoint.
type RetentionConfig struct {
	Days     int
	Interval time.Duration
}

// RetentionWorker periodically deletes click events older than the
// retention window.
type RetentionWorker struct {
	uc       *AnalyticsUsecase
	days     int
	interval time.Duration
	log      *log.Helper

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRetentionWorker creates a RetentionWorker.
func NewRetentionWorker(cfg RetentionConfig, uc *AnalyticsUsecase, logger log.Logger) *RetentionWorker {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultRetentionInterval
	}
	return &RetentionWorker{
		uc:       uc,
		days:     cfg.Days,
		interval: interval,
		log:      log.NewHelper(logger),
	}
}

// Start launches the cleanup loop. The first pass runs immediately.
func (w *RetentionWorker) Start(ctx context.Context) {
	if w.days <= 0 {
		w.log.Info("click retention disabled")
		return
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
	w.log.Infof("click retention started: window %d days, every %s", w.days, w.interval)
}

// Stop stops the cleanup loop.
func (w *RetentionWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *RetentionWorker) run(ctx context.Context) {
	defer w.wg.Done()

	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *RetentionWorker) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -w.days)
	if _, err := w.uc.DeleteOlderThan(ctx, cutoff); err != nil {
		w.log.Errorf("retention sweep failed: %v", err)
	}
}
