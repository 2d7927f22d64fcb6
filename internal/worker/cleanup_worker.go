package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk/internal/service"
)

// Sweeper runs one cleanup pass.
type Sweeper interface {
	SweepFor(ctx context.Context, trigger string) (int, error)
}

// CleanupWorker runs the rating cleanup on an interval and shortly after
// every closure.
type CleanupWorker struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger

	base   context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	timers  map[*time.Timer]struct{}
	stopped bool
	wg      sync.WaitGroup
}

// NewCleanupWorker creates a worker. A non-positive interval disables the
// periodic pass; scheduled sweeps still run.
func NewCleanupWorker(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *CleanupWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &CleanupWorker{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		base:     base,
		cancel:   cancel,
		timers:   make(map[*time.Timer]struct{}),
	}
}

// Run sweeps every interval until ctx is done.
func (w *CleanupWorker) Run(ctx context.Context) error {
	if w.interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("cleanup worker started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ticker.C:
			w.sweep(ctx, service.TriggerInterval)
		case <-ctx.Done():
			w.logger.Info("cleanup worker stopped")
			return nil
		}
	}
}

// ScheduleSweep runs one sweep after delay. Calls after Stop are ignored.
func (w *CleanupWorker) ScheduleSweep(delay time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}

	w.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		defer w.wg.Done()
		w.mu.Lock()
		delete(w.timers, timer)
		w.mu.Unlock()
		w.sweep(w.base, service.TriggerClosure)
	})
	w.timers[timer] = struct{}{}
}

// Pending returns the number of scheduled sweeps not yet started.
func (w *CleanupWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.timers)
}

// Stop cancels scheduled sweeps and waits for running ones.
func (w *CleanupWorker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	for timer := range w.timers {
		if timer.Stop() {
			w.wg.Done()
		}
		delete(w.timers, timer)
	}
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
}

func (w *CleanupWorker) sweep(ctx context.Context, trigger string) {
	closed, err := w.sweeper.SweepFor(ctx, trigger)
	if err != nil {
		w.logger.Error("rating cleanup failed", zap.String("trigger", trigger), zap.Error(err))
		return
	}
	if closed > 0 {
		w.logger.Info("rating cleanup closed tickets",
			zap.String("trigger", trigger),
			zap.Int("closed", closed))
	}
}
