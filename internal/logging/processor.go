package logging

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-logstore/internal/metrics"
	"go-logstore/internal/models"
	"go-logstore/internal/repositories"

	"go.uber.org/zap"
)

// RetentionPolicy bounds how much history the log store keeps. Zero
// disables the corresponding rule.
type RetentionPolicy struct {
	MaxAge     time.Duration
	MaxEntries int
	Interval   time.Duration
}

// RetentionResult reports what one retention pass removed.
type RetentionResult struct {
	ExpiredDeleted int64
	TrimmedDeleted int64
}

// RetentionProcessor periodically removes expired records and trims the
// store down to the newest MaxEntries records.
type RetentionProcessor struct {
	policy  RetentionPolicy
	logRepo repositories.LogRepository
	logger  *zap.Logger
	now     func() time.Time

	mu        sync.Mutex
	ticker    *time.Ticker
	stopChan  chan struct{}
	done      chan struct{}
	isRunning bool
}

// NewRetentionProcessor creates a new RetentionProcessor instance
func NewRetentionProcessor(policy RetentionPolicy, logRepo repositories.LogRepository, logger *zap.Logger) *RetentionProcessor {
	if policy.Interval <= 0 {
		policy.Interval = time.Hour
	}
	return &RetentionProcessor{
		policy:  policy,
		logRepo: logRepo,
		logger:  logger,
		now:     time.Now,
	}
}

// Start runs one pass immediately and then one per interval in a separate goroutine.
func (p *RetentionProcessor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isRunning {
		p.logger.Warn("Retention processor already running")
		return
	}
	p.ticker = time.NewTicker(p.policy.Interval)
	p.stopChan = make(chan struct{})
	p.done = make(chan struct{})
	p.isRunning = true
	go p.run(p.ticker, p.stopChan, p.done)
	p.logger.Info("Log retention processor started",
		zap.Duration("interval", p.policy.Interval),
		zap.Duration("max_age", p.policy.MaxAge),
		zap.Int("max_entries", p.policy.MaxEntries),
	)
}

// Stop signals the loop to terminate and waits for it to exit.
func (p *RetentionProcessor) Stop() {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		p.logger.Warn("Retention processor not running")
		return
	}
	p.logger.Info("Stopping log retention processor...")
	close(p.stopChan)
	p.ticker.Stop()
	done := p.done
	p.isRunning = false
	p.mu.Unlock()

	<-done
	p.logger.Info("Log retention processor stopped.")
}

func (p *RetentionProcessor) run(ticker *time.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	p.tick(stop)
	for {
		select {
		case <-ticker.C:
			p.tick(stop)
		case <-stop:
			p.logger.Debug("Received stop signal, exiting retention loop.")
			return
		}
	}
}

func (p *RetentionProcessor) tick(stop <-chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), p.policy.Interval)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	if _, err := p.RunOnce(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			p.logger.Info("Retention pass cancelled", zap.Error(err))
			return
		}
		p.logger.Error("Retention pass failed", zap.Error(err))
	}
}

// RunOnce applies the age rule and then the size rule.
func (p *RetentionProcessor) RunOnce(ctx context.Context) (RetentionResult, error) {
	var res RetentionResult

	if p.policy.MaxAge > 0 {
		cutoff := p.now().Add(-p.policy.MaxAge).UnixMilli()
		n, err := p.logRepo.DeleteOldLogs(ctx, cutoff)
		if err != nil {
			return res, err
		}
		res.ExpiredDeleted = n
		metrics.RetentionDeleted.WithLabelValues("max_age").Add(float64(n))
	}

	if p.policy.MaxEntries > 0 {
		n, err := p.trim(ctx)
		if err != nil {
			return res, err
		}
		res.TrimmedDeleted = n
		metrics.RetentionDeleted.WithLabelValues("max_entries").Add(float64(n))
	}

	if res.ExpiredDeleted > 0 || res.TrimmedDeleted > 0 {
		p.logger.Info("Applied log retention",
			zap.Int64("expired_deleted", res.ExpiredDeleted),
			zap.Int64("trimmed_deleted", res.TrimmedDeleted),
		)
	} else {
		p.logger.Debug("Log retention pass removed nothing")
	}
	return res, nil
}

// trim keeps the newest MaxEntries records. Records sharing the boundary
// timestamp are all kept, so the store may briefly hold a few extra.
func (p *RetentionProcessor) trim(ctx context.Context) (int64, error) {
	count, err := p.logRepo.GetCount(ctx)
	if err != nil {
		return 0, err
	}
	if count <= int64(p.policy.MaxEntries) {
		return 0, nil
	}
	boundary, err := p.logRepo.Query(ctx, models.QueryOptions{Offset: p.policy.MaxEntries - 1, Limit: 1})
	if err != nil {
		return 0, err
	}
	if len(boundary) == 0 {
		return 0, nil
	}
	return p.logRepo.DeleteOldLogs(ctx, boundary[0].Timestamp)
}
