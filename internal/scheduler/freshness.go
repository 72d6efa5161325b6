package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/beacon/internal/domain"
	"github.com/MrSnakeDoc/beacon/internal/logger"
	"github.com/MrSnakeDoc/beacon/internal/metrics"
)

// DefaultSweepInterval is used when the monitor is created with a zero interval.
const DefaultSweepInterval = 30 * time.Second

// RecordSource is the read side of the registry.
type RecordSource interface {
	List(ctx context.Context) ([]domain.ServiceRecord, error)
	Now() time.Time
}

// Summary is the outcome of one sweep.
type Summary struct {
	Total int
	Fresh int
	OK    int
}

// FreshnessMonitor periodically evaluates every service, publishes the
// totals as gauges and logs services that go stale or recover.
type FreshnessMonitor struct {
	source   RecordSource
	metrics  *metrics.Registry
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once

	mu     sync.Mutex
	fresh  map[int64]bool // last observed freshness per service id
	last   Summary
	lastAt time.Time
}

// NewFreshnessMonitor creates a new freshness monitor. m may be nil.
func NewFreshnessMonitor(
	source RecordSource,
	m *metrics.Registry,
	log logger.Logger,
	interval time.Duration,
) *FreshnessMonitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &FreshnessMonitor{
		source:   source,
		metrics:  m,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
		fresh:    make(map[int64]bool),
	}
}

// Start runs a sweep immediately, then every interval until Stop or ctx is done.
func (fm *FreshnessMonitor) Start(ctx context.Context) error {
	if _, err := fm.Sweep(ctx); err != nil {
		fm.logger.Warn("initial freshness sweep failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(fm.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := fm.Sweep(ctx); err != nil {
					fm.logger.Error("freshness sweep failed",
						logger.Error(err))
				}
			case <-fm.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the monitor. Safe to call more than once.
func (fm *FreshnessMonitor) Stop() {
	fm.stopOnce.Do(func() { close(fm.stopCh) })
}

// Sweep evaluates every service once.
func (fm *FreshnessMonitor) Sweep(ctx context.Context) (Summary, error) {
	records, err := fm.source.List(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list services: %w", err)
	}

	now := fm.source.Now()
	sum := Summary{Total: len(records)}

	fm.mu.Lock()
	seen := make(map[int64]bool, len(records))
	for _, rec := range records {
		fresh := rec.IsFresh(now)
		if fresh {
			sum.Fresh++
		}
		if rec.IsOK() {
			sum.OK++
		}

		prev, known := fm.fresh[rec.ID]
		if known && prev != fresh {
			fm.logTransition(rec, fresh, now)
		}
		fm.fresh[rec.ID] = fresh
		seen[rec.ID] = true
	}
	for id := range fm.fresh {
		if !seen[id] {
			delete(fm.fresh, id)
		}
	}
	fm.last, fm.lastAt = sum, now
	fm.mu.Unlock()

	if fm.metrics != nil {
		fm.metrics.Services.Set(float64(sum.Total))
		fm.metrics.ServicesFresh.Set(float64(sum.Fresh))
		fm.metrics.ServicesOK.Set(float64(sum.OK))
	}

	fm.logger.Debug("freshness sweep completed",
		logger.Int("services", sum.Total),
		logger.Int("fresh", sum.Fresh),
		logger.Int("ok", sum.OK))

	return sum, nil
}

// LastSweep returns the most recent successful sweep and when it ran.
// ok is false until the first sweep completes.
func (fm *FreshnessMonitor) LastSweep() (sum Summary, at time.Time, ok bool) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return fm.last, fm.lastAt, !fm.lastAt.IsZero()
}

func (fm *FreshnessMonitor) logTransition(rec domain.ServiceRecord, fresh bool, now time.Time) {
	if fresh {
		fm.logger.Info("service reporting again",
			logger.ServiceID(rec.ID),
			logger.ServiceName(rec.Name))
		return
	}
	fm.logger.Warn("service went stale",
		logger.ServiceID(rec.ID),
		logger.ServiceName(rec.Name),
		logger.Int("period", rec.Period),
		logger.Duration("silent_for", now.Sub(rec.LastUpdate)))
}
