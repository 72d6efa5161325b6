// Package registry owns the set of service records and enforces their
// invariants: unique names, immutable identity fields, and last update times
// that never move backwards.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/beacon/internal/domain"
	"github.com/MrSnakeDoc/beacon/internal/logger"
	"github.com/MrSnakeDoc/beacon/internal/metrics"
	"github.com/MrSnakeDoc/beacon/internal/store"
)

// Registry is the only writer to the record store.
//
// Writes are serialized by mu so that the name check and insert of Register,
// and the read-modify-write of UpdateStatus, cannot interleave. Reads go
// straight to the store.
type Registry struct {
	store   store.Store
	logger  logger.Logger
	metrics *metrics.Registry
	now     func() time.Time

	mu sync.Mutex
}

// Option customizes a Registry.
type Option func(*Registry)

// WithClock overrides time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithMetrics records operation counters and store latencies in m.
func WithMetrics(m *metrics.Registry) Option {
	return func(r *Registry) { r.metrics = m }
}

// New creates a Registry owning st.
func New(st store.Store, log logger.Logger, opts ...Option) *Registry {
	r := &Registry{
		store:  st,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Now returns the registry clock's current time in UTC.
func (r *Registry) Now() time.Time {
	return r.now().UTC()
}

// IsFresh reports whether rec's last report is within its period at now.
func IsFresh(rec domain.ServiceRecord, now time.Time) bool {
	return domain.IsFresh(rec, now)
}

// List returns every record in insertion order.
func (r *Registry) List(ctx context.Context) ([]domain.ServiceRecord, error) {
	defer r.observe("list", time.Now())

	records, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	if records == nil {
		records = []domain.ServiceRecord{}
	}
	return records, nil
}

// Views returns every record with its status and freshness evaluated now.
func (r *Registry) Views(ctx context.Context) ([]domain.ServiceView, error) {
	records, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	now := r.Now()
	views := make([]domain.ServiceView, 0, len(records))
	for _, rec := range records {
		views = append(views, domain.NewView(rec, now))
	}
	return views, nil
}

// Get returns the record with the given id or domain.ErrNotFound.
func (r *Registry) Get(ctx context.Context, id int64) (domain.ServiceRecord, error) {
	defer r.observe("get", time.Now())

	rec, err := r.store.Get(ctx, id)
	if err != nil {
		return domain.ServiceRecord{}, err
	}
	return rec, nil
}

// Register creates a service with status "OK" and returns its id.
//
// It fails with domain.ErrInvalidInput for an empty name or negative period
// and with domain.ErrConflict when the name is already registered.
func (r *Registry) Register(ctx context.Context, name string, period int) (int64, error) {
	id, err := r.register(ctx, name, period)
	r.count(r.registrations(), err)
	return id, err
}

func (r *Registry) register(ctx context.Context, name string, period int) (int64, error) {
	if err := domain.ValidateName(name); err != nil {
		return 0, err
	}
	if err := domain.ValidatePeriod(period); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	defer r.observe("insert", time.Now())
	created, err := r.store.Insert(ctx, domain.ServiceRecord{
		Name:       name,
		Status:     domain.StatusOK,
		Period:     period,
		LastUpdate: r.Now(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			r.logger.Debug("registration rejected, name taken",
				logger.ServiceName(name))
		}
		return 0, err
	}

	r.logger.Info("service registered",
		logger.ServiceID(created.ID),
		logger.ServiceName(created.Name),
		logger.Int("period", created.Period))

	return created.ID, nil
}

// UpdateStatus overwrites the status of service id and stamps it with the
// current time. Name and period are left untouched.
func (r *Registry) UpdateStatus(ctx context.Context, id int64, status string) (domain.ServiceRecord, error) {
	rec, err := r.updateStatus(ctx, id, status)
	r.count(r.statusUpdates(), err)
	return rec, err
}

func (r *Registry) updateStatus(ctx context.Context, id int64, status string) (domain.ServiceRecord, error) {
	if status == "" {
		return domain.ServiceRecord{}, fmt.Errorf("%w: status is required", domain.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.Get(ctx, id)
	if err != nil {
		return domain.ServiceRecord{}, err
	}

	// Keep last_update monotonic if the wall clock stepped back.
	at := r.Now()
	if at.Before(current.LastUpdate) {
		at = current.LastUpdate
	}

	defer r.observe("update", time.Now())
	updated, err := r.store.UpdateStatus(ctx, id, status, at)
	if err != nil {
		return domain.ServiceRecord{}, err
	}

	if updated.Status != current.Status {
		r.logger.Info("service status changed",
			logger.ServiceID(id),
			logger.ServiceName(updated.Name),
			logger.String("from", current.Status),
			logger.String("to", updated.Status))
	} else {
		r.logger.Debug("service status refreshed",
			logger.ServiceID(id),
			logger.ServiceName(updated.Name))
	}

	return updated, nil
}

// Ping checks that the record store is reachable.
func (r *Registry) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func (r *Registry) observe(op string, start time.Time) {
	if r.metrics == nil {
		return
	}
	r.metrics.StoreOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (r *Registry) registrations() func(string) {
	if r.metrics == nil {
		return nil
	}
	return func(result string) { r.metrics.RegistrationsTotal.WithLabelValues(result).Inc() }
}

func (r *Registry) statusUpdates() func(string) {
	if r.metrics == nil {
		return nil
	}
	return func(result string) { r.metrics.StatusUpdatesTotal.WithLabelValues(result).Inc() }
}

func (r *Registry) count(inc func(string), err error) {
	if inc == nil {
		return
	}
	inc(ResultLabel(err))
}

// ResultLabel classifies err for metrics and access logs.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
