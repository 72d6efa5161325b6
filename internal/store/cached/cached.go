// Package cached wraps a store.Store with an in-process read cache for Get.
package cached

import (
	"context"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/MrSnakeDoc/beacon/internal/domain"
	"github.com/MrSnakeDoc/beacon/internal/metrics"
	"github.com/MrSnakeDoc/beacon/internal/store"
)

// Store caches records by id. Writes go to the inner store first and then
// refresh the cached entry. Reads only fill missing entries, so a read that
// raced a write never replaces the written record.
type Store struct {
	inner   store.Store
	cache   *cache.Cache
	ttl     time.Duration
	metrics *metrics.Registry
}

var _ store.Store = (*Store)(nil)

// New decorates inner with a cache whose entries expire after ttl.
// m may be nil.
func New(inner store.Store, ttl time.Duration, m *metrics.Registry) *Store {
	return &Store{
		inner:   inner,
		cache:   cache.New(ttl, 2*ttl),
		ttl:     ttl,
		metrics: m,
	}
}

// List always reads the inner store and leaves the cache untouched.
func (s *Store) List(ctx context.Context) ([]domain.ServiceRecord, error) {
	return s.inner.List(ctx)
}

func (s *Store) Get(ctx context.Context, id int64) (domain.ServiceRecord, error) {
	if v, found := s.cache.Get(key(id)); found {
		s.hit()
		return v.(domain.ServiceRecord), nil
	}
	s.miss()

	rec, err := s.inner.Get(ctx, id)
	if err != nil {
		return domain.ServiceRecord{}, err
	}
	// Add fails when a write cached a newer record meanwhile.
	_ = s.cache.Add(key(id), rec, s.ttl)
	return rec, nil
}

func (s *Store) Insert(ctx context.Context, rec domain.ServiceRecord) (domain.ServiceRecord, error) {
	created, err := s.inner.Insert(ctx, rec)
	if err != nil {
		return domain.ServiceRecord{}, err
	}
	s.cache.Set(key(created.ID), created, s.ttl)
	return created, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id int64, status string, at time.Time) (domain.ServiceRecord, error) {
	updated, err := s.inner.UpdateStatus(ctx, id, status, at)
	if err != nil {
		// The write may or may not have landed; drop the entry.
		s.cache.Delete(key(id))
		return domain.ServiceRecord{}, err
	}
	s.cache.Set(key(id), updated, s.ttl)
	return updated, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.inner.Ping(ctx) }

// Close flushes the cache and closes the inner store.
func (s *Store) Close() error {
	s.cache.Flush()
	return s.inner.Close()
}

func (s *Store) hit() {
	if s.metrics != nil {
		s.metrics.CacheHitsTotal.Inc()
	}
}

func (s *Store) miss() {
	if s.metrics != nil {
		s.metrics.CacheMissesTotal.Inc()
	}
}

func key(id int64) string {
	return strconv.FormatInt(id, 10)
}
