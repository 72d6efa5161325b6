package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/beacon/internal/domain"
)

// Store keeps service records in process memory.
// Records are lost on restart; it backs tests and throwaway deployments.
type Store struct {
	mu      sync.RWMutex
	records map[int64]*domain.ServiceRecord // ID -> record
	names   map[string]int64                // Name -> ID
	order   []int64                         // insertion order
	lastID  int64
}

// New creates an empty memory store.
func New() *Store {
	return &Store{
		records: make(map[int64]*domain.ServiceRecord),
		names:   make(map[string]int64),
	}
}

// List returns a snapshot of all records in insertion order.
func (s *Store) List(_ context.Context) ([]domain.ServiceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.ServiceRecord, 0, len(s.order))
	for _, id := range s.order {
		records = append(records, *s.records[id])
	}
	return records, nil
}

// Get retrieves a record by ID.
func (s *Store) Get(_ context.Context, id int64) (domain.ServiceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return domain.ServiceRecord{}, fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
	}
	return *rec, nil
}

// Insert adds rec under the next ID unless its name is taken.
func (s *Store) Insert(_ context.Context, rec domain.ServiceRecord) (domain.ServiceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.names[rec.Name]; exists {
		return domain.ServiceRecord{}, fmt.Errorf("%w: %s", domain.ErrConflict, rec.Name)
	}

	s.lastID++
	rec.ID = s.lastID
	stored := rec
	s.records[rec.ID] = &stored
	s.names[rec.Name] = rec.ID
	s.order = append(s.order, rec.ID)

	return rec, nil
}

// UpdateStatus overwrites status and last update of an existing record.
func (s *Store) UpdateStatus(_ context.Context, id int64, status string, at time.Time) (domain.ServiceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return domain.ServiceRecord{}, fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
	}
	rec.Status = status
	rec.LastUpdate = at
	return *rec, nil
}

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }
