// Package store defines the persistence contract for service records.
//
// Drivers live in sub-packages (memory, sqlstore, redisstore) and the cached
// package decorates any of them with an in-process read cache.
package store

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/beacon/internal/domain"
)

// Store persists service records.
//
// Implementations must return domain.ErrNotFound for unknown ids and
// domain.ErrConflict when Insert sees an existing name. Any other error is
// an I/O failure of the backend.
type Store interface {
	// List returns every record ordered by id.
	List(ctx context.Context) ([]domain.ServiceRecord, error)

	// Get returns the record with the given id.
	Get(ctx context.Context, id int64) (domain.ServiceRecord, error)

	// Insert assigns the next id to rec and stores it unless a record with
	// the same name exists. The returned record carries the new id.
	Insert(ctx context.Context, rec domain.ServiceRecord) (domain.ServiceRecord, error)

	// UpdateStatus atomically overwrites status and last update time.
	UpdateStatus(ctx context.Context, id int64, status string, at time.Time) (domain.ServiceRecord, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Driver names accepted by configuration.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)
