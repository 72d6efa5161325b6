// Package sqlstore persists service records in a relational database through gorm.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/MrSnakeDoc/beacon/internal/domain"
	"github.com/MrSnakeDoc/beacon/internal/logger"
	"github.com/MrSnakeDoc/beacon/internal/store"
)

// Store is a gorm-backed record store.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to the database identified by driver ("sqlite" or "postgres")
// and dsn, then migrates the services table.
// For sqlite the dsn is a file path such as "monitoring.db".
func Open(driver, dsn string, log logger.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case store.DriverSQLite:
		dialector = sqlite.Open(dsn)
	case store.DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if driver == store.DriverSQLite {
		// sqlite allows a single writer; one connection avoids "database is locked".
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	s, err := New(db)
	if err != nil {
		return nil, err
	}

	log.Info("connected to sql store",
		logger.String("driver", driver))
	return s, nil
}

// New wraps an existing gorm handle and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&serviceModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate services table: %w", err)
	}
	return &Store{db: db}, nil
}

// List returns all records ordered by id.
func (s *Store) List(ctx context.Context) ([]domain.ServiceRecord, error) {
	var models []serviceModel
	if err := s.db.WithContext(ctx).Order("id asc").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	records := make([]domain.ServiceRecord, 0, len(models))
	for _, m := range models {
		records = append(records, m.toDomain())
	}
	return records, nil
}

// Get retrieves a record by id.
func (s *Store) Get(ctx context.Context, id int64) (domain.ServiceRecord, error) {
	var m serviceModel
	err := s.db.WithContext(ctx).First(&m, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ServiceRecord{}, fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
		}
		return domain.ServiceRecord{}, fmt.Errorf("failed to fetch service: %w", err)
	}
	return m.toDomain(), nil
}

// Insert creates rec unless its name exists. The unique index on name
// catches writers from other processes that race past the lookup.
func (s *Store) Insert(ctx context.Context, rec domain.ServiceRecord) (domain.ServiceRecord, error) {
	m := fromDomain(rec)
	m.ID = 0

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&serviceModel{}).Where("name = ?", m.Name).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check service name: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", domain.ErrConflict, m.Name)
		}
		if err := tx.Create(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %s", domain.ErrConflict, m.Name)
			}
			return fmt.Errorf("failed to create service: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.ServiceRecord{}, err
	}
	return m.toDomain(), nil
}

// UpdateStatus overwrites status and last_update in one transaction.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status string, at time.Time) (domain.ServiceRecord, error) {
	var m serviceModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
			}
			return fmt.Errorf("failed to fetch service: %w", err)
		}

		at = at.UTC()
		err := tx.Model(&m).Updates(map[string]any{
			"status":      status,
			"last_update": at,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update service status: %w", err)
		}
		m.Status = status
		m.LastUpdate = at
		return nil
	})
	if err != nil {
		return domain.ServiceRecord{}, err
	}
	return m.toDomain(), nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql handle: %w", err)
	}
	return sqlDB.Close()
}
