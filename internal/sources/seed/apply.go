package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/beacon/internal/domain"
	"github.com/MrSnakeDoc/beacon/internal/logger"
)

// Registrar is the part of the registry the seeder needs.
type Registrar interface {
	Register(ctx context.Context, name string, period int) (int64, error)
}

// Result summarizes a seeding run.
type Result struct {
	Registered int
	Existing   int
}

// Apply registers every entry of file. Names that are already registered
// are skipped, so applying the same file twice is harmless.
func Apply(ctx context.Context, reg Registrar, file *File, log logger.Logger) (Result, error) {
	var res Result
	for _, entry := range file.Services {
		id, err := reg.Register(ctx, entry.Name, entry.Period)
		switch {
		case err == nil:
			res.Registered++
			log.Info("seeded service",
				logger.ServiceName(entry.Name),
				logger.ServiceID(id),
				logger.Int("period", entry.Period))
		case errors.Is(err, domain.ErrConflict):
			res.Existing++
			log.Debug("seed service already registered",
				logger.ServiceName(entry.Name))
		default:
			return res, fmt.Errorf("failed to seed service %s: %w", entry.Name, err)
		}
	}
	return res, nil
}
