package sqlstore

import (
	"time"

	"github.com/MrSnakeDoc/beacon/internal/domain"
)

// serviceModel is the gorm mapping of a service record.
type serviceModel struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name       string    `gorm:"column:name;not null;uniqueIndex"`
	Status     string    `gorm:"column:status;index"`
	Period     int       `gorm:"column:period;not null;default:0"`
	LastUpdate time.Time `gorm:"column:last_update"`
}

// TableName specifies the table name for GORM
func (serviceModel) TableName() string {
	return "services"
}

func (m serviceModel) toDomain() domain.ServiceRecord {
	return domain.ServiceRecord{
		ID:         m.ID,
		Name:       m.Name,
		Status:     m.Status,
		Period:     m.Period,
		LastUpdate: m.LastUpdate.UTC(),
	}
}

func fromDomain(rec domain.ServiceRecord) serviceModel {
	return serviceModel{
		ID:         rec.ID,
		Name:       rec.Name,
		Status:     rec.Status,
		Period:     rec.Period,
		LastUpdate: rec.LastUpdate.UTC(),
	}
}
