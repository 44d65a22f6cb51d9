package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReviewReport archives the outcome of one completed check group.
type ReviewReport struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID  string         `gorm:"type:varchar(64);not null;index"`
	GroupID    string         `gorm:"type:varchar(64);not null;index"`
	Statuses   datatypes.JSON `gorm:"type:jsonb;not null"`
	Summary    string         `gorm:"type:text"`
	Documents  datatypes.JSON `gorm:"type:jsonb"`
	TokenTotal int64          `gorm:"not null;default:0"`
	CostTotal  float64        `gorm:"type:decimal(12,6);not null;default:0"`
	CreatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (ReviewReport) TableName() string {
	return "review_reports"
}
