package entity

import (
	"time"

	"github.com/google/uuid"
)

type ReviewReport struct {
	Id         uuid.UUID
	SessionId  string
	GroupId    string
	Statuses   map[string]string
	Summary    string
	Documents  []string
	TokenTotal int64
	CostTotal  float64
	CreatedAt  time.Time
}
