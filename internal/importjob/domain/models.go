package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Status is the import job lifecycle state. Transitions are monotonic:
// pending -> processing -> completed|failed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

type ImportJob struct {
	ID               int64          `json:"id" gorm:"primaryKey"`
	FileName         string         `json:"file_name" gorm:"type:text;not null"`
	Status           Status         `json:"status" gorm:"type:text;not null;default:'pending'"`
	TotalRecords     int            `json:"total_records" gorm:"not null;default:0"`
	ProcessedRecords int            `json:"processed_records" gorm:"not null;default:0"`
	Errors           datatypes.JSON `json:"errors" gorm:"type:jsonb"`
	TaskID           string         `json:"task_id" gorm:"type:text;not null;default:''"`
	CreatedAt        time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	CompletedAt      *time.Time     `json:"completed_at"`
}

func (ImportJob) TableName() string { return "import_jobs" }
