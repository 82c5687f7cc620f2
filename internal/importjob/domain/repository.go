package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, job *ImportJob) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*ImportJob, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id int64, fields map[string]any) error
}
