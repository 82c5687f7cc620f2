package repository

import (
	"context"

	"github.com/smallbiznis/catalogd/internal/importjob/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, job *domain.ImportJob) error {
	return db.WithContext(ctx).Create(job).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.ImportJob, error) {
	var job domain.ImportJob
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&job).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id int64, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.ImportJob{}).
		Where("id = ?", id).
		Updates(fields).Error
}
