package repository

import (
	"context"

	"github.com/smallbiznis/catalogd/internal/webhook/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, webhook *domain.Webhook) error {
	return db.WithContext(ctx).Create(webhook).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Webhook, error) {
	var w domain.Webhook
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&w).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

func (r *repo) FindAll(ctx context.Context, db *gorm.DB) ([]domain.Webhook, error) {
	var items []domain.Webhook
	err := db.WithContext(ctx).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindActiveByEvent(ctx context.Context, db *gorm.DB, eventType string) ([]domain.Webhook, error) {
	var items []domain.Webhook
	err := db.WithContext(ctx).
		Where("event_type = ? AND is_active = ?", eventType, true).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, webhook *domain.Webhook) error {
	if webhook == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE webhooks
		 SET url = ?, event_type = ?, is_active = ?
		 WHERE id = ?`,
		webhook.URL,
		webhook.EventType,
		webhook.IsActive,
		webhook.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Exec(`DELETE FROM webhooks WHERE id = ?`, id).Error
}
