package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, webhook *Webhook) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Webhook, error)
	FindAll(ctx context.Context, db *gorm.DB) ([]Webhook, error)
	FindActiveByEvent(ctx context.Context, db *gorm.DB, eventType string) ([]Webhook, error)
	Update(ctx context.Context, db *gorm.DB, webhook *Webhook) error
	Delete(ctx context.Context, db *gorm.DB, id int64) error
}
