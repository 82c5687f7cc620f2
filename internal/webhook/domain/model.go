package domain

import "time"

type Webhook struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	URL       string    `json:"url" gorm:"type:text;not null"`
	EventType string    `json:"event_type" gorm:"type:text;not null;index:ix_webhooks_event_type"`
	IsActive  bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Webhook) TableName() string { return "webhooks" }
