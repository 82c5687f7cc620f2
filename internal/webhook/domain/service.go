package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	List(ctx context.Context) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error

	// Test fires the webhook's own event with resource id "test".
	Test(ctx context.Context, id string) error
}

type CreateRequest struct {
	URL       string `json:"url"`
	EventType string `json:"event_type"`
	IsActive  *bool  `json:"is_active"`
}

type UpdateRequest struct {
	ID        string
	URL       *string `json:"url"`
	EventType *string `json:"event_type"`
	IsActive  *bool   `json:"is_active"`
}

type Response struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	EventType string    `json:"event_type"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrNotFound     = errors.New("not_found")
	ErrInvalidID    = errors.New("invalid_id")
	ErrInvalidURL   = errors.New("invalid_url")
	ErrInvalidEvent = errors.New("invalid_event")
)
