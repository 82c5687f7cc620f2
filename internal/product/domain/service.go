package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Service interface {
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	Get(ctx context.Context, id string) (*Response, error)
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error

	// Upsert applies one import record inside the caller's transaction.
	// The sku match is case-insensitive; the storage uniqueness
	// constraint is the authority under concurrent writers, and a lost
	// race surfaces as ErrDuplicateSKU.
	Upsert(ctx context.Context, tx *gorm.DB, req UpsertRequest) (*Product, bool, error)

	// BulkDelete removes every product and reports how many were removed.
	BulkDelete(ctx context.Context) (int64, error)
}

type ListRequest struct {
	SKU      string
	Name     string
	Active   *bool
	Page     int
	PageSize int
}

type CreateRequest struct {
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

type UpdateRequest struct {
	ID          string
	SKU         *string `json:"sku"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

type UpsertRequest struct {
	SKU         string
	Name        string
	Description string
}

type Response struct {
	ID          string    `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ListResponse struct {
	Products    []Response `json:"products"`
	TotalCount  int64      `json:"total_count"`
	TotalPages  int        `json:"total_pages"`
	CurrentPage int        `json:"current_page"`
}

var (
	ErrNotFound     = errors.New("not_found")
	ErrInvalidID    = errors.New("invalid_id")
	ErrInvalidSKU   = errors.New("invalid_sku")
	ErrInvalidName  = errors.New("invalid_name")
	ErrDuplicateSKU = errors.New("duplicate_sku")
)
