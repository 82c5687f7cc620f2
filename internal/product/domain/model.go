package domain

import "time"

type Product struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	SKU         string    `json:"sku" gorm:"column:sku;type:text;not null;uniqueIndex:ux_products_sku"`
	Name        string    `json:"name" gorm:"type:text;not null"`
	Description string    `json:"description" gorm:"type:text;not null;default:''"`
	Active      bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Product) TableName() string { return "products" }
