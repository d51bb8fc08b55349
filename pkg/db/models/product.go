package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the slice of the catalog needed to price cart lines.
type Product struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ShopID    uuid.UUID `gorm:"column:shop_id;type:uuid;not null"`
	Title     string    `gorm:"column:title;not null"`
	Price     int64     `gorm:"column:price;not null"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
