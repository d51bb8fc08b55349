package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Affiliate is a Team reseller account owning a promo code.
type Affiliate struct {
	ID                  uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID              *uuid.UUID            `gorm:"column:user_id;type:uuid;uniqueIndex"`
	DisplayName         string                `gorm:"column:display_name;not null"`
	PromoCode           string                `gorm:"column:promo_code;not null;uniqueIndex"`
	Status              enums.AffiliateStatus `gorm:"column:status;not null;default:'active'"`
	Rank                int                   `gorm:"column:rank;not null;default:1"`
	CumulativeSales     int                   `gorm:"column:cumulative_sales;not null;default:0"`
	TotalCommission     int64                 `gorm:"column:total_commission;not null;default:0"`
	AvailableCommission int64                 `gorm:"column:available_commission;not null;default:0"`
	CreatedAt           time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
