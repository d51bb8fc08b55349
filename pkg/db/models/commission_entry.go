package models

import (
	"time"

	"github.com/google/uuid"
)

// CommissionEntry records the commission credited to an affiliate for one order.
type CommissionEntry struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	AffiliateID uuid.UUID `gorm:"column:affiliate_id;type:uuid;not null"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Rank        int       `gorm:"column:rank;not null"`
	RatePercent int       `gorm:"column:rate_percent;not null"`
	BaseAmount  int64     `gorm:"column:base_amount;not null"`
	Amount      int64     `gorm:"column:amount;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
