package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is a placed storefront order. Amounts are whole DZD.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber     string                `gorm:"column:order_number;not null;uniqueIndex"`
	BuyerID         *uuid.UUID            `gorm:"column:buyer_id;type:uuid"`
	Subtotal        int64                 `gorm:"column:subtotal;not null"`
	DiscountAmount  int64                 `gorm:"column:discount_amount;not null;default:0"`
	ShippingCost    int64                 `gorm:"column:shipping_cost;not null;default:0"`
	TotalAmount     int64                 `gorm:"column:total_amount;not null"`
	PromoCode       *string               `gorm:"column:promo_code"`
	AffiliateID     *uuid.UUID            `gorm:"column:affiliate_id;type:uuid"`
	PaymentMethod   enums.PaymentMethod   `gorm:"column:payment_method;not null"`
	DeliveryType    enums.DeliveryType    `gorm:"column:delivery_type;not null"`
	Status          enums.OrderStatus     `gorm:"column:status;not null;default:'pending'"`
	ShippingAddress types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;not null"`
	// IdempotencyKey is "user:<id>:<key>" or "session:<id>:<key>".
	IdempotencyKey  string                `gorm:"column:idempotency_key;not null;uniqueIndex"`
	LineItems       []OrderLineItem       `gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
