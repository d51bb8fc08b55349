package payloads

import "github.com/google/uuid"

// OrderCreatedEvent is emitted in the checkout transaction for every placed order.
// Amounts are whole DZD.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID  `json:"order_id"`
	OrderNumber string     `json:"order_number"`
	BuyerID     *uuid.UUID `json:"buyer_id,omitempty"`
	AffiliateID *uuid.UUID `json:"affiliate_id,omitempty"`
	PromoCode   *string    `json:"promo_code,omitempty"`
	Subtotal    int64      `json:"subtotal"`
	Discount    int64      `json:"discount"`
	ShippingFee int64      `json:"shipping_fee"`
	Total       int64      `json:"total"`
}

// CommissionCreditedEvent reports a commission entry written for an order.
type CommissionCreditedEvent struct {
	AffiliateID uuid.UUID `json:"affiliate_id"`
	OrderID     uuid.UUID `json:"order_id"`
	Amount      int64     `json:"amount"`
	RatePercent int       `json:"rate_percent"`
	Rank        int       `json:"rank"`
}

// AffiliateRankChangedEvent is emitted when cumulative sales move an affiliate to a new tier.
type AffiliateRankChangedEvent struct {
	AffiliateID     uuid.UUID `json:"affiliate_id"`
	PreviousRank    int       `json:"previous_rank"`
	Rank            int       `json:"rank"`
	CumulativeSales int       `json:"cumulative_sales"`
}
