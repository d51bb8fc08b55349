package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// OrderDTO is the API representation of a placed order. Amounts are whole DZD.
type OrderDTO struct {
	ID              uuid.UUID             `json:"id"`
	OrderNumber     string                `json:"order_number"`
	BuyerID         *uuid.UUID            `json:"buyer_id,omitempty"`
	Status          enums.OrderStatus     `json:"status"`
	Subtotal        int64                 `json:"subtotal"`
	DiscountAmount  int64                 `json:"discount_amount"`
	ShippingCost    int64                 `json:"shipping_cost"`
	TotalAmount     int64                 `json:"total_amount"`
	PromoCode       *string               `json:"promo_code,omitempty"`
	AffiliateID     *uuid.UUID            `json:"affiliate_id,omitempty"`
	PaymentMethod   enums.PaymentMethod   `json:"payment_method"`
	CashToCollect   int64                 `json:"cash_to_collect"`
	DeliveryType    enums.DeliveryType    `json:"delivery_type"`
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	LineItems       []LineItemDTO         `json:"line_items"`
	CreatedAt       time.Time             `json:"created_at"`
}

type LineItemDTO struct {
	ProductID uuid.UUID `json:"product_id"`
	Title     string    `json:"title"`
	UnitPrice int64     `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	Size      *string   `json:"size,omitempty"`
	Color     *string   `json:"color,omitempty"`
	LineTotal int64     `json:"line_total"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
	Limit      int        `json:"limit"`
}

// FromModel maps a stored order to its DTO.
func FromModel(order models.Order) OrderDTO {
	items := make([]LineItemDTO, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		items = append(items, LineItemDTO{
			ProductID: item.ProductID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Size:      item.Size,
			Color:     item.Color,
			LineTotal: item.LineTotal,
		})
	}
	var cash int64
	if order.PaymentMethod.CollectsCash() {
		cash = order.TotalAmount
	}
	return OrderDTO{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		BuyerID:         order.BuyerID,
		Status:          order.Status,
		Subtotal:        order.Subtotal,
		DiscountAmount:  order.DiscountAmount,
		ShippingCost:    order.ShippingCost,
		TotalAmount:     order.TotalAmount,
		PromoCode:       order.PromoCode,
		AffiliateID:     order.AffiliateID,
		PaymentMethod:   order.PaymentMethod,
		CashToCollect:   cash,
		DeliveryType:    order.DeliveryType,
		ShippingAddress: order.ShippingAddress,
		LineItems:       items,
		CreatedAt:       order.CreatedAt,
	}
}
