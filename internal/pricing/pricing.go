// Package pricing composes order totals. All amounts are whole DZD.
package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Totals is the derived breakdown shown to the shopper and stored on the order.
type Totals struct {
	Subtotal    int64 `json:"subtotal"`
	Discount    int64 `json:"discount"`
	ShippingFee int64 `json:"shipping_fee"`
	Total       int64 `json:"total"`
}

// PercentOf returns round(amount * percent / 100), rounding half away from zero.
func PercentOf(amount, percent int64) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(percent)).
		Div(hundred).
		Round(0).
		IntPart()
}

// Compose returns subtotal - discount + shippingFee. The discount is clamped
// to [0, subtotal] so the total never drops below the shipping fee.
func Compose(subtotal, discount, shippingFee int64) Totals {
	if subtotal < 0 {
		subtotal = 0
	}
	if shippingFee < 0 {
		shippingFee = 0
	}
	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	return Totals{
		Subtotal:    subtotal,
		Discount:    discount,
		ShippingFee: shippingFee,
		Total:       subtotal - discount + shippingFee,
	}
}

// Policy controls how a promo discount is derived when quoting.
type Policy struct {
	PromoPercent int64
	// FreezeDiscount keeps the amount captured when the code was applied
	// instead of recomputing it from the current subtotal.
	FreezeDiscount bool
}

// QuoteInput carries the cart-side figures needed to quote an order.
type QuoteInput struct {
	Subtotal         int64
	PromoApplied     bool
	SnapshotDiscount int64
	ShippingFee      int64
}

// Discount is the promo discount for subtotal under this policy.
func (p Policy) Discount(subtotal int64) int64 {
	return PercentOf(subtotal, p.PromoPercent)
}

// Quote composes the totals for in.
func (p Policy) Quote(in QuoteInput) Totals {
	var discount int64
	if in.PromoApplied {
		if p.FreezeDiscount {
			discount = in.SnapshotDiscount
		} else {
			discount = p.Discount(in.Subtotal)
		}
	}
	return Compose(in.Subtotal, discount, in.ShippingFee)
}
