package cart

import (
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/internal/promo"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
)

type cartView struct {
	Lines     []cartsvc.Line  `json:"lines"`
	Promo     *cartsvc.Promo  `json:"promo,omitempty"`
	ItemCount int             `json:"item_count"`
	Totals    pricing.Totals  `json:"totals"`
	Shipping  *shipping.Quote `json:"shipping,omitempty"`
}

// newCartView prices c without shipping.
func newCartView(c *cartsvc.Cart, policy pricing.Policy) cartView {
	in := pricing.QuoteInput{Subtotal: c.Subtotal()}
	if c.Promo != nil {
		in.PromoApplied = true
		in.SnapshotDiscount = c.Promo.Discount
	}
	return cartView{
		Lines:     c.Lines,
		Promo:     c.Promo,
		ItemCount: c.ItemCount(),
		Totals:    policy.Quote(in),
	}
}

func newQuoteView(q *checkout.CartQuote) cartView {
	return cartView{
		Lines:     q.Cart.Lines,
		Promo:     q.Cart.Promo,
		ItemCount: q.Cart.ItemCount(),
		Totals:    q.Totals,
		Shipping:  q.Shipping,
	}
}

type promoView struct {
	Result promo.Result `json:"result"`
	Cart   cartView     `json:"cart"`
}
