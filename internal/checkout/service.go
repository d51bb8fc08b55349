package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout/helpers"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartSessions interface {
	Get(ctx context.Context, sessionID string) (*cart.Cart, error)
	Clear(ctx context.Context, sessionID string) (*cart.Cart, error)
}

type catalog interface {
	FindActiveByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type promoLookup interface {
	Lookup(ctx context.Context, code string) (*models.Affiliate, error)
}

type rateSource interface {
	Table(ctx context.Context) (*shipping.RateTable, error)
}

type orderNumberSource interface {
	Next(ctx context.Context) (string, error)
}

// CartQuote is the cart with its totals for a region and delivery type.
type CartQuote struct {
	Cart     *cart.Cart      `json:"cart"`
	Totals   pricing.Totals  `json:"totals"`
	Shipping *shipping.Quote `json:"shipping,omitempty"`
}

// PlaceOrderInput is a checkout submission for one cart session.
type PlaceOrderInput struct {
	SessionID      string
	IdempotencyKey string
	BuyerID        *uuid.UUID
	Name           string
	Phone          string
	Address        string
	City           string
	Region         string
	DeliveryType   string
	PaymentMethod  string
}

// PlaceOrderResult carries the stored order. Replayed is set when the
// idempotency key matched an order placed earlier.
type PlaceOrderResult struct {
	Order    orders.OrderDTO
	Replayed bool
}

// Service quotes carts and places orders.
type Service interface {
	Quote(ctx context.Context, sessionID, region string, deliveryType enums.DeliveryType) (*CartQuote, error)
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error)
}

// Deps groups the collaborators of the checkout service.
type Deps struct {
	Tx      txRunner
	Carts   cartSessions
	Catalog catalog
	Promos  promoLookup
	Rates   rateSource
	Orders  *orders.Repository
	Outbox  outbox.Emitter
	Numbers orderNumberSource
	Policy  pricing.Policy
	Metrics *metrics.StorefrontMetrics
	Logger  *logger.Logger
}

type service struct {
	tx      txRunner
	carts   cartSessions
	catalog catalog
	promos  promoLookup
	rates   rateSource
	orders  *orders.Repository
	outbox  outbox.Emitter
	numbers orderNumberSource
	policy  pricing.Policy
	metrics *metrics.StorefrontMetrics
	logg    *logger.Logger
}

// NewService builds the checkout service.
func NewService(d Deps) (Service, error) {
	switch {
	case d.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case d.Carts == nil:
		return nil, fmt.Errorf("cart service required")
	case d.Catalog == nil:
		return nil, fmt.Errorf("catalog required")
	case d.Promos == nil:
		return nil, fmt.Errorf("promo lookup required")
	case d.Rates == nil:
		return nil, fmt.Errorf("shipping rates required")
	case d.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case d.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case d.Numbers == nil:
		return nil, fmt.Errorf("order number source required")
	case d.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:      d.Tx,
		carts:   d.Carts,
		catalog: d.Catalog,
		promos:  d.Promos,
		rates:   d.Rates,
		orders:  d.Orders,
		outbox:  d.Outbox,
		numbers: d.Numbers,
		policy:  d.Policy,
		metrics: d.Metrics,
		logg:    d.Logger,
	}, nil
}

// Quote prices the stored cart as-is. Prices are re-read from the catalog only
// when the order is placed.
func (s *service) Quote(ctx context.Context, sessionID, region string, deliveryType enums.DeliveryType) (*CartQuote, error) {
	c, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if deliveryType != "" && !deliveryType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery type")
	}

	var shippingQuote *shipping.Quote
	if strings.TrimSpace(region) != "" {
		table, err := s.rates.Table(ctx)
		if err != nil {
			return nil, err
		}
		q := table.Quote(region, deliveryType)
		shippingQuote = &q
	}

	var fee int64
	if shippingQuote != nil {
		fee = shippingQuote.Fee
	}
	return &CartQuote{
		Cart:     c,
		Totals:   s.policy.Quote(quoteInput(c, c.Subtotal(), fee)),
		Shipping: shippingQuote,
	}, nil
}

// PlaceOrder validates the submission, re-prices the cart and writes the
// order, its line items and the order.created event in one transaction.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	result, err := s.placeOrder(ctx, input)
	switch {
	case err == nil && result.Replayed:
		s.metrics.IncCheckout(metrics.CheckoutReplayed)
	case err == nil:
		s.metrics.IncCheckout(metrics.CheckoutPlaced)
		s.metrics.ObserveOrderTotal(result.Order.TotalAmount)
	case isRejection(err):
		s.metrics.IncCheckout(metrics.CheckoutRejected)
	default:
		s.metrics.IncCheckout(metrics.CheckoutFailed)
	}
	return result, err
}

// ownedKey scopes a client idempotency key to the signed-in buyer, or to the
// cart session for guests, so the same key from another shopper never
// matches their order. A blank key gets a fresh token.
func ownedKey(buyerID *uuid.UUID, sessionID, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		key = uuid.NewString()
	}
	if buyerID != nil && *buyerID != uuid.Nil {
		return "user:" + buyerID.String() + ":" + key
	}
	return "session:" + sessionID + ":" + key
}

func (s *service) placeOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	key := ownedKey(input.BuyerID, input.SessionID, input.IdempotencyKey)
	ctx = s.logg.WithCartSession(ctx, input.SessionID)

	if existing, err := s.orders.FindByIdempotencyKey(ctx, key); err != nil {
		return nil, err
	} else if existing != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, existing.ID.String()), "checkout replayed")
		return &PlaceOrderResult{Order: orders.FromModel(*existing), Replayed: true}, nil
	}

	c, err := s.carts.Get(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	address, err := helpers.ValidateAddress(helpers.AddressInput{
		Name:    input.Name,
		Phone:   input.Phone,
		Address: input.Address,
		City:    input.City,
		Region:  input.Region,
	})
	if err != nil {
		return nil, err
	}
	paymentMethod, err := helpers.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, err
	}

	table, err := s.rates.Table(ctx)
	if err != nil {
		return nil, err
	}
	rate, known := table.Lookup(address.Region)
	if !known {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping details").
			WithDetails(map[string]string{"region": "is not served"})
	}
	deliveryType, err := resolveDeliveryType(table, rate.Region, input.DeliveryType)
	if err != nil {
		return nil, err
	}
	address.Region = rate.Region
	address.DeliveryType = string(deliveryType)

	items, subtotal, err := s.reprice(ctx, c)
	if err != nil {
		return nil, err
	}

	var promoCode *string
	var affiliateID *uuid.UUID
	if c.Promo != nil {
		affiliate, err := s.promos.Lookup(ctx, c.Promo.Code)
		if err != nil {
			return nil, err
		}
		if affiliate == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code is no longer valid").
				WithDetails(map[string]string{"promo_code": "remove the code or enter another one"})
		}
		code := c.Promo.Code
		id := affiliate.ID
		promoCode = &code
		affiliateID = &id
	}

	totals := s.policy.Quote(quoteInput(c, subtotal, table.Cost(rate.Region, deliveryType)))

	number, err := s.numbers.Next(ctx)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     number,
		BuyerID:         input.BuyerID,
		Subtotal:        totals.Subtotal,
		DiscountAmount:  totals.Discount,
		ShippingCost:    totals.ShippingFee,
		TotalAmount:     totals.Total,
		PromoCode:       promoCode,
		AffiliateID:     affiliateID,
		PaymentMethod:   paymentMethod,
		DeliveryType:    deliveryType,
		Status:          enums.OrderStatusPending,
		ShippingAddress: address,
		IdempotencyKey:  key,
		LineItems:       items,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorFor(input.BuyerID),
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				BuyerID:     order.BuyerID,
				AffiliateID: order.AffiliateID,
				PromoCode:   order.PromoCode,
				Subtotal:    order.Subtotal,
				Discount:    order.DiscountAmount,
				ShippingFee: order.ShippingCost,
				Total:       order.TotalAmount,
			},
		})
	})
	if errors.Is(err, orders.ErrDuplicateOrder) {
		existing, findErr := s.orders.FindByIdempotencyKey(ctx, key)
		if findErr != nil {
			return nil, findErr
		}
		if existing == nil {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order number already used, retry")
		}
		return &PlaceOrderResult{Order: orders.FromModel(*existing), Replayed: true}, nil
	}
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "place order")
	}

	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"order_number": order.OrderNumber,
		"total":        order.TotalAmount,
	})
	if _, err := s.carts.Clear(ctx, input.SessionID); err != nil {
		s.logg.Error(logCtx, "order placed but cart not cleared", err)
	}
	s.logg.Info(logCtx, "order placed")
	return &PlaceOrderResult{Order: orders.FromModel(*order)}, nil
}

// reprice rebuilds the line items from current catalog prices. Lines whose
// product is gone or unlisted fail the checkout.
func (s *service) reprice(ctx context.Context, c *cart.Cart) ([]models.OrderLineItem, int64, error) {
	ids := make([]uuid.UUID, 0, len(c.Lines))
	for _, line := range c.Lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.catalog.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	items := make([]models.OrderLineItem, 0, len(c.Lines))
	unavailable := []string{}
	var subtotal int64
	for _, line := range c.Lines {
		product, ok := products[line.ProductID]
		if !ok {
			unavailable = append(unavailable, line.ID)
			continue
		}
		lineTotal := product.Price * int64(line.Quantity)
		subtotal += lineTotal
		items = append(items, models.OrderLineItem{
			ID:        uuid.New(),
			ProductID: product.ID,
			Title:     product.Title,
			UnitPrice: product.Price,
			Quantity:  line.Quantity,
			Size:      line.Size,
			Color:     line.Color,
			LineTotal: lineTotal,
		})
	}
	if len(unavailable) > 0 {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "some items are no longer available").
			WithDetails(map[string]any{"line_ids": unavailable})
	}
	return items, subtotal, nil
}

func resolveDeliveryType(table *shipping.RateTable, region, requested string) (enums.DeliveryType, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		if dt := table.ResolveDeliveryType(region, ""); dt != "" {
			return dt, nil
		}
		return "", pkgerrors.New(pkgerrors.CodeValidation, "no delivery available for region")
	}
	dt, err := enums.ParseDeliveryType(requested)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery type").
			WithDetails(map[string]string{"delivery_type": "must be home or office"})
	}
	for _, available := range table.AvailableDeliveryTypes(region) {
		if available == dt {
			return dt, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "delivery type not offered in region").
		WithDetails(map[string]string{"delivery_type": "not available for " + region})
}

func quoteInput(c *cart.Cart, subtotal, fee int64) pricing.QuoteInput {
	in := pricing.QuoteInput{Subtotal: subtotal, ShippingFee: fee}
	if c.Promo != nil {
		in.PromoApplied = true
		in.SnapshotDiscount = c.Promo.Discount
	}
	return in
}

func actorFor(buyerID *uuid.UUID) *outbox.ActorRef {
	if buyerID == nil {
		return &outbox.ActorRef{Role: "guest"}
	}
	return &outbox.ActorRef{UserID: buyerID, Role: string(enums.UserRoleShopper)}
}

func isRejection(err error) bool {
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeValidation, pkgerrors.CodeNotFound, pkgerrors.CodeConflict, pkgerrors.CodePromoInvalid:
		return true
	default:
		return false
	}
}
