package cart

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// ErrUnchanged lets an Update callback skip the write.
var ErrUnchanged = errors.New("cart unchanged")

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// ValidSessionID reports whether id is acceptable as a cart session key.
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

type productLookup interface {
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// AddItemInput is the request to put a product variant in the cart.
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Size      *string
	Color     *string
}

// Service exposes session-scoped cart operations. Every mutation loads,
// mutates and persists the whole cart.
type Service interface {
	Get(ctx context.Context, sessionID string) (*Cart, error)
	AddItem(ctx context.Context, sessionID string, input AddItemInput) (*Cart, error)
	SetQuantity(ctx context.Context, sessionID, lineID string, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, sessionID, lineID string) (*Cart, error)
	Clear(ctx context.Context, sessionID string) (*Cart, error)
	Update(ctx context.Context, sessionID string, fn func(*Cart) error) (*Cart, error)
}

type service struct {
	store    Store
	products productLookup
}

// NewService builds a cart service backed by the provided store and catalog.
func NewService(store Store, products productLookup) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	return &service{store: store, products: products}, nil
}

func (s *service) Get(ctx context.Context, sessionID string) (*Cart, error) {
	if err := checkSession(sessionID); err != nil {
		return nil, err
	}
	return s.store.Load(ctx, sessionID)
}

// AddItem prices the line from the catalog; the client never supplies prices.
func (s *service) AddItem(ctx context.Context, sessionID string, input AddItemInput) (*Cart, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	product, err := s.products.FindActiveByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	return s.Update(ctx, sessionID, func(c *Cart) error {
		c.AddLine(Product{ID: product.ID, Title: product.Title, UnitPrice: product.Price}, input.Quantity, input.Size, input.Color)
		return nil
	})
}

func (s *service) SetQuantity(ctx context.Context, sessionID, lineID string, quantity int) (*Cart, error) {
	return s.Update(ctx, sessionID, func(c *Cart) error {
		if !c.SetQuantity(lineID, quantity) {
			return ErrUnchanged
		}
		return nil
	})
}

func (s *service) RemoveItem(ctx context.Context, sessionID, lineID string) (*Cart, error) {
	return s.Update(ctx, sessionID, func(c *Cart) error {
		if !c.RemoveLine(lineID) {
			return ErrUnchanged
		}
		return nil
	})
}

// Clear drops the persisted cart, promo included.
func (s *service) Clear(ctx context.Context, sessionID string) (*Cart, error) {
	if err := checkSession(sessionID); err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return nil, err
	}
	return New(), nil
}

func (s *service) Update(ctx context.Context, sessionID string, fn func(*Cart) error) (*Cart, error) {
	if err := checkSession(sessionID); err != nil {
		return nil, err
	}
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		if errors.Is(err, ErrUnchanged) {
			return c, nil
		}
		return nil, err
	}
	if err := s.store.Save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return c, nil
}

func checkSession(sessionID string) error {
	if !ValidSessionID(sessionID) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid cart session")
	}
	return nil
}
