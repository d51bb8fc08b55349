package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type orderReader interface {
	FindByNumber(ctx context.Context, number string) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
}

// Viewer is who asks for an order. Guests prove ownership with the phone
// number used at checkout.
type Viewer struct {
	UserID *uuid.UUID
	Role   enums.UserRole
	Phone  string
}

// Service exposes order read paths.
type Service interface {
	GetByNumber(ctx context.Context, number string, viewer Viewer) (*OrderDTO, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
}

type service struct {
	repo orderReader
}

func NewService(repo orderReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

// GetByNumber hides orders the viewer does not own behind NOT_FOUND so order
// numbers cannot be enumerated.
func (s *service) GetByNumber(ctx context.Context, number string, viewer Viewer) (*OrderDTO, error) {
	order, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !canView(*order, viewer) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	dto := FromModel(*order)
	return &dto, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	return s.repo.List(ctx, params, filters)
}

func canView(order models.Order, viewer Viewer) bool {
	if viewer.Role == enums.UserRoleAdmin {
		return true
	}
	if order.BuyerID != nil {
		return viewer.UserID != nil && *viewer.UserID == *order.BuyerID
	}
	phone, ok := types.NormalizePhone(viewer.Phone)
	return ok && phone == order.ShippingAddress.Phone
}
