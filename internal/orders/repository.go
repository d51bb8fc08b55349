package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ErrDuplicateOrder is returned by Create when the idempotency key or order
// number is already taken.
var ErrDuplicateOrder = errors.New("order already exists")

// ListFilters narrows the admin order list.
type ListFilters struct {
	Status      *enums.OrderStatus
	AffiliateID *uuid.UUID
}

// Repository persists orders and their line items.
type Repository struct {
	base repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

// Create inserts the order together with its line items.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.LineItems {
		if order.LineItems[i].ID == uuid.Nil {
			order.LineItems[i].ID = uuid.New()
		}
		order.LineItems[i].OrderID = order.ID
	}
	if err := r.base.DB(ctx).Create(order).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return ErrDuplicateOrder
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return nil
}

// FindByIdempotencyKey returns the order placed with key, or nil when none was.
// Keys are stored already scoped to their owner.
func (r *Repository) FindByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := r.withItems(ctx).Where("idempotency_key = ?", key).First(&order).Error
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order by idempotency key")
	}
	return &order, nil
}

func (r *Repository) FindByNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	err := r.withItems(ctx).Where("order_number = ?", strings.TrimSpace(number)).First(&order).Error
	if err != nil {
		return nil, repo.LookupError(err, "order not found", "load order")
	}
	return &order, nil
}

// List returns orders newest first using created_at/id cursors.
func (r *Repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.withItems(ctx).Model(&models.Order{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.AffiliateID != nil {
		query = query.Where("affiliate_id = ?", *filters.AffiliateID)
	}

	var rows []models.Order
	if err := query.Scopes(pagination.Keyset(cursor, limit)).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	list := &OrderList{Limit: limit}
	rows, list.NextCursor = pagination.Trim(rows, limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	list.Orders = make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		list.Orders = append(list.Orders, FromModel(row))
	}
	return list, nil
}

func (r *Repository) withItems(ctx context.Context) *gorm.DB {
	return r.base.DB(ctx).Preload("LineItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC").Order("id ASC")
	})
}
