package affiliates

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// ErrAlreadyCredited is returned when an order already has a commission entry.
var ErrAlreadyCredited = errors.New("commission already credited")

// Repository persists affiliates and their commission ledger.
type Repository struct {
	base repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

// FindActiveByPromoCode resolves a normalized promo code to an active affiliate.
func (r *Repository) FindActiveByPromoCode(ctx context.Context, code string) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := r.base.DB(ctx).
		Where("promo_code = ? AND status = ?", code, enums.AffiliateStatusActive).
		First(&affiliate).Error
	if err != nil {
		return nil, repo.LookupError(err, "affiliate not found", "load affiliate by promo code")
	}
	return &affiliate, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	if err := r.base.DB(ctx).Where("id = ?", id).First(&affiliate).Error; err != nil {
		return nil, repo.LookupError(err, "affiliate not found", "load affiliate")
	}
	return &affiliate, nil
}

func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	if err := r.base.DB(ctx).Where("user_id = ?", userID).First(&affiliate).Error; err != nil {
		return nil, repo.LookupError(err, "affiliate not found", "load affiliate by user")
	}
	return &affiliate, nil
}

// Create inserts a new affiliate, assigning an id when missing.
func (r *Repository) Create(ctx context.Context, affiliate *models.Affiliate) error {
	if affiliate.ID == uuid.Nil {
		affiliate.ID = uuid.New()
	}
	if affiliate.Status == "" {
		affiliate.Status = enums.AffiliateStatusActive
	}
	if affiliate.Rank == 0 {
		affiliate.Rank = TierFor(affiliate.CumulativeSales).Level
	}
	if err := r.base.DB(ctx).Create(affiliate).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create affiliate")
	}
	return nil
}

// FindOrder loads the order a commission is computed from.
func (r *Repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.base.DB(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, repo.LookupError(err, "order not found", "load order")
	}
	return &order, nil
}

// CommissionExists reports whether orderID already produced a commission entry.
func (r *Repository) CommissionExists(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	if err := r.base.DB(ctx).
		Model(&models.CommissionEntry{}).
		Where("order_id = ?", orderID).
		Count(&count).Error; err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check commission entry")
	}
	return count > 0, nil
}

// InsertCommission writes the ledger entry. order_id is the only unique column
// besides the key, so a second entry for the same order returns ErrAlreadyCredited.
func (r *Repository) InsertCommission(ctx context.Context, entry *models.CommissionEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if err := r.base.DB(ctx).Create(entry).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return ErrAlreadyCredited
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert commission entry")
	}
	return nil
}

// IncrementSales bumps cumulative sales by one and returns the fresh row.
func (r *Repository) IncrementSales(ctx context.Context, id uuid.UUID) (*models.Affiliate, error) {
	res := r.base.DB(ctx).
		Model(&models.Affiliate{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"cumulative_sales": gorm.Expr("cumulative_sales + ?", 1),
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment affiliate sales")
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "affiliate not found")
	}
	return r.FindByID(ctx, id)
}

// CreditCommission adds amount to both balances and stores the recomputed rank.
func (r *Repository) CreditCommission(ctx context.Context, id uuid.UUID, amount int64, rank int) error {
	err := r.base.DB(ctx).
		Model(&models.Affiliate{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"total_commission":     gorm.Expr("total_commission + ?", amount),
			"available_commission": gorm.Expr("available_commission + ?", amount),
			"rank":                 rank,
			"updated_at":           time.Now().UTC(),
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit affiliate commission")
	}
	return nil
}

// ListCommissions returns the affiliate's newest entries first.
func (r *Repository) ListCommissions(ctx context.Context, affiliateID uuid.UUID, limit int) ([]models.CommissionEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []models.CommissionEntry
	if err := r.base.DB(ctx).
		Where("affiliate_id = ?", affiliateID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commission entries")
	}
	return entries, nil
}
