package shipping

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Repository stores admin-maintained rate overrides.
type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

func (r *Repository) List(ctx context.Context) ([]models.ShippingRate, error) {
	var rows []models.ShippingRate
	if err := r.base.DB(ctx).Order("region ASC").Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shipping rates")
	}
	return rows, nil
}

// Upsert inserts or replaces the rates of a region.
func (r *Repository) Upsert(ctx context.Context, rate *models.ShippingRate) error {
	rate.UpdatedAt = time.Now().UTC()
	err := r.base.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "region"}},
		DoUpdates: clause.AssignmentColumns([]string{"home_fee", "office_fee", "updated_at"}),
	}).Create(rate).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert shipping rate")
	}
	return nil
}
