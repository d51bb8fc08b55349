package shipping

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type rateRepository interface {
	List(ctx context.Context) ([]models.ShippingRate, error)
	Upsert(ctx context.Context, rate *models.ShippingRate) error
}

// Quote is the fee for a region once the delivery type is resolved.
type Quote struct {
	Region                 string               `json:"region"`
	KnownRegion            bool                 `json:"known_region"`
	DeliveryType           enums.DeliveryType   `json:"delivery_type,omitempty"`
	AvailableDeliveryTypes []enums.DeliveryType `json:"available_delivery_types"`
	Fee                    int64                `json:"fee"`
}

// UpsertRateInput sets the fees of one region. A nil fee disables that type.
type UpsertRateInput struct {
	Region    string
	HomeFee   *int64
	OfficeFee *int64
}

// Service serves rate lookups from the built-in table overlaid with stored rows.
type Service interface {
	Table(ctx context.Context) (*RateTable, error)
	Quote(ctx context.Context, region string, deliveryType enums.DeliveryType) (Quote, error)
	Regions(ctx context.Context) ([]RegionOption, error)
	UpsertRate(ctx context.Context, input UpsertRateInput) (RegionOption, error)
}

type service struct {
	repo     rateRepository
	defaults *RateTable
	ttl      time.Duration
	logg     *logger.Logger
	now      func() time.Time

	mu       sync.Mutex
	cached   *RateTable
	loadedAt time.Time
}

// NewService caches the merged table for ttl; ttl <= 0 reloads on every call.
func NewService(repo rateRepository, ttl time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipping rate repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		defaults: DefaultTable(),
		ttl:      ttl,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Table returns the current rate table. When the store is unreachable the last
// loaded table is served, or the built-in one if nothing was loaded yet.
func (s *service) Table(ctx context.Context) (*RateTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.ttl > 0 && s.now().Sub(s.loadedAt) < s.ttl {
		return s.cached, nil
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		s.logg.Error(ctx, "shipping rates unavailable, serving last known table", err)
		if s.cached != nil {
			return s.cached, nil
		}
		return s.defaults, nil
	}
	s.cached = s.defaults.Overlay(rows)
	s.loadedAt = s.now()
	return s.cached, nil
}

func (s *service) Quote(ctx context.Context, region string, deliveryType enums.DeliveryType) (Quote, error) {
	if deliveryType != "" && !deliveryType.IsValid() {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery type")
	}
	table, err := s.Table(ctx)
	if err != nil {
		return Quote{}, err
	}
	return table.Quote(region, deliveryType), nil
}

func (s *service) Regions(ctx context.Context) ([]RegionOption, error) {
	table, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}
	return table.Regions(), nil
}

// UpsertRate stores fees for a known wilaya and drops the cached table.
func (s *service) UpsertRate(ctx context.Context, input UpsertRateInput) (RegionOption, error) {
	rate, ok := s.defaults.Lookup(input.Region)
	if !ok {
		return RegionOption{}, pkgerrors.New(pkgerrors.CodeNotFound, "unknown region")
	}
	if input.HomeFee == nil && input.OfficeFee == nil {
		return RegionOption{}, pkgerrors.New(pkgerrors.CodeValidation, "at least one fee is required")
	}
	for _, f := range []*int64{input.HomeFee, input.OfficeFee} {
		if f != nil && *f < 0 {
			return RegionOption{}, pkgerrors.New(pkgerrors.CodeValidation, "fees must not be negative")
		}
	}

	row := &models.ShippingRate{Region: rate.Region, HomeFee: input.HomeFee, OfficeFee: input.OfficeFee}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return RegionOption{}, err
	}

	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()

	s.logg.Info(s.logg.WithField(ctx, "region", rate.Region), "shipping rate updated")
	updated := Rate{Region: rate.Region, Number: rate.Number, HomeFee: input.HomeFee, OfficeFee: input.OfficeFee}
	return RegionOption{Rate: updated, DeliveryTypes: updated.DeliveryTypes()}, nil
}
