package promo

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type cartUpdater interface {
	Update(ctx context.Context, sessionID string, fn func(*cart.Cart) error) (*cart.Cart, error)
}

// Service applies and removes promo codes on session carts.
type Service interface {
	Apply(ctx context.Context, sessionID, code string) (Result, *cart.Cart, error)
	Remove(ctx context.Context, sessionID string) (*cart.Cart, error)
}

type service struct {
	carts    cartUpdater
	resolver *Resolver
	metrics  *metrics.StorefrontMetrics
	logg     *logger.Logger
}

func NewService(carts cartUpdater, resolver *Resolver, m *metrics.StorefrontMetrics, logg *logger.Logger) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("promo resolver required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{carts: carts, resolver: resolver, metrics: m, logg: logg}, nil
}

// Apply returns the resolver result together with the cart as stored after
// the attempt. Rejected codes do not write the cart.
func (s *service) Apply(ctx context.Context, sessionID, code string) (Result, *cart.Cart, error) {
	var result Result
	updated, err := s.carts.Update(ctx, sessionID, func(c *cart.Cart) error {
		res, err := s.resolver.Apply(ctx, c, code)
		if err != nil {
			return err
		}
		result = res
		if !res.Success {
			return cart.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		return Result{}, nil, err
	}

	logCtx := s.logg.WithFields(s.logg.WithCartSession(ctx, sessionID), map[string]any{
		"promo_code": result.Code,
		"success":    result.Success,
	})
	if result.Success {
		s.metrics.IncPromo(metrics.PromoApplied)
		s.logg.Info(logCtx, "promo applied")
	} else {
		s.metrics.IncPromo(metrics.PromoRejected)
		s.logg.Info(logCtx, "promo rejected")
	}
	return result, updated, nil
}

func (s *service) Remove(ctx context.Context, sessionID string) (*cart.Cart, error) {
	return s.carts.Update(ctx, sessionID, func(c *cart.Cart) error {
		if c.Promo == nil {
			return cart.ErrUnchanged
		}
		c.ClearPromo()
		return nil
	})
}
