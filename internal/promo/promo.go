// Package promo resolves affiliate promo codes into cart discounts.
package promo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	reasonRequired = "promo code is required"
	reasonUnknown  = "promo code is invalid or no longer active"
)

// Normalize trims and upper-cases a promo code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Result is the outcome of a promo application. A failed application leaves
// the cart untouched.
type Result struct {
	Success     bool       `json:"success"`
	Code        string     `json:"code,omitempty"`
	Discount    int64      `json:"discount"`
	AffiliateID *uuid.UUID `json:"affiliate_id,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

type affiliateLookup interface {
	FindActiveByPromoCode(ctx context.Context, code string) (*models.Affiliate, error)
}

// Resolver validates codes against active affiliates.
type Resolver struct {
	affiliates affiliateLookup
	policy     pricing.Policy
}

// NewResolver builds a resolver applying policy.PromoPercent on success.
func NewResolver(affiliates affiliateLookup, policy pricing.Policy) (*Resolver, error) {
	if affiliates == nil {
		return nil, fmt.Errorf("affiliate lookup required")
	}
	return &Resolver{affiliates: affiliates, policy: policy}, nil
}

// Lookup returns the active affiliate owning code. An unknown or inactive code
// yields (nil, nil).
func (r *Resolver) Lookup(ctx context.Context, code string) (*models.Affiliate, error) {
	normalized := Normalize(code)
	if normalized == "" {
		return nil, nil
	}
	affiliate, err := r.affiliates.FindActiveByPromoCode(ctx, normalized)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return affiliate, nil
}

// Apply resolves code and, on success, attaches it to c with a discount
// computed from the current subtotal. Any previous promo is replaced.
func (r *Resolver) Apply(ctx context.Context, c *cart.Cart, code string) (Result, error) {
	normalized := Normalize(code)
	if normalized == "" {
		return Result{Reason: reasonRequired}, nil
	}
	affiliate, err := r.Lookup(ctx, normalized)
	if err != nil {
		return Result{}, err
	}
	if affiliate == nil {
		return Result{Code: normalized, Reason: reasonUnknown}, nil
	}

	discount := r.policy.Discount(c.Subtotal())
	c.ApplyPromo(cart.Promo{Code: normalized, AffiliateID: affiliate.ID, Discount: discount})
	affiliateID := affiliate.ID
	return Result{
		Success:     true,
		Code:        normalized,
		Discount:    discount,
		AffiliateID: &affiliateID,
	}, nil
}
