package affiliates

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/pricing"
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

// CommissionResult describes what ProcessOrder did for one order.
type CommissionResult struct {
	Credited     bool
	SkipReason   string
	Entry        *models.CommissionEntry
	PreviousRank int
	Rank         int
}

const (
	skipNoAffiliate      = "order has no affiliate"
	skipAlreadyCredited  = "commission already credited"
	skipCanceled         = "order canceled"
	skipUnknownAffiliate = "affiliate not found"
)

// CommissionService credits affiliates for orders placed with their promo code.
type CommissionService struct {
	tx      txRunner
	repo    *Repository
	outbox  outbox.Emitter
	metrics *metrics.StorefrontMetrics
	logg    *logger.Logger
}

// NewCommissionService wires the commission processor.
func NewCommissionService(tx txRunner, repo *Repository, emitter outbox.Emitter, m *metrics.StorefrontMetrics, logg *logger.Logger) (*CommissionService, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("affiliate repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &CommissionService{tx: tx, repo: repo, outbox: emitter, metrics: m, logg: logg}, nil
}

// ProcessOrder credits the order's affiliate once. The ledger entry, the
// balance and sales updates, the rank change and the resulting events are
// written in a single transaction. The rate is the one of the rank held before
// this sale is counted.
func (s *CommissionService) ProcessOrder(ctx context.Context, orderID uuid.UUID) (CommissionResult, error) {
	var result CommissionResult
	logCtx := s.logg.WithOrderID(ctx, orderID.String())

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.AffiliateID == nil {
			result.SkipReason = skipNoAffiliate
			return nil
		}
		if order.Status == enums.OrderStatusCanceled {
			result.SkipReason = skipCanceled
			return nil
		}
		exists, err := repo.CommissionExists(ctx, orderID)
		if err != nil {
			return err
		}
		if exists {
			result.SkipReason = skipAlreadyCredited
			return nil
		}

		before, err := repo.FindByID(ctx, *order.AffiliateID)
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
				result.SkipReason = skipUnknownAffiliate
				return nil
			}
			return err
		}
		tier, ok := TierByLevel(before.Rank)
		if !ok {
			tier = TierFor(before.CumulativeSales)
		}

		base := order.Subtotal - order.DiscountAmount
		if base < 0 {
			base = 0
		}
		entry := &models.CommissionEntry{
			AffiliateID: before.ID,
			OrderID:     order.ID,
			Rank:        tier.Level,
			RatePercent: int(tier.CommissionPercent),
			BaseAmount:  base,
			Amount:      pricing.PercentOf(base, tier.CommissionPercent),
		}
		if err := repo.InsertCommission(ctx, entry); err != nil {
			return err
		}

		after, err := repo.IncrementSales(ctx, before.ID)
		if err != nil {
			return err
		}
		newRank := TierFor(after.CumulativeSales).Level
		if err := repo.CreditCommission(ctx, before.ID, entry.Amount, newRank); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCommissionCredited,
			AggregateType: enums.AggregateAffiliate,
			AggregateID:   before.ID,
			Data: payloads.CommissionCreditedEvent{
				AffiliateID: before.ID,
				OrderID:     order.ID,
				Amount:      entry.Amount,
				RatePercent: entry.RatePercent,
				Rank:        entry.Rank,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit commission event")
		}
		if newRank != before.Rank {
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventAffiliateRankChange,
				AggregateType: enums.AggregateAffiliate,
				AggregateID:   before.ID,
				Data: payloads.AffiliateRankChangedEvent{
					AffiliateID:     before.ID,
					PreviousRank:    before.Rank,
					Rank:            newRank,
					CumulativeSales: after.CumulativeSales,
				},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit rank change event")
			}
		}

		result = CommissionResult{
			Credited:     true,
			Entry:        entry,
			PreviousRank: before.Rank,
			Rank:         newRank,
		}
		return nil
	})
	if errors.Is(err, ErrAlreadyCredited) {
		result = CommissionResult{SkipReason: skipAlreadyCredited}
		err = nil
	}
	if err != nil {
		s.metrics.IncCommission(metrics.CommissionFailed)
		return CommissionResult{}, err
	}

	if !result.Credited {
		s.metrics.IncCommission(metrics.CommissionSkipped)
		s.logg.Info(s.logg.WithField(logCtx, "reason", result.SkipReason), "commission skipped")
		return result, nil
	}
	s.metrics.IncCommission(metrics.CommissionCredited)
	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"affiliate_id": result.Entry.AffiliateID.String(),
		"amount":       result.Entry.Amount,
		"rank":         result.Rank,
	}), "commission credited")
	return result, nil
}
