package affiliates

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

type affiliateReader interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Affiliate, error)
}

// Service serves the affiliate-facing read paths.
type Service interface {
	Tiers() []Tier
	ProgressForUser(ctx context.Context, userID uuid.UUID) (Progress, error)
}

type service struct {
	repo affiliateReader
}

func NewService(repo affiliateReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("affiliate repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Tiers() []Tier {
	return Tiers()
}

func (s *service) ProgressForUser(ctx context.Context, userID uuid.UUID) (Progress, error) {
	affiliate, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return Progress{}, err
	}
	return ProgressFor(*affiliate), nil
}
