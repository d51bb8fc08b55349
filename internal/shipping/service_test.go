package shipping

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type stubRateRepo struct {
	rows     []models.ShippingRate
	listErr  error
	lists    int
	upserted []models.ShippingRate
}

func (s *stubRateRepo) List(context.Context) ([]models.ShippingRate, error) {
	s.lists++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.rows, nil
}

func (s *stubRateRepo) Upsert(_ context.Context, rate *models.ShippingRate) error {
	s.upserted = append(s.upserted, *rate)
	s.rows = append(s.rows, *rate)
	return nil
}

func newTestService(t *testing.T, repo *stubRateRepo, ttl time.Duration) *service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}, Format: "json"})
	svc, err := NewService(repo, ttl, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc.(*service)
}

func TestQuoteResolvesDeliveryType(t *testing.T) {
	svc := newTestService(t, &stubRateRepo{}, time.Minute)

	q, err := svc.Quote(context.Background(), "djanet", enums.DeliveryOffice)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !q.KnownRegion || q.DeliveryType != enums.DeliveryHome || q.Fee != 1200 {
		t.Fatalf("unexpected quote %+v", q)
	}

	q, err = svc.Quote(context.Background(), "Atlantis", enums.DeliveryHome)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.KnownRegion || q.Fee != 0 || q.DeliveryType != "" {
		t.Fatalf("unexpected unknown-region quote %+v", q)
	}
}

func TestQuoteRejectsInvalidDeliveryType(t *testing.T) {
	svc := newTestService(t, &stubRateRepo{}, time.Minute)
	_, err := svc.Quote(context.Background(), "ALGER", enums.DeliveryType("drone"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTableIsCachedUntilTTL(t *testing.T) {
	repo := &stubRateRepo{}
	svc := newTestService(t, repo, time.Minute)
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if _, err := svc.Table(context.Background()); err != nil {
			t.Fatalf("table: %v", err)
		}
	}
	if repo.lists != 1 {
		t.Fatalf("expected a single load, got %d", repo.lists)
	}

	now = now.Add(2 * time.Minute)
	if _, err := svc.Table(context.Background()); err != nil {
		t.Fatalf("table: %v", err)
	}
	if repo.lists != 2 {
		t.Fatalf("expected reload after ttl, got %d", repo.lists)
	}
}

func TestTableServesDefaultsWhenStoreDown(t *testing.T) {
	repo := &stubRateRepo{listErr: errors.New("connection refused")}
	svc := newTestService(t, repo, time.Minute)

	table, err := svc.Table(context.Background())
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	if table.Cost("ALGER", enums.DeliveryHome) != 300 {
		t.Fatal("expected built-in rates")
	}
}

func TestUpsertRateInvalidatesCache(t *testing.T) {
	repo := &stubRateRepo{}
	svc := newTestService(t, repo, time.Hour)
	ctx := context.Background()

	if _, err := svc.Table(ctx); err != nil {
		t.Fatalf("table: %v", err)
	}
	home := int64(350)
	updated, err := svc.UpsertRate(ctx, UpsertRateInput{Region: "Alger", HomeFee: &home})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if updated.Region != "ALGER" || len(updated.DeliveryTypes) != 1 {
		t.Fatalf("unexpected updated region %+v", updated)
	}

	q, err := svc.Quote(ctx, "ALGER", enums.DeliveryOffice)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.Fee != 350 || q.DeliveryType != enums.DeliveryHome {
		t.Fatalf("expected overlaid rate, got %+v", q)
	}
}

func TestUpsertRateValidation(t *testing.T) {
	svc := newTestService(t, &stubRateRepo{}, time.Hour)
	neg := int64(-1)

	if _, err := svc.UpsertRate(context.Background(), UpsertRateInput{Region: "NARNIA", HomeFee: &neg}); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.UpsertRate(context.Background(), UpsertRateInput{Region: "ORAN"}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.UpsertRate(context.Background(), UpsertRateInput{Region: "ORAN", HomeFee: &neg}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
