package affiliates

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func setupAffiliatesDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(migrate.Models()...))
	return conn
}

func newCommissionService(t *testing.T, conn *gorm.DB) *CommissionService {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}, Format: "json"})
	svc, err := NewCommissionService(db.NewFromConn(conn), NewRepository(conn), outbox.NewService(outbox.NewRepository(conn), logg), nil, logg)
	require.NoError(t, err)
	return svc
}

func seedAffiliate(t *testing.T, conn *gorm.DB, code string, sales int) models.Affiliate {
	t.Helper()
	a := models.Affiliate{DisplayName: "Team " + code, PromoCode: code, CumulativeSales: sales}
	require.NoError(t, NewRepository(conn).Create(context.Background(), &a))
	return a
}

func seedOrder(t *testing.T, conn *gorm.DB, affiliateID *uuid.UUID, subtotal, discount int64) models.Order {
	t.Helper()
	order := models.Order{
		ID:             uuid.New(),
		OrderNumber:    "SF-20260105-" + uuid.NewString()[:6],
		Subtotal:       subtotal,
		DiscountAmount: discount,
		ShippingCost:   300,
		TotalAmount:    subtotal - discount + 300,
		AffiliateID:    affiliateID,
		PaymentMethod:  enums.PaymentMethodCashOnDelivery,
		DeliveryType:   enums.DeliveryHome,
		Status:         enums.OrderStatusPending,
		ShippingAddress: types.ShippingAddress{
			Name: "Lina", Phone: "0555123456", Address: "12 rue Didouche", City: "Alger", Region: "ALGER", DeliveryType: "home",
		},
		IdempotencyKey: uuid.NewString(),
	}
	require.NoError(t, conn.Create(&order).Error)
	return order
}

func outboxCount(t *testing.T, conn *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func TestProcessOrderCreditsAndPromotes(t *testing.T) {
	conn := setupAffiliatesDB(t)
	svc := newCommissionService(t, conn)
	affiliate := seedAffiliate(t, conn, "NADIA", 24)
	order := seedOrder(t, conn, &affiliate.ID, 10000, 500)

	result, err := svc.ProcessOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.True(t, result.Credited)
	assert.Equal(t, int64(9500), result.Entry.BaseAmount)
	assert.Equal(t, int64(570), result.Entry.Amount)
	assert.Equal(t, 6, result.Entry.RatePercent)
	assert.Equal(t, 1, result.PreviousRank)
	assert.Equal(t, 2, result.Rank)

	stored, err := NewRepository(conn).FindByID(context.Background(), affiliate.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, stored.CumulativeSales)
	assert.Equal(t, 2, stored.Rank)
	assert.Equal(t, int64(570), stored.TotalCommission)
	assert.Equal(t, int64(570), stored.AvailableCommission)

	assert.Equal(t, int64(1), outboxCount(t, conn, enums.EventCommissionCredited))
	assert.Equal(t, int64(1), outboxCount(t, conn, enums.EventAffiliateRankChange))
}

func TestProcessOrderIsIdempotent(t *testing.T) {
	conn := setupAffiliatesDB(t)
	svc := newCommissionService(t, conn)
	affiliate := seedAffiliate(t, conn, "KARIM", 3)
	order := seedOrder(t, conn, &affiliate.ID, 8000, 400)

	first, err := svc.ProcessOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.True(t, first.Credited)

	second, err := svc.ProcessOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, second.Credited)
	assert.Equal(t, skipAlreadyCredited, second.SkipReason)

	stored, err := NewRepository(conn).FindByID(context.Background(), affiliate.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.CumulativeSales)
	assert.Equal(t, first.Entry.Amount, stored.TotalCommission)
	assert.Equal(t, int64(0), outboxCount(t, conn, enums.EventAffiliateRankChange))
}

func TestProcessOrderWithoutAffiliateSkips(t *testing.T) {
	conn := setupAffiliatesDB(t)
	svc := newCommissionService(t, conn)
	order := seedOrder(t, conn, nil, 5000, 0)

	result, err := svc.ProcessOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, result.Credited)
	assert.Equal(t, skipNoAffiliate, result.SkipReason)
	assert.Equal(t, int64(0), outboxCount(t, conn, enums.EventCommissionCredited))
}

func TestProcessOrderUnknownOrder(t *testing.T) {
	conn := setupAffiliatesDB(t)
	svc := newCommissionService(t, conn)

	_, err := svc.ProcessOrder(context.Background(), uuid.New())
	require.Error(t, err)
}

func TestFindActiveByPromoCodeIgnoresSuspended(t *testing.T) {
	conn := setupAffiliatesDB(t)
	repo := NewRepository(conn)
	active := seedAffiliate(t, conn, "ACTIVE1", 0)
	suspended := seedAffiliate(t, conn, "PAUSED1", 0)
	require.NoError(t, conn.Model(&models.Affiliate{}).Where("id = ?", suspended.ID).Update("status", enums.AffiliateStatusSuspended).Error)

	found, err := repo.FindActiveByPromoCode(context.Background(), "ACTIVE1")
	require.NoError(t, err)
	assert.Equal(t, active.ID, found.ID)

	_, err = repo.FindActiveByPromoCode(context.Background(), "PAUSED1")
	require.Error(t, err)
}
