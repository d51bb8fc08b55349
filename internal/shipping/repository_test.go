package shipping

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

func TestRepositoryUpsertReplacesRow(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.ShippingRate{}))
	repo := NewRepository(conn)
	ctx := context.Background()

	home, office := int64(300), int64(200)
	require.NoError(t, repo.Upsert(ctx, &models.ShippingRate{Region: "ALGER", HomeFee: &home, OfficeFee: &office}))

	newHome := int64(320)
	require.NoError(t, repo.Upsert(ctx, &models.ShippingRate{Region: "ALGER", HomeFee: &newHome}))

	rows, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(320), *rows[0].HomeFee)
	assert.Nil(t, rows[0].OfficeFee)
}
