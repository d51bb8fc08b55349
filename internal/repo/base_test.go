package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type ctxKey struct{}

func openBase(t *testing.T) (Base, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "repo.db")), &gorm.Config{})
	require.NoError(t, err)
	return NewBase(conn), conn
}

func TestDBCarriesRequestContext(t *testing.T) {
	base, conn := openBase(t)
	ctx := context.WithValue(context.Background(), ctxKey{}, "req-1")

	bound := base.DB(ctx)
	require.NotNil(t, bound.Statement)
	assert.Equal(t, "req-1", bound.Statement.Context.Value(ctxKey{}))
	assert.Same(t, conn, base.DB(nil))
}

func TestWithTxSwapsConnection(t *testing.T) {
	base, conn := openBase(t)
	assert.Same(t, conn, base.WithTx(nil).db)

	tx := conn.Begin()
	t.Cleanup(func() { tx.Rollback() })
	assert.Same(t, tx, base.WithTx(tx).db)
}

func TestLookupError(t *testing.T) {
	missing := LookupError(gorm.ErrRecordNotFound, "order not found", "load order")
	assert.True(t, pkgerrors.HasCode(missing, pkgerrors.CodeNotFound))
	assert.Equal(t, "NOT_FOUND: order not found", missing.Error())

	down := LookupError(errors.New("connection reset"), "order not found", "load order")
	assert.True(t, pkgerrors.HasCode(down, pkgerrors.CodeDependency))

	assert.True(t, IsNotFound(gorm.ErrRecordNotFound))
	assert.False(t, IsNotFound(errors.New("boom")))
}
