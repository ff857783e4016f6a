package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bnpl-checkout/cart"
	"bnpl-checkout/order"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "checkout.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(db))
	return db
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, Migrate(db))
}

func TestCartRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewCartRepository(openTestDB(t))

	items, err := repo.Load(ctx, "cart-1")
	require.NoError(t, err)
	assert.Nil(t, items)

	p, _ := cart.FindProduct("1")
	st := cart.SetQuantity(cart.Add(cart.NewState(nil), p), "1", 2)
	require.NoError(t, repo.Save(ctx, "cart-1", st.Items))

	items, err = repo.Load(ctx, "cart-1")
	require.NoError(t, err)
	loaded := cart.NewState(items)
	assert.Equal(t, 2, loaded.ItemCount)
	assert.True(t, loaded.Total.Equal(st.Total))

	require.NoError(t, repo.Save(ctx, "cart-1", nil))
	items, err = repo.Load(ctx, "cart-1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartRepository_CorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	_, err := db.Exec(`INSERT INTO cart_snapshots (cart_id, payload) VALUES ('cart-1', '{not json')`)
	require.NoError(t, err)

	_, err = NewCartRepository(db).Load(ctx, "cart-1")
	assert.Error(t, err)
}

func TestOrderRepository_RecordAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(openTestDB(t))

	p, _ := cart.FindProduct("3")
	o, err := order.Place(cart.Add(cart.NewState(nil), p), order.PaymentBNPL)
	require.NoError(t, err)
	require.NoError(t, repo.Record(ctx, "sess-1", o))
	assert.Error(t, repo.Record(ctx, "sess-1", o))

	list, err := repo.ListBySession(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, o.OrderNumber, list[0].OrderNumber)
	assert.True(t, list[0].TotalAmount.Equal(o.TotalAmount))
}
