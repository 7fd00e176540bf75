package storage_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/linemk/tm-watch/internal/domain/models"
	"github.com/linemk/tm-watch/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSQLiteDB поднимает файловую базу во временном каталоге со схемой и тестовым каталогом товаров.
func newSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "tmwatch.db"), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.RunMigrations(db, storage.DialectSQLite, "../../migrations/sqlite", "schema_migrations"))
	return db
}

func TestSQLite_SeededCatalog(t *testing.T) {
	db := newSQLiteDB(t)
	repo := storage.NewProductRepository(db, storage.DialectSQLite)
	ctx := context.Background()

	all, err := repo.ListProducts(ctx, models.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 18)

	p, err := repo.GetProductByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Chronograph Master Elite", p.Name)
	assert.True(t, decimal.NewFromInt(107817).Equal(p.Price))
	assert.Equal(t, 25, p.Stock)
}

func TestSQLite_GenderFilterIncludesUnisex(t *testing.T) {
	db := newSQLiteDB(t)
	repo := storage.NewProductRepository(db, storage.DialectSQLite)

	women, err := repo.ListProducts(context.Background(), models.ProductFilter{Gender: "women"})
	require.NoError(t, err)

	// 4 женских модели и 3 unisex
	assert.Len(t, women, 7)
	for _, p := range women {
		assert.Contains(t, []string{"women", "unisex"}, p.Gender)
	}
}

func TestSQLite_PriceRangeAndSearch(t *testing.T) {
	db := newSQLiteDB(t)
	repo := storage.NewProductRepository(db, storage.DialectSQLite)

	minPrice := decimal.NewFromInt(200000)
	expensive, err := repo.ListProducts(context.Background(), models.ProductFilter{MinPrice: &minPrice})
	require.NoError(t, err)
	for _, p := range expensive {
		assert.True(t, p.Price.GreaterThanOrEqual(minPrice), p.Name)
	}
	assert.Len(t, expensive, 3)

	found, err := repo.ListProducts(context.Background(), models.ProductFilter{Search: "DIVING"})
	require.NoError(t, err)
	require.Len(t, found, 2)
}

func TestSQLite_DecrementStockNeverNegative(t *testing.T) {
	db := newSQLiteDB(t)
	repo := storage.NewProductRepository(db, storage.DialectSQLite)
	ctx := context.Background()

	err := storage.WithTx(ctx, db, func(tx *sql.Tx) error {
		return repo.DecrementStock(ctx, tx, 5, 11)
	})
	assert.ErrorIs(t, err, storage.ErrInsufficientStock)

	err = storage.WithTx(ctx, db, func(tx *sql.Tx) error {
		return repo.DecrementStock(ctx, tx, 5, 10)
	})
	assert.NoError(t, err)

	p, err := repo.GetProductByID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
}

func TestSQLite_UserAndCart(t *testing.T) {
	db := newSQLiteDB(t)
	users := storage.NewUserRepository(db)
	cart := storage.NewCartRepository(db)
	ctx := context.Background()

	user, err := users.CreateUser(ctx, &models.User{Name: "Ann", Email: "ann@example.com", PassHash: []byte("hash"), CreatedAt: time.Now().UTC()})
	require.NoError(t, err)

	_, err = users.CreateUser(ctx, &models.User{Name: "Ann 2", Email: "ann@example.com", PassHash: []byte("hash"), CreatedAt: time.Now().UTC()})
	assert.ErrorIs(t, err, storage.ErrUserExists)

	require.NoError(t, cart.AddItem(ctx, user.ID, 3, 1))
	require.NoError(t, cart.AddItem(ctx, user.ID, 3, 2))

	items, err := cart.GetCart(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)

	assert.ErrorIs(t, cart.RemoveItem(ctx, user.ID+1, items[0].ID), storage.ErrCartItemNotFound)

	err = storage.WithTx(ctx, db, func(tx *sql.Tx) error {
		return cart.ClearCart(ctx, tx, user.ID)
	})
	require.NoError(t, err)

	items, err = cart.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSQLite_WishlistAndProfile(t *testing.T) {
	db := newSQLiteDB(t)
	users := storage.NewUserRepository(db)
	wishlist := storage.NewWishlistRepository(db)
	ctx := context.Background()

	user, err := users.CreateUser(ctx, &models.User{Name: "Ann", Email: "ann@example.com", PassHash: []byte("hash"), CreatedAt: time.Now().UTC()})
	require.NoError(t, err)

	require.NoError(t, wishlist.AddItem(ctx, user.ID, 3))
	assert.ErrorIs(t, wishlist.AddItem(ctx, user.ID, 3), storage.ErrWishlistItemExists)

	items, err := wishlist.GetWishlist(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(3), items[0].ProductID)
	assert.NotEmpty(t, items[0].Name)

	assert.ErrorIs(t, wishlist.RemoveItem(ctx, user.ID+1, items[0].ID), storage.ErrWishlistItemNotFound)
	require.NoError(t, wishlist.RemoveItem(ctx, user.ID, items[0].ID))

	name, phone := "Anna", "+100"
	updated, err := users.UpdateProfile(ctx, user.ID, models.ProfileUpdate{Name: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Anna", updated.Name)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, "+100", *updated.Phone)

	require.NoError(t, users.UpdatePassword(ctx, user.ID, []byte("new-hash")))
	stored, err := users.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("new-hash"), stored.PassHash)
}

func TestSQLite_OutboxLifecycle(t *testing.T) {
	db := newSQLiteDB(t)
	outbox := storage.NewOutboxRepository(db, storage.DialectSQLite)
	ctx := context.Background()

	err := storage.WithTx(ctx, db, func(tx *sql.Tx) error {
		return outbox.Enqueue(ctx, tx, &models.OutboxEvent{
			AggregateType: "order",
			AggregateID:   "1",
			Type:          models.EventOrderPlaced,
			Payload:       []byte(`{"order_id":1}`),
			CreatedAt:     time.Now().UTC(),
		})
	})
	require.NoError(t, err)

	batch, err := outbox.LockBatch(ctx, "relay-1", 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, models.EventOrderPlaced, batch[0].Type)

	// арендованное событие не выдаётся повторно, пока не истекла аренда
	again, err := outbox.LockBatch(ctx, "relay-2", 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, outbox.MarkSent(ctx, []int64{batch[0].ID}))

	var status string
	require.NoError(t, db.QueryRow("SELECT status FROM outbox WHERE id = $1", batch[0].ID).Scan(&status))
	assert.Equal(t, models.EventStatusSent, status)
}
