package service_test

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/linemk/tm-watch/internal/domain/models"
	"github.com/linemk/tm-watch/internal/service"
	"github.com/linemk/tm-watch/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sqliteEnv - оформление заказа поверх настоящей файловой базы
type sqliteEnv struct {
	db       *sql.DB
	products storage.ProductStorage
	orders   storage.OrderStorage
	cart     storage.CartStorage
	outbox   storage.OutboxStorage
	svc      service.OrderService
	userID   int64
}

const testProductID = 1000

func newSQLiteEnv(t *testing.T) *sqliteEnv {
	t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "orders.db"), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(db, storage.DialectSQLite, "../../migrations/sqlite", "schema_migrations"))

	env := &sqliteEnv{
		db:       db,
		products: storage.NewProductRepository(db, storage.DialectSQLite),
		orders:   storage.NewOrderRepository(db),
		cart:     storage.NewCartRepository(db),
		outbox:   storage.NewOutboxRepository(db, storage.DialectSQLite),
	}
	env.svc = service.NewOrderService(newLogger(), db, env.products, env.orders, env.cart, env.outbox, nil)

	user, err := storage.NewUserRepository(db).CreateUser(context.Background(), &models.User{
		Name: "Buyer", Email: "buyer@example.com", PassHash: []byte("hash"), CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	env.userID = user.ID

	// товар с price=100 и stock=5
	_, err = db.Exec(`INSERT INTO products (id, name, brand, category, gender, price, original_price, stock)
		VALUES ($1, 'Test Watch', 'TEST', 'sport', 'unisex', 100, 120, 5)`, testProductID)
	require.NoError(t, err)
	return env
}

func (e *sqliteEnv) stock(t *testing.T, id int64) int {
	t.Helper()
	p, err := e.products.GetProductByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (e *sqliteEnv) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func (e *sqliteEnv) cartSize(t *testing.T) int {
	t.Helper()
	items, err := e.cart.GetCart(context.Background(), e.userID)
	require.NoError(t, err)
	return len(items)
}

func TestSQLite_PlaceOrder_Success(t *testing.T) {
	env := newSQLiteEnv(t)
	ctx := context.Background()
	require.NoError(t, env.cart.AddItem(ctx, env.userID, testProductID, 2))

	placed, err := env.svc.PlaceOrder(ctx, env.userID, placeRequest(models.LineItem{ProductID: testProductID, Quantity: 2}))
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(200).Equal(placed.Total))
	assert.Equal(t, 3, env.stock(t, testProductID))
	assert.Equal(t, 0, env.cartSize(t))

	order, err := env.orders.GetOrderByID(ctx, env.userID, placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.True(t, decimal.NewFromInt(200).Equal(order.TotalAmount))
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(100).Equal(order.Items[0].Price))
	assert.Equal(t, "Test Watch", order.Items[0].ProductName)

	assert.Equal(t, 1, env.count(t, "outbox"))
}

func TestSQLite_PlaceOrder_InsufficientStockLeavesNoTrace(t *testing.T) {
	env := newSQLiteEnv(t)
	ctx := context.Background()
	require.NoError(t, env.cart.AddItem(ctx, env.userID, testProductID, 10))

	_, err := env.svc.PlaceOrder(ctx, env.userID, placeRequest(models.LineItem{ProductID: testProductID, Quantity: 10}))
	assert.ErrorIs(t, err, service.ErrInsufficientStock)

	assert.Equal(t, 5, env.stock(t, testProductID))
	assert.Equal(t, 1, env.cartSize(t))
	assert.Equal(t, 0, env.count(t, "orders"))
	assert.Equal(t, 0, env.count(t, "outbox"))
}

func TestSQLite_PlaceOrder_QuantityOverflowIsInsufficientStock(t *testing.T) {
	env := newSQLiteEnv(t)

	_, err := env.svc.PlaceOrder(context.Background(), env.userID, placeRequest(
		models.LineItem{ProductID: testProductID, Quantity: 1},
		models.LineItem{ProductID: testProductID, Quantity: math.MaxInt},
	))
	assert.ErrorIs(t, err, service.ErrInsufficientStock)
	assert.NotErrorIs(t, err, service.ErrStorage)

	assert.Equal(t, 5, env.stock(t, testProductID))
	assert.Equal(t, 0, env.count(t, "orders"))
	assert.Equal(t, 0, env.count(t, "order_items"))
}

func TestSQLite_PlaceOrder_MissingProductNoPartialDecrement(t *testing.T) {
	env := newSQLiteEnv(t)

	_, err := env.svc.PlaceOrder(context.Background(), env.userID, placeRequest(
		models.LineItem{ProductID: testProductID, Quantity: 1},
		models.LineItem{ProductID: 99999, Quantity: 1},
	))
	assert.ErrorIs(t, err, service.ErrProductNotFound)

	var perr *service.PlacementError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, int64(99999), perr.ProductID)

	assert.Equal(t, 5, env.stock(t, testProductID))
	assert.Equal(t, 0, env.count(t, "orders"))
}

// failingCart роняет очистку корзины после того, как заказ, позиции и списания уже записаны
type failingCart struct {
	storage.CartStorage
}

func (f failingCart) ClearCart(ctx context.Context, tx *sql.Tx, userID int64) error {
	return errors.New("injected failure")
}

func TestSQLite_PlaceOrder_LateFailureRollsBackEverything(t *testing.T) {
	env := newSQLiteEnv(t)
	ctx := context.Background()
	require.NoError(t, env.cart.AddItem(ctx, env.userID, testProductID, 2))

	svc := service.NewOrderService(newLogger(), env.db, env.products, env.orders, failingCart{env.cart}, env.outbox, nil)
	_, err := svc.PlaceOrder(ctx, env.userID, placeRequest(models.LineItem{ProductID: testProductID, Quantity: 2}))
	assert.ErrorIs(t, err, service.ErrStorage)

	assert.Equal(t, 5, env.stock(t, testProductID))
	assert.Equal(t, 1, env.cartSize(t))
	assert.Equal(t, 0, env.count(t, "orders"))
	assert.Equal(t, 0, env.count(t, "order_items"))
	assert.Equal(t, 0, env.count(t, "outbox"))
}

func TestSQLite_PlaceOrder_ConcurrentOrdersNeverOversell(t *testing.T) {
	env := newSQLiteEnv(t)

	var (
		wg      sync.WaitGroup
		success int
		short   int
		mu      sync.Mutex
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.PlaceOrder(context.Background(), env.userID, placeRequest(models.LineItem{ProductID: testProductID, Quantity: 3}))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, service.ErrInsufficientStock):
				short++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, 1, short)
	assert.Equal(t, 2, env.stock(t, testProductID))
	assert.Equal(t, 1, env.count(t, "orders"))
}

func TestSQLite_PlaceOrder_ManyConcurrentBuyers(t *testing.T) {
	env := newSQLiteEnv(t)

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.PlaceOrder(context.Background(), env.userID, placeRequest(models.LineItem{ProductID: testProductID, Quantity: 1}))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	placed := 0
	for err := range results {
		if err == nil {
			placed++
			continue
		}
		assert.ErrorIs(t, err, service.ErrInsufficientStock)
	}
	assert.Equal(t, 5, placed)
	assert.Equal(t, 0, env.stock(t, testProductID))
}
