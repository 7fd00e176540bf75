package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/linemk/tm-watch/internal/cache"
	"github.com/linemk/tm-watch/internal/domain/models"
	"github.com/linemk/tm-watch/internal/storage"
	"github.com/shopspring/decimal"
)

// PlaceOrderRequest - данные оформления заказа
type PlaceOrderRequest struct {
	Items           []models.LineItem
	ShippingAddress string
	PaymentMethod   string
}

// PlacedOrder - результат успешного оформления
type PlacedOrder struct {
	OrderID int64           `json:"orderId"`
	Total   decimal.Decimal `json:"total"`
}

type OrderService interface {
	PlaceOrder(ctx context.Context, userID int64, req PlaceOrderRequest) (*PlacedOrder, error)
	ListOrders(ctx context.Context, userID int64) ([]*models.Order, error)
	GetOrder(ctx context.Context, userID, orderID int64) (*models.Order, error)
}

type orderService struct {
	log         *slog.Logger
	db          *sql.DB
	productRepo storage.ProductStorage
	orderRepo   storage.OrderStorage
	cartRepo    storage.CartStorage
	events      storage.OutboxStorage // nil - события не пишутся
	cache       cache.ProductCache    // nil - кэш не используется
}

func NewOrderService(
	log *slog.Logger,
	db *sql.DB,
	productRepo storage.ProductStorage,
	orderRepo storage.OrderStorage,
	cartRepo storage.CartStorage,
	events storage.OutboxStorage,
	productCache cache.ProductCache,
) OrderService {
	return &orderService{
		log:         log,
		db:          db,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		events:      events,
		cache:       productCache,
	}
}

type orderPlacedPayload struct {
	OrderID   int64              `json:"order_id"`
	UserID    int64              `json:"user_id"`
	Total     decimal.Decimal    `json:"total"`
	Items     []models.OrderItem `json:"items"`
	CreatedAt time.Time          `json:"created_at"`
}

// PlaceOrder оформляет заказ одной транзакцией: проверка позиций, заголовок, позиции,
// списание остатков, очистка корзины. Любая ошибка откатывает всё целиком.
func (s *orderService) PlaceOrder(ctx context.Context, userID int64, req PlaceOrderRequest) (*PlacedOrder, error) {
	const op = "service.OrderService.PlaceOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int("lines", len(req.Items)))

	if err := validateLineItems(req.Items); err != nil {
		logger.Warn("rejected order request", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("starting order placement")

	var placed *PlacedOrder
	var items []models.OrderItem
	err := storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		products, err := s.lockProducts(ctx, tx, req.Items)
		if err != nil {
			return err
		}

		// проверка идёт в порядке, в котором прислал клиент; ничего не пишем
		total := decimal.Zero
		requested := make(map[int64]int, len(products))
		items = make([]models.OrderItem, 0, len(req.Items))
		for _, line := range req.Items {
			product, ok := products[line.ProductID]
			if !ok {
				return &PlacementError{Kind: ErrProductNotFound, ProductID: line.ProductID}
			}
			// сравнение через остаток, а не через сумму: сумма количеств может переполнить int
			if line.Quantity > product.Stock-requested[line.ProductID] {
				return &PlacementError{Kind: ErrInsufficientStock, ProductID: line.ProductID}
			}
			requested[line.ProductID] += line.Quantity
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
			items = append(items, models.OrderItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Price:     product.Price,
			})
		}

		order := &models.Order{
			UserID:          userID,
			TotalAmount:     total,
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   req.PaymentMethod,
			Status:          models.OrderStatusPending,
			CreatedAt:       time.Now().UTC(),
		}
		orderID, err := s.orderRepo.CreateOrder(ctx, tx, order)
		if err != nil {
			return storageFailure(err)
		}

		for i := range items {
			items[i].OrderID = orderID
			if err := s.orderRepo.CreateOrderItem(ctx, tx, &items[i]); err != nil {
				return storageFailure(err)
			}
			if err := s.productRepo.DecrementStock(ctx, tx, items[i].ProductID, items[i].Quantity); err != nil {
				return storageFailure(err)
			}
		}

		if err := s.cartRepo.ClearCart(ctx, tx, userID); err != nil {
			return storageFailure(err)
		}

		if s.events != nil {
			if err := s.enqueueOrderPlaced(ctx, tx, orderID, order, items); err != nil {
				return storageFailure(err)
			}
		}

		placed = &PlacedOrder{OrderID: orderID, Total: total}
		return nil
	})
	if err != nil {
		var perr *PlacementError
		if errors.As(err, &perr) && !errors.Is(perr.Kind, ErrStorage) {
			logger.Warn("order rejected", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		logger.Error("order placement failed", slog.Any("error", err))
		if perr == nil {
			err = storageFailure(err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidateProducts(ctx, logger, items)

	logger.Info("order placed", slog.Int64("orderID", placed.OrderID), slog.String("total", placed.Total.String()))
	return placed, nil
}

func validateLineItems(items []models.LineItem) error {
	if len(items) == 0 {
		return &PlacementError{Kind: ErrInvalidRequest, Err: errors.New("no items in order")}
	}
	for i, line := range items {
		if line.ProductID <= 0 {
			return &PlacementError{Kind: ErrInvalidRequest, Err: fmt.Errorf("item %d: invalid product id %d", i, line.ProductID)}
		}
		if line.Quantity <= 0 {
			return &PlacementError{Kind: ErrInvalidRequest, ProductID: line.ProductID, Err: fmt.Errorf("item %d: quantity must be positive", i)}
		}
	}
	return nil
}

// lockProducts читает товары под блокировкой строго по возрастанию id,
// так два заказа с общими товарами не могут заблокировать друг друга.
// Отсутствующих товаров в результате нет.
func (s *orderService) lockProducts(ctx context.Context, tx *sql.Tx, lines []models.LineItem) (map[int64]*models.Product, error) {
	ids := make([]int64, 0, len(lines))
	seen := make(map[int64]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	products := make(map[int64]*models.Product, len(ids))
	for _, id := range ids {
		p, err := s.productRepo.GetProductForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, storage.ErrProductNotFound) {
				continue
			}
			return nil, storageFailure(err)
		}
		products[id] = p
	}
	return products, nil
}

func (s *orderService) enqueueOrderPlaced(ctx context.Context, tx *sql.Tx, orderID int64, order *models.Order, items []models.OrderItem) error {
	payload, err := json.Marshal(orderPlacedPayload{
		OrderID:   orderID,
		UserID:    order.UserID,
		Total:     order.TotalAmount,
		Items:     items,
		CreatedAt: order.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	return s.events.Enqueue(ctx, tx, &models.OutboxEvent{
		AggregateType: "order",
		AggregateID:   strconv.FormatInt(orderID, 10),
		Type:          models.EventOrderPlaced,
		Payload:       payload,
		CreatedAt:     order.CreatedAt,
	})
}

// invalidateProducts сбрасывает закэшированные остатки после коммита; ошибки кэша только логируются
func (s *orderService) invalidateProducts(ctx context.Context, logger *slog.Logger, items []models.OrderItem) {
	if s.cache == nil || len(items) == 0 {
		return
	}
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	if err := s.cache.Delete(ctx, ids...); err != nil {
		logger.Warn("failed to invalidate product cache", slog.Any("error", err))
	}
}

func (s *orderService) ListOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	const op = "service.OrderService.ListOrders"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	orders, err := s.orderRepo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		logger.Error("failed to list orders", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}
	return orders, nil
}

func (s *orderService) GetOrder(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	const op = "service.OrderService.GetOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("orderID", orderID))

	order, err := s.orderRepo.GetOrderByID(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrOrderNotFound)
		}
		logger.Error("failed to get order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}
	return order, nil
}
