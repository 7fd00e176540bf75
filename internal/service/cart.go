package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/tm-watch/internal/domain/models"
	"github.com/linemk/tm-watch/internal/storage"
)

type CartService interface {
	GetCart(ctx context.Context, userID int64) ([]*models.CartItemView, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) error
	UpdateItem(ctx context.Context, userID, itemID int64, quantity int) error
	RemoveItem(ctx context.Context, userID, itemID int64) error
	Clear(ctx context.Context, userID int64) error
}

type cartService struct {
	log         *slog.Logger
	db          *sql.DB
	cartRepo    storage.CartStorage
	productRepo storage.ProductStorage
}

func NewCartService(log *slog.Logger, db *sql.DB, cartRepo storage.CartStorage, productRepo storage.ProductStorage) CartService {
	return &cartService{
		log:         log,
		db:          db,
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

func (s *cartService) GetCart(ctx context.Context, userID int64) ([]*models.CartItemView, error) {
	const op = "service.CartService.GetCart"

	items, err := s.cartRepo.GetCart(ctx, userID)
	if err != nil {
		s.log.Error("failed to get cart", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}
	return items, nil
}

// AddItem кладёт товар в корзину; количество по умолчанию 1, повторное добавление увеличивает его
func (s *cartService) AddItem(ctx context.Context, userID, productID int64, quantity int) error {
	const op = "service.CartService.AddItem"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("productID", productID))

	if quantity == 0 {
		quantity = 1
	}
	if productID <= 0 || quantity < 0 {
		return fmt.Errorf("%s: %w", op, ErrInvalidRequest)
	}

	if _, err := s.productRepo.GetProductByID(ctx, productID); err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			logger.Warn("product not found")
			return fmt.Errorf("%s: %w", op, ErrProductNotFound)
		}
		logger.Error("failed to get product", slog.Any("error", err))
		return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}

	if err := s.cartRepo.AddItem(ctx, userID, productID, quantity); err != nil {
		logger.Error("failed to add cart item", slog.Any("error", err))
		return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}
	logger.Info("item added to cart", slog.Int("quantity", quantity))
	return nil
}

func (s *cartService) UpdateItem(ctx context.Context, userID, itemID int64, quantity int) error {
	const op = "service.CartService.UpdateItem"

	if quantity < 1 {
		return fmt.Errorf("%s: quantity must be at least 1: %w", op, ErrInvalidRequest)
	}
	if err := s.cartRepo.UpdateQuantity(ctx, userID, itemID, quantity); err != nil {
		return s.mapItemError(op, userID, itemID, err)
	}
	return nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID int64) error {
	const op = "service.CartService.RemoveItem"

	if err := s.cartRepo.RemoveItem(ctx, userID, itemID); err != nil {
		return s.mapItemError(op, userID, itemID, err)
	}
	return nil
}

func (s *cartService) Clear(ctx context.Context, userID int64) error {
	const op = "service.CartService.Clear"

	err := storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.cartRepo.ClearCart(ctx, tx, userID)
	})
	if err != nil {
		s.log.Error("failed to clear cart", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}
	return nil
}

func (s *cartService) mapItemError(op string, userID, itemID int64, err error) error {
	if errors.Is(err, storage.ErrCartItemNotFound) {
		return fmt.Errorf("%s: %w", op, ErrCartItemNotFound)
	}
	s.log.Error("cart item operation failed", slog.String("op", op), slog.Int64("userID", userID),
		slog.Int64("itemID", itemID), slog.Any("error", err))
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
