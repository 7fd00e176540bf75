package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/tm-watch/internal/domain/models"
	"github.com/linemk/tm-watch/internal/storage"
)

type WishlistService interface {
	GetWishlist(ctx context.Context, userID int64) ([]*models.WishlistItem, error)
	AddItem(ctx context.Context, userID, productID int64) error
	RemoveItem(ctx context.Context, userID, itemID int64) error
}

type wishlistService struct {
	log          *slog.Logger
	wishlistRepo storage.WishlistStorage
	productRepo  storage.ProductStorage
}

func NewWishlistService(log *slog.Logger, wishlistRepo storage.WishlistStorage, productRepo storage.ProductStorage) WishlistService {
	return &wishlistService{
		log:          log,
		wishlistRepo: wishlistRepo,
		productRepo:  productRepo,
	}
}

func (s *wishlistService) GetWishlist(ctx context.Context, userID int64) ([]*models.WishlistItem, error) {
	const op = "service.WishlistService.GetWishlist"

	items, err := s.wishlistRepo.GetWishlist(ctx, userID)
	if err != nil {
		s.log.Error("failed to get wishlist", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}
	return items, nil
}

// AddItem - товар должен существовать, повтор даёт ErrWishlistItemExists
func (s *wishlistService) AddItem(ctx context.Context, userID, productID int64) error {
	const op = "service.WishlistService.AddItem"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("productID", productID))

	if productID <= 0 {
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

	if err := s.wishlistRepo.AddItem(ctx, userID, productID); err != nil {
		if errors.Is(err, storage.ErrWishlistItemExists) {
			return fmt.Errorf("%s: %w", op, ErrWishlistItemExists)
		}
		logger.Error("failed to add wishlist item", slog.Any("error", err))
		return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}
	logger.Info("item added to wishlist")
	return nil
}

func (s *wishlistService) RemoveItem(ctx context.Context, userID, itemID int64) error {
	const op = "service.WishlistService.RemoveItem"

	if err := s.wishlistRepo.RemoveItem(ctx, userID, itemID); err != nil {
		if errors.Is(err, storage.ErrWishlistItemNotFound) {
			return fmt.Errorf("%s: %w", op, ErrWishlistItemNotFound)
		}
		s.log.Error("failed to remove wishlist item", slog.String("op", op), slog.Int64("userID", userID),
			slog.Int64("itemID", itemID), slog.Any("error", err))
		return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}
	return nil
}
