package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/linemk/tm-watch/internal/cache"
	"github.com/linemk/tm-watch/internal/domain/models"
	"github.com/linemk/tm-watch/internal/storage"
	"golang.org/x/sync/singleflight"
)

const productLoadTimeout = 5 * time.Second

type CatalogService interface {
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
}

type catalogService struct {
	log         *slog.Logger
	productRepo storage.ProductStorage
	cache       cache.ProductCache
	group       singleflight.Group
}

// NewCatalogService - productCache может быть nil, тогда все чтения идут в базу
func NewCatalogService(log *slog.Logger, productRepo storage.ProductStorage, productCache cache.ProductCache) CatalogService {
	return &catalogService{
		log:         log,
		productRepo: productRepo,
		cache:       productCache,
	}
}

func (s *catalogService) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	const op = "service.CatalogService.ListProducts"

	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, fmt.Errorf("%s: minPrice is greater than maxPrice: %w", op, ErrInvalidRequest)
	}

	products, err := s.productRepo.ListProducts(ctx, filter)
	if err != nil {
		s.log.Error("failed to list products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}
	return products, nil
}

// GetProduct - cache-aside: промахи по одному id схлопываются в одно чтение из базы
func (s *catalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	const op = "service.CatalogService.GetProduct"
	logger := s.log.With(slog.String("op", op), slog.Int64("productID", id))

	if s.cache != nil {
		p, err := s.cache.Get(ctx, id)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn("product cache unavailable", slog.Any("error", err))
		}
	}

	// чтение общее для всех ожидающих, поэтому не зависит от отмены контекста первого из них
	ch := s.group.DoChan(strconv.FormatInt(id, 10), func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), productLoadTimeout)
		defer cancel()

		p, err := s.productRepo.GetProductByID(loadCtx, id)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(loadCtx, p); err != nil {
				logger.Warn("failed to cache product", slog.Any("error", err))
			}
		}
		return p, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	case res = <-ch:
	}

	v, err := res.Val, res.Err
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrProductNotFound)
		}
		logger.Error("failed to get product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}
	return v.(*models.Product), nil
}
