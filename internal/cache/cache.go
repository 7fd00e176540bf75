package cache

import (
	"context"
	"errors"

	"github.com/linemk/tm-watch/internal/domain/models"
)

// ProductCache кэш карточек товаров.
type ProductCache interface {
	Get(ctx context.Context, id int64) (*models.Product, error)
	Set(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, ids ...int64) error
}

var ErrCacheMiss = errors.New("cache miss")
