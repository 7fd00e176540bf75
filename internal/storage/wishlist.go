package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/linemk/tm-watch/internal/domain/models"
)

type WishlistStorage interface {
	GetWishlist(ctx context.Context, userID int64) ([]*models.WishlistItem, error)
	// AddItem - повторное добавление того же товара даёт ErrWishlistItemExists
	AddItem(ctx context.Context, userID, productID int64) error
	RemoveItem(ctx context.Context, userID, itemID int64) error
}

type wishlistRepository struct {
	db *sql.DB
}

func NewWishlistRepository(db *sql.DB) WishlistStorage {
	return &wishlistRepository{db: db}
}

func (r *wishlistRepository) GetWishlist(ctx context.Context, userID int64) ([]*models.WishlistItem, error) {
	query := `
		SELECT w.id, w.product_id, p.name, p.brand, p.image, p.price, p.original_price, p.stock
		FROM wishlist w
		JOIN products p ON w.product_id = p.id
		WHERE w.user_id = $1
		ORDER BY w.id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wishlist: %w", err)
	}
	defer rows.Close()

	items := make([]*models.WishlistItem, 0)
	for rows.Next() {
		item := &models.WishlistItem{}
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Name, &item.Brand, &item.Image,
			&item.Price, &item.OriginalPrice, &item.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *wishlistRepository) AddItem(ctx context.Context, userID, productID int64) error {
	_, err := r.db.ExecContext(ctx, "INSERT INTO wishlist (user_id, product_id) VALUES ($1, $2)", userID, productID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrWishlistItemExists
		}
		return fmt.Errorf("failed to add wishlist item: %w", err)
	}
	return nil
}

func (r *wishlistRepository) RemoveItem(ctx context.Context, userID, itemID int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM wishlist WHERE id = $1 AND user_id = $2", itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove wishlist item: %w", err)
	}
	return expectAffected(res, ErrWishlistItemNotFound)
}
