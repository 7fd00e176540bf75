package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/linemk/tm-watch/internal/domain/models"
)

// CartStorage описывает методы для работы с корзиной пользователя.
type CartStorage interface {
	// GetCart возвращает строки корзины вместе с данными товаров.
	GetCart(ctx context.Context, userID int64) ([]*models.CartItemView, error)
	// AddItem добавляет товар в корзину или увеличивает количество уже лежащего.
	AddItem(ctx context.Context, userID, productID int64, quantity int) error
	// UpdateQuantity задаёт количество для строки корзины пользователя.
	UpdateQuantity(ctx context.Context, userID, itemID int64, quantity int) error
	// RemoveItem удаляет строку корзины пользователя.
	RemoveItem(ctx context.Context, userID, itemID int64) error
	// ClearCart удаляет все строки корзины пользователя в рамках транзакции.
	ClearCart(ctx context.Context, tx *sql.Tx, userID int64) error
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository создаёт новый репозиторий корзины.
func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

func (r *cartRepository) GetCart(ctx context.Context, userID int64) ([]*models.CartItemView, error) {
	query := `
		SELECT c.id, c.product_id, c.quantity, p.name, p.brand, p.image, p.price, p.stock
		FROM cart_items c
		JOIN products p ON c.product_id = p.id
		WHERE c.user_id = $1
		ORDER BY c.id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	defer rows.Close()

	items := make([]*models.CartItemView, 0)
	for rows.Next() {
		item := &models.CartItemView{}
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Quantity, &item.Name, &item.Brand, &item.Image, &item.Price, &item.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *cartRepository) AddItem(ctx context.Context, userID, productID int64, quantity int) error {
	query := `INSERT INTO cart_items (user_id, product_id, quantity)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = cart_items.quantity + excluded.quantity`
	if _, err := r.db.ExecContext(ctx, query, userID, productID, quantity); err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) UpdateQuantity(ctx context.Context, userID, itemID int64, quantity int) error {
	res, err := r.db.ExecContext(ctx, "UPDATE cart_items SET quantity = $1 WHERE id = $2 AND user_id = $3", quantity, itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	return expectAffected(res, ErrCartItemNotFound)
}

func (r *cartRepository) RemoveItem(ctx context.Context, userID, itemID int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE id = $1 AND user_id = $2", itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return expectAffected(res, ErrCartItemNotFound)
}

func (r *cartRepository) ClearCart(ctx context.Context, tx *sql.Tx, userID int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func expectAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
