package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/linemk/tm-watch/internal/domain/models"
)

// ProductStorage описывает методы для работы с каталогом товаров.
type ProductStorage interface {
	// GetProductByID возвращает товар вне транзакции (для витрины и корзины).
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	// ListProducts возвращает товары по фильтру, новые первыми.
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error)
	// GetProductForUpdate читает цену и остаток внутри транзакции с блокировкой строки.
	GetProductForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error)
	// DecrementStock списывает остаток; никогда не уводит его ниже нуля.
	DecrementStock(ctx context.Context, tx *sql.Tx, id int64, quantity int) error
}

type productRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewProductRepository создаёт новый репозиторий каталога.
func NewProductRepository(db *sql.DB, dialect Dialect) ProductStorage {
	return &productRepository{db: db, dialect: dialect}
}

const productColumns = "id, name, brand, category, gender, description, image, price, original_price, stock, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.Category, &p.Gender, &p.Description, &p.Image,
		&p.Price, &p.OriginalPrice, &p.Stock, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE id = $1"
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (r *productRepository) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	var (
		conds []string
		args  []any
	)
	// плейсхолдеры нумеруются по мере добавления условий
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Category != "" {
		conds = append(conds, "category = "+arg(filter.Category))
	}
	if filter.Gender != "" {
		conds = append(conds, "(gender = "+arg(filter.Gender)+" OR gender = 'unisex')")
	}
	if filter.Brand != "" {
		conds = append(conds, "brand = "+arg(filter.Brand))
	}
	if filter.MinPrice != nil {
		conds = append(conds, "price >= "+arg(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		conds = append(conds, "price <= "+arg(*filter.MaxPrice))
	}
	if filter.Search != "" {
		p := arg("%" + strings.ToLower(filter.Search) + "%")
		conds = append(conds, "(LOWER(name) LIKE "+p+" OR LOWER(description) LIKE "+p+" OR LOWER(brand) LIKE "+p+")")
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]*models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) GetProductForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE id = $1" + r.dialect.lockClause()
	p, err := scanProduct(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *productRepository) DecrementStock(ctx context.Context, tx *sql.Tx, id int64, quantity int) error {
	// условие stock >= $1 - страховка за проверкой остатка в сервисе
	res, err := tx.ExecContext(ctx, "UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1", quantity, id)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("product %d: %w", id, ErrInsufficientStock)
	}
	return nil
}
