package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect - поддерживаемые бэкенды хранения
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("user already exists")
	ErrOrderNotFound     = errors.New("order not found")
	ErrCartItemNotFound  = errors.New("cart item not found")

	ErrWishlistItemNotFound = errors.New("wishlist item not found")
	ErrWishlistItemExists   = errors.New("product already in wishlist")
)

// ParseDialect проверяет название драйвера из конфига
func ParseDialect(driver string) (Dialect, error) {
	switch Dialect(driver) {
	case DialectPostgres, DialectSQLite:
		return Dialect(driver), nil
	default:
		return "", fmt.Errorf("unsupported storage driver %q", driver)
	}
}

// lockClause возвращает суффикс блокировки строки для SELECT.
// В SQLite пишущие транзакции и так сериализуются (пул из одного соединения).
func (d Dialect) lockClause() string {
	if d == DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

func (d Dialect) skipLockedClause() string {
	if d == DialectPostgres {
		return " FOR UPDATE SKIP LOCKED"
	}
	return ""
}

// WithTx выполняет fn внутри транзакции.
// Коммит только если fn вернула nil, в остальных случаях (ошибка, паника) - откат.
// Соединение возвращается в пул на любом пути выхода.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// isUniqueViolation распознаёт нарушение уникального ограничения для обоих драйверов
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
