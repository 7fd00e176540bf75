package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrProductNotFound    = errors.New("product not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrStorage            = errors.New("storage error")
	ErrOrderNotFound      = errors.New("order not found")
	ErrCartItemNotFound   = errors.New("cart item not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongPassword      = errors.New("current password is incorrect")

	ErrWishlistItemNotFound = errors.New("wishlist item not found")
	ErrWishlistItemExists   = errors.New("product already in wishlist")
)

// PlacementError - отказ в оформлении заказа.
// Kind - одна из ошибок выше, ProductID - позиция, на которой остановилась проверка (0, если не относится к товару).
type PlacementError struct {
	Kind      error
	ProductID int64
	Err       error
}

func (e *PlacementError) Error() string {
	msg := e.Kind.Error()
	if e.ProductID != 0 {
		msg = fmt.Sprintf("%s: product %d", msg, e.ProductID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *PlacementError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func storageFailure(err error) *PlacementError {
	return &PlacementError{Kind: ErrStorage, Err: err}
}
