package models

import "github.com/shopspring/decimal"

// CartLine - строка корзины пользователя
type CartLine struct {
	ID        int64 `json:"id"`
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CartItemView - строка корзины вместе с данными товара (JOIN с products)
type CartItemView struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
}
