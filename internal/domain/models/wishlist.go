package models

import "github.com/shopspring/decimal"

// WishlistItem - строка избранного вместе с данными товара
type WishlistItem struct {
	ID            int64           `json:"id"`
	ProductID     int64           `json:"product_id"`
	Name          string          `json:"name"`
	Brand         string          `json:"brand"`
	Image         string          `json:"image"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Stock         int             `json:"stock"`
}
