package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product представляет часы из каталога
type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Brand         string          `json:"brand"`
	Category      string          `json:"category"`
	Gender        string          `json:"gender"` // men, women или unisex
	Description   string          `json:"description"`
	Image         string          `json:"image"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Stock         int             `json:"stock"` // не бывает отрицательным
	CreatedAt     time.Time       `json:"created_at"`
}

// ProductFilter - параметры выборки каталога, пустые поля не участвуют в фильтрации
type ProductFilter struct {
	Category string
	Gender   string
	Brand    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Search   string
}
