package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const OrderStatusPending = "pending"

// Order - заголовок заказа, создаётся один раз при успешном оформлении
type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ShippingAddress string          `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []OrderItem     `json:"items,omitempty"`
}

// OrderItem - позиция заказа; Price фиксируется на момент оформления и больше не пересчитывается
type OrderItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	ProductName string          `json:"product_name,omitempty"` // заполняется через JOIN с products
	Brand       string          `json:"brand,omitempty"`
	Image       string          `json:"image,omitempty"`
}

// LineItem - позиция, присланная клиентом при оформлении заказа
type LineItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity" validate:"lte=10000"`
}
