package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/tm-watch/internal/domain/models"
	"github.com/linemk/tm-watch/internal/service"
)

type CartResponse struct {
	Count int                    `json:"count"`
	Cart  []*models.CartItemView `json:"cart"`
}

type AddToCartRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"gte=0"`
}

type UpdateCartRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// GetCartHandler обрабатывает GET /api/cart
func GetCartHandler(log *slog.Logger, cart service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFrom(w, r, logger)
		if !ok {
			return
		}

		items, err := cart.GetCart(r.Context(), userID)
		if err != nil {
			logger.Error("failed to get cart", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, CartResponse{Count: len(items), Cart: items})
	}
}

// AddToCartHandler обрабатывает POST /api/cart
func AddToCartHandler(log *slog.Logger, cart service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddToCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFrom(w, r, logger)
		if !ok {
			return
		}

		var req AddToCartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		if err := cart.AddItem(r.Context(), userID, req.ProductID, req.Quantity); err != nil {
			writeCartError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, MessageResponse{Message: "Item added to cart"})
	}
}

// UpdateCartItemHandler обрабатывает PUT /api/cart/{id}
func UpdateCartItemHandler(log *slog.Logger, cart service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateCartItemHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFrom(w, r, logger)
		if !ok {
			return
		}
		itemID, ok := idParam(r, "id")
		if !ok {
			http.Error(w, "invalid cart item id", http.StatusBadRequest)
			return
		}

		var req UpdateCartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, "quantity must be at least 1", http.StatusBadRequest)
			return
		}

		if err := cart.UpdateItem(r.Context(), userID, itemID, req.Quantity); err != nil {
			writeCartError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, MessageResponse{Message: "Cart updated"})
	}
}

// RemoveCartItemHandler обрабатывает DELETE /api/cart/{id}
func RemoveCartItemHandler(log *slog.Logger, cart service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveCartItemHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFrom(w, r, logger)
		if !ok {
			return
		}
		itemID, ok := idParam(r, "id")
		if !ok {
			http.Error(w, "invalid cart item id", http.StatusBadRequest)
			return
		}

		if err := cart.RemoveItem(r.Context(), userID, itemID); err != nil {
			writeCartError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, MessageResponse{Message: "Item removed from cart"})
	}
}

// ClearCartHandler обрабатывает DELETE /api/cart
func ClearCartHandler(log *slog.Logger, cart service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ClearCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFrom(w, r, logger)
		if !ok {
			return
		}

		if err := cart.Clear(r.Context(), userID); err != nil {
			writeCartError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, MessageResponse{Message: "Cart cleared"})
	}
}

func writeCartError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		http.Error(w, "invalid request", http.StatusBadRequest)
	case errors.Is(err, service.ErrProductNotFound):
		http.Error(w, "product not found", http.StatusNotFound)
	case errors.Is(err, service.ErrCartItemNotFound):
		http.Error(w, "cart item not found", http.StatusNotFound)
	default:
		logger.Error("cart operation failed", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
