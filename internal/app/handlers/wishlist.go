package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/tm-watch/internal/domain/models"
	"github.com/linemk/tm-watch/internal/service"
)

type WishlistResponse struct {
	Count    int                    `json:"count"`
	Wishlist []*models.WishlistItem `json:"wishlist"`
}

type AddToWishlistRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

// GetWishlistHandler обрабатывает GET /api/wishlist
func GetWishlistHandler(log *slog.Logger, wishlist service.WishlistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetWishlistHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFrom(w, r, logger)
		if !ok {
			return
		}

		items, err := wishlist.GetWishlist(r.Context(), userID)
		if err != nil {
			logger.Error("failed to get wishlist", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, WishlistResponse{Count: len(items), Wishlist: items})
	}
}

// AddToWishlistHandler обрабатывает POST /api/wishlist
func AddToWishlistHandler(log *slog.Logger, wishlist service.WishlistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddToWishlistHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFrom(w, r, logger)
		if !ok {
			return
		}

		var req AddToWishlistRequest
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

		if err := wishlist.AddItem(r.Context(), userID, req.ProductID); err != nil {
			writeWishlistError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, MessageResponse{Message: "Product added to wishlist"})
	}
}

// RemoveFromWishlistHandler обрабатывает DELETE /api/wishlist/{id}
func RemoveFromWishlistHandler(log *slog.Logger, wishlist service.WishlistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveFromWishlistHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFrom(w, r, logger)
		if !ok {
			return
		}
		itemID, ok := idParam(r, "id")
		if !ok {
			http.Error(w, "invalid wishlist item id", http.StatusBadRequest)
			return
		}

		if err := wishlist.RemoveItem(r.Context(), userID, itemID); err != nil {
			writeWishlistError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, MessageResponse{Message: "Item removed from wishlist"})
	}
}

func writeWishlistError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		http.Error(w, "invalid request", http.StatusBadRequest)
	case errors.Is(err, service.ErrProductNotFound):
		http.Error(w, "product not found", http.StatusNotFound)
	case errors.Is(err, service.ErrWishlistItemExists):
		http.Error(w, "product already in wishlist", http.StatusBadRequest)
	case errors.Is(err, service.ErrWishlistItemNotFound):
		http.Error(w, "wishlist item not found", http.StatusNotFound)
	default:
		logger.Error("wishlist operation failed", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
