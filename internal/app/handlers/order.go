package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/linemk/tm-watch/internal/domain/models"
	"github.com/linemk/tm-watch/internal/idempotency"
	"github.com/linemk/tm-watch/internal/service"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	placeOrderScope      = "place-order"
	maxIdempotencyKeyLen = 128
)

// IdempotencyStore хранит ответы на запросы с заголовком Idempotency-Key
type IdempotencyStore interface {
	Key(scope string, userID int64, key string) string
	Reserve(ctx context.Context, key, fingerprint string) (*idempotency.Response, error)
	Complete(ctx context.Context, key, fingerprint string, resp idempotency.Response) error
	Release(ctx context.Context, key string) error
}

var _ IdempotencyStore = (*idempotency.Store)(nil)

// PlaceOrderRequest тело POST /api/orders
type PlaceOrderRequest struct {
	Items           []models.LineItem `json:"items" validate:"dive"`
	ShippingAddress string            `json:"shipping_address" validate:"max=1000"`
	PaymentMethod   string            `json:"payment_method" validate:"max=50"`
}

type OrdersResponse struct {
	Count  int             `json:"count"`
	Orders []*models.Order `json:"orders"`
}

// PlaceOrderHandler обрабатывает POST /api/orders.
// idem может быть nil, тогда заголовок Idempotency-Key игнорируется.
func PlaceOrderHandler(log *slog.Logger, orders service.OrderService, idem IdempotencyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PlaceOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFrom(w, r, logger)
		if !ok {
			return
		}

		var req PlaceOrderRequest
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

		var idemKey, fingerprint string
		if raw := r.Header.Get(IdempotencyKeyHeader); raw != "" && idem != nil {
			if len(raw) > maxIdempotencyKeyLen {
				http.Error(w, "idempotency key is too long", http.StatusBadRequest)
				return
			}
			idemKey = idem.Key(placeOrderScope, userID, raw)

			var err error
			if fingerprint, err = idempotency.Fingerprint(req); err != nil {
				logger.Error("failed to fingerprint request", slog.Any("error", err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			stored, err := idem.Reserve(r.Context(), idemKey, fingerprint)
			switch {
			case errors.Is(err, idempotency.ErrFingerprintMismatch):
				http.Error(w, "idempotency key was already used with a different request", http.StatusUnprocessableEntity)
				return
			case errors.Is(err, idempotency.ErrInProgress):
				http.Error(w, "request with this idempotency key is in progress", http.StatusConflict)
				return
			case err != nil:
				// без redis заказ всё равно оформляем, но уже без защиты от повтора
				logger.Error("idempotency store unavailable", slog.Any("error", err))
				idemKey = ""
			case stored != nil:
				logger.Info("replaying stored response", slog.Int("status", stored.Status))
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}
		}

		placed, err := orders.PlaceOrder(r.Context(), userID, service.PlaceOrderRequest{
			Items:           req.Items,
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   req.PaymentMethod,
		})
		if err != nil {
			if idemKey != "" {
				if rerr := idem.Release(context.WithoutCancel(r.Context()), idemKey); rerr != nil {
					logger.Error("failed to release idempotency key", slog.Any("error", rerr))
				}
			}
			status, msg := placementStatus(err)
			if status == http.StatusInternalServerError {
				logger.Error("failed to place order", slog.Any("error", err))
			}
			http.Error(w, msg, status)
			return
		}

		if idemKey != "" {
			body, err := json.Marshal(placed)
			if err == nil {
				err = idem.Complete(context.WithoutCancel(r.Context()), idemKey, fingerprint, idempotency.Response{
					Status: http.StatusCreated,
					Body:   body,
				})
			}
			if err != nil {
				logger.Error("failed to store idempotent response", slog.Any("error", err))
			}
		}

		writeJSON(w, logger, http.StatusCreated, placed)
	}
}

// placementStatus переводит ошибку оформления в статус и текст для клиента.
// Подробности ошибок хранилища клиенту не отдаются.
func placementStatus(err error) (int, string) {
	var perr *service.PlacementError
	errors.As(err, &perr)

	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		if perr != nil && perr.Err != nil {
			return http.StatusBadRequest, perr.Err.Error()
		}
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, service.ErrProductNotFound):
		if perr != nil && perr.ProductID != 0 {
			return http.StatusNotFound, fmt.Sprintf("product %d not found", perr.ProductID)
		}
		return http.StatusNotFound, "product not found"
	case errors.Is(err, service.ErrInsufficientStock):
		if perr != nil && perr.ProductID != 0 {
			return http.StatusBadRequest, fmt.Sprintf("insufficient stock for product %d", perr.ProductID)
		}
		return http.StatusBadRequest, "insufficient stock"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// ListOrdersHandler обрабатывает GET /api/orders
func ListOrdersHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFrom(w, r, logger)
		if !ok {
			return
		}

		list, err := orders.ListOrders(r.Context(), userID)
		if err != nil {
			logger.Error("failed to list orders", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, OrdersResponse{Count: len(list), Orders: list})
	}
}

// GetOrderHandler обрабатывает GET /api/orders/{id}, чужие заказы не видны
func GetOrderHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFrom(w, r, logger)
		if !ok {
			return
		}
		orderID, ok := idParam(r, "id")
		if !ok {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		order, err := orders.GetOrder(r.Context(), userID, orderID)
		if err != nil {
			if errors.Is(err, service.ErrOrderNotFound) {
				http.Error(w, "order not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get order", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, order)
	}
}
