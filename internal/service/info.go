package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/tm-watch/internal/domain/models"
	"github.com/linemk/tm-watch/internal/storage"
	"github.com/shopspring/decimal"
)

// InfoService определяет интерфейс для получения информации о пользователе.
type InfoService interface {
	GetInfo(ctx context.Context, userID int64) (*InfoResponse, error)
}

type infoService struct {
	log       *slog.Logger
	userRepo  storage.UserStorage
	orderRepo storage.OrderStorage
}

func NewInfoService(log *slog.Logger, userRepo storage.UserStorage, orderRepo storage.OrderStorage) InfoService {
	return &infoService{
		log:       log,
		userRepo:  userRepo,
		orderRepo: orderRepo,
	}
}

// InfoResponse - профиль пользователя и сводка по его заказам
type InfoResponse struct {
	User        *models.User    `json:"user"`
	OrdersCount int             `json:"orders_count"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
}

// GetInfo собирает профиль пользователя и сводку по заказам.
func (s *infoService) GetInfo(ctx context.Context, userID int64) (*InfoResponse, error) {
	const op = "service.InfoService.GetInfo"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))
	logger.Info("getting info")

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		logger.Error("failed to get user by id", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}

	orders, err := s.orderRepo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		logger.Error("failed to get orders", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}

	spent := decimal.Zero
	for _, order := range orders {
		spent = spent.Add(order.TotalAmount)
	}

	return &InfoResponse{
		User:        user,
		OrdersCount: len(orders),
		TotalSpent:  spent,
	}, nil
}
