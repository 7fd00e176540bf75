package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/tm-watch/internal/domain/models"
	"github.com/linemk/tm-watch/internal/service"
	"github.com/linemk/tm-watch/internal/storage"
)

// UpdateProfileRequest - отсутствующее поле не меняется
type UpdateProfileRequest struct {
	Name    *string `json:"name" validate:"omitempty,max=255"`
	Phone   *string `json:"phone" validate:"omitempty,max=50"`
	Address *string `json:"address" validate:"omitempty,max=1000"`
}

// ChangePasswordRequest поля названы так же, как их шлёт страница профиля
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

type ProfileResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

// UpdateProfileHandler обрабатывает PUT /api/auth/profile
func UpdateProfileHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateProfileHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFrom(w, r, logger)
		if !ok {
			return
		}

		var req UpdateProfileRequest
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

		user, err := authService.UpdateProfile(r.Context(), userID, service.UpdateProfileRequest{
			Name:    req.Name,
			Phone:   req.Phone,
			Address: req.Address,
		})
		if err != nil {
			writeProfileError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, ProfileResponse{Message: "Profile updated successfully", User: user})
	}
}

// ChangePasswordHandler обрабатывает PUT /api/profile/password
func ChangePasswordHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ChangePasswordHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFrom(w, r, logger)
		if !ok {
			return
		}

		var req ChangePasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "current password and a new password of at least 6 characters are required", http.StatusBadRequest)
			return
		}

		if err := authService.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
			writeProfileError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, MessageResponse{Message: "Password changed successfully"})
	}
}

func writeProfileError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		http.Error(w, "no valid fields to update", http.StatusBadRequest)
	case errors.Is(err, service.ErrWrongPassword):
		http.Error(w, "current password is incorrect", http.StatusBadRequest)
	case errors.Is(err, storage.ErrUserNotFound):
		http.Error(w, "user not found", http.StatusNotFound)
	default:
		logger.Error("profile operation failed", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
