package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/tm-watch/internal/service"
	"github.com/linemk/tm-watch/internal/storage"
)

// InfoHandler обрабатывает запрос GET /api/auth/profile.
// Возвращает профиль пользователя из токена и сводку по его заказам.
func InfoHandler(log *slog.Logger, infoService service.InfoService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.InfoHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFrom(w, r, logger)
		if !ok {
			return
		}

		info, err := infoService.GetInfo(r.Context(), userID)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				http.Error(w, "user not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get info", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, http.StatusOK, info)
	}
}
