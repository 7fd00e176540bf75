package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/linemk/tm-watch/internal/domain/models"
	security "github.com/linemk/tm-watch/internal/jwt-new"
	"github.com/linemk/tm-watch/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// RegisterRequest данные регистрации
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  string
}

type AuthServiceInterface interface {
	Register(ctx context.Context, req RegisterRequest) (string, *models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	UpdateProfile(ctx context.Context, userID int64, req UpdateProfileRequest) (*models.User, error)
	ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error
}

// UpdateProfileRequest - nil поле не меняется, пустые phone/address очищают значение
type UpdateProfileRequest struct {
	Name    *string
	Phone   *string
	Address *string
}

type AuthService struct {
	log       *slog.Logger
	userRepo  storage.UserStorage
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthService(log *slog.Logger, userRepo storage.UserStorage, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		log:       log,
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

// Register создаёт пользователя (пароль хэшируется через bcrypt) и сразу выдаёт токен.
func (a *AuthService) Register(ctx context.Context, req RegisterRequest) (string, *models.User, error) {
	const op = "service.AuthService.Register"
	email := strings.ToLower(strings.TrimSpace(req.Email))
	logger := a.log.With(slog.String("op", op), slog.String("email", email))
	logger.Info("registering user")

	passHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return "", nil, fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	user := &models.User{
		Name:      strings.TrimSpace(req.Name),
		Email:     email,
		PassHash:  passHash,
		Phone:     optional(req.Phone),
		Address:   optional(req.Address),
		CreatedAt: time.Now().UTC(),
	}
	user, err = a.userRepo.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			logger.Warn("user already exists")
			return "", nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		logger.Error("failed to create user", slog.Any("error", err))
		return "", nil, fmt.Errorf("%s: failed to create user: %w", op, err)
	}

	token, err := security.NewToken(user, a.jwtSecret, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", nil, fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user registered", slog.Int64("userID", user.ID))
	return token, user, nil
}

// Login проверяет пароль и выдаёт JWT.
// Неизвестный email и неверный пароль неразличимы для клиента.
func (a *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	const op = "service.AuthService.Login"
	email = strings.ToLower(strings.TrimSpace(email))
	logger := a.log.With(slog.String("op", op), slog.String("email", email))
	logger.Info("checking user")

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Warn("user not found")
			return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return "", nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		logger.Warn("invalid password")
		return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := security.NewToken(user, a.jwtSecret, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", nil, fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user logged in successfully", slog.Int64("userID", user.ID))
	return token, user, nil
}

// UpdateProfile меняет имя, телефон и адрес. Email не меняется: он логин и входит в токен.
func (a *AuthService) UpdateProfile(ctx context.Context, userID int64, req UpdateProfileRequest) (*models.User, error) {
	const op = "service.AuthService.UpdateProfile"
	logger := a.log.With(slog.String("op", op), slog.Int64("userID", userID))

	if req.Name == nil && req.Phone == nil && req.Address == nil {
		return nil, fmt.Errorf("%s: no fields to update: %w", op, ErrInvalidRequest)
	}

	var upd models.ProfileUpdate
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%s: name must not be empty: %w", op, ErrInvalidRequest)
		}
		upd.Name = &name
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		upd.Phone = &phone
	}
	if req.Address != nil {
		address := strings.TrimSpace(*req.Address)
		upd.Address = &address
	}

	user, err := a.userRepo.UpdateProfile(ctx, userID, upd)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Warn("user not found")
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		logger.Error("failed to update profile", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}

	logger.Info("profile updated")
	return user, nil
}

// ChangePassword заменяет пароль после проверки текущего.
// Выданные ранее токены остаются действительными до истечения срока.
func (a *AuthService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	const op = "service.AuthService.ChangePassword"
	logger := a.log.With(slog.String("op", op), slog.Int64("userID", userID))

	if currentPassword == "" || newPassword == "" {
		return fmt.Errorf("%s: current and new password are required: %w", op, ErrInvalidRequest)
	}

	user, err := a.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Warn("user not found")
			return fmt.Errorf("%s: %w", op, err)
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(currentPassword)); err != nil {
		logger.Warn("current password mismatch")
		return fmt.Errorf("%s: %w", op, ErrWrongPassword)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	if err := a.userRepo.UpdatePassword(ctx, userID, passHash); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return fmt.Errorf("%s: %w", op, err)
		}
		logger.Error("failed to update password", slog.Any("error", err))
		return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}

	logger.Info("password changed")
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
