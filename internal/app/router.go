package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linemk/tm-watch/internal/app/handlers"
	"github.com/linemk/tm-watch/internal/cache"
	"github.com/linemk/tm-watch/internal/idempotency"
	"github.com/linemk/tm-watch/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/tm-watch/internal/lib/logger/handlers/urllog"
	"github.com/linemk/tm-watch/internal/service"
	"github.com/linemk/tm-watch/internal/storage"
)

// Router собирает слои хранения, сервисы и маршруты HTTP API
func (a *App) Router() http.Handler {
	log := a.Logger

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	// реализация слоев по работе с БД по каждому направлению
	userRepo := storage.NewUserRepository(a.DB)
	productRepo := storage.NewProductRepository(a.DB, a.Dialect)
	cartRepo := storage.NewCartRepository(a.DB)
	wishlistRepo := storage.NewWishlistRepository(a.DB)
	orderRepo := storage.NewOrderRepository(a.DB)

	var (
		productCache cache.ProductCache
		idem         handlers.IdempotencyStore
		events       storage.OutboxStorage
	)
	if a.Redis != nil {
		productCache = cache.NewRedisCache(a.Redis, a.Config.Redis.ProductTTL)
		idem = idempotency.NewStore(a.Redis, a.Config.Redis.IdempotencyTTL, a.Config.Redis.IdempotencyPendingTTL)
	}
	// без публикатора события копились бы в outbox бесконечно
	if a.Kafka != nil {
		events = storage.NewOutboxRepository(a.DB, a.Dialect)
	}

	authService := service.NewAuthService(log, userRepo, a.Config.JWT.Secret, time.Duration(a.Config.JWT.TokenTTL)*time.Minute)
	infoService := service.NewInfoService(log, userRepo, orderRepo)
	catalogService := service.NewCatalogService(log, productRepo, productCache)
	cartService := service.NewCartService(log, a.DB, cartRepo, productRepo)
	wishlistService := service.NewWishlistService(log, wishlistRepo, productRepo)
	orderService := service.NewOrderService(log, a.DB, productRepo, orderRepo, cartRepo, events, productCache)

	router.Get("/health", handlers.HealthHandler(log, a.DB))

	router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", handlers.RegisterHandler(log, authService))
		r.Post("/auth/login", handlers.LoginHandler(log, authService))

		r.Get("/products", handlers.ListProductsHandler(log, catalogService))
		r.Get("/products/{id}", handlers.GetProductHandler(log, catalogService))

		r.Group(func(r chi.Router) {
			r.Use(jwtmiddleware.NewJWTMiddleware(a.Config.JWT.Secret))

			r.Get("/auth/profile", handlers.InfoHandler(log, infoService))
			r.Put("/auth/profile", handlers.UpdateProfileHandler(log, authService))
			r.Put("/profile/password", handlers.ChangePasswordHandler(log, authService))

			r.Get("/cart", handlers.GetCartHandler(log, cartService))
			r.Post("/cart", handlers.AddToCartHandler(log, cartService))
			r.Delete("/cart", handlers.ClearCartHandler(log, cartService))
			r.Put("/cart/{id}", handlers.UpdateCartItemHandler(log, cartService))
			r.Delete("/cart/{id}", handlers.RemoveCartItemHandler(log, cartService))

			r.Get("/wishlist", handlers.GetWishlistHandler(log, wishlistService))
			r.Post("/wishlist", handlers.AddToWishlistHandler(log, wishlistService))
			r.Delete("/wishlist/{id}", handlers.RemoveFromWishlistHandler(log, wishlistService))

			r.Post("/orders", handlers.PlaceOrderHandler(log, orderService, idem))
			r.Get("/orders", handlers.ListOrdersHandler(log, orderService))
			r.Get("/orders/{id}", handlers.GetOrderHandler(log, orderService))
		})
	})

	return router
}
