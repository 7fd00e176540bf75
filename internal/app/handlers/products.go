package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/linemk/tm-watch/internal/domain/models"
	"github.com/linemk/tm-watch/internal/service"
	"github.com/shopspring/decimal"
)

// ProductsResponse ответ GET /api/products
type ProductsResponse struct {
	Count    int               `json:"count"`
	Products []*models.Product `json:"products"`
}

// ListProductsHandler обрабатывает GET /api/products?category=&gender=&brand=&minPrice=&maxPrice=&search=
func ListProductsHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListProductsHandler"
		logger := log.With(slog.String("op", op))

		filter, err := parseProductFilter(r.URL.Query())
		if err != nil {
			logger.Warn("invalid filter", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		products, err := catalog.ListProducts(r.Context(), filter)
		if err != nil {
			if errors.Is(err, service.ErrInvalidRequest) {
				http.Error(w, "invalid price range", http.StatusBadRequest)
				return
			}
			logger.Error("failed to list products", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, http.StatusOK, ProductsResponse{Count: len(products), Products: products})
	}
}

func parseProductFilter(q url.Values) (models.ProductFilter, error) {
	filter := models.ProductFilter{
		Category: q.Get("category"),
		Gender:   q.Get("gender"),
		Brand:    q.Get("brand"),
		Search:   q.Get("search"),
	}
	for _, p := range []struct {
		name string
		dst  **decimal.Decimal
	}{
		{"minPrice", &filter.MinPrice},
		{"maxPrice", &filter.MaxPrice},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil || v.IsNegative() {
			return filter, errors.New("invalid " + p.name)
		}
		*p.dst = &v
	}
	return filter, nil
}

// GetProductHandler обрабатывает GET /api/products/{id}
func GetProductHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetProductHandler"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(r, "id")
		if !ok {
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}

		product, err := catalog.GetProduct(r.Context(), id)
		if err != nil {
			if errors.Is(err, service.ErrProductNotFound) {
				http.Error(w, "product not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get product", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, http.StatusOK, product)
	}
}
