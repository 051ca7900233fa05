package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dulcehogar/shop/internal/domain/models"
	"github.com/dulcehogar/shop/internal/service"
	"github.com/dulcehogar/shop/internal/storage"
)

// SaveProductRequest creates a product when ID is zero, updates it otherwise.
type SaveProductRequest struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	PriceCents  int64    `json:"price_cents" validate:"required,gt=0"`
	Stock       int      `json:"stock" validate:"gte=0"`
	Active      bool     `json:"active"`
	CategoryID  *int64   `json:"category_id,omitempty"`
	BrandID     *int64   `json:"brand_id,omitempty"`
	ImageURLs   []string `json:"image_urls,omitempty"`
}

// SetProductActiveRequest toggles a product's visibility.
type SetProductActiveRequest struct {
	Active bool `json:"active"`
}

// CreateNameRequest covers category and brand creation.
type CreateNameRequest struct {
	Name string `json:"name" validate:"required"`
}

// SaveProductHandler handles POST /api/admin/products. A product with zero
// stock cannot be saved as active.
func SaveProductHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SaveProductHandler"
		logger := log.With(slog.String("op", op))

		var req SaveProductRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid request")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, logger, http.StatusBadRequest, "validation error")
			return
		}

		product, err := catalogService.SaveProduct(r.Context(), &models.Product{
			ID:          req.ID,
			Name:        req.Name,
			Description: req.Description,
			PriceCents:  req.PriceCents,
			Stock:       req.Stock,
			Active:      req.Active,
			CategoryID:  req.CategoryID,
			BrandID:     req.BrandID,
			ImageURLs:   req.ImageURLs,
		})
		if err != nil {
			switch {
			case errors.Is(err, service.ErrActiveWithoutStock):
				writeError(w, logger, http.StatusBadRequest, "product cannot be active with zero stock")
			case errors.Is(err, service.ErrInvalidPayload):
				writeError(w, logger, http.StatusBadRequest, "invalid product")
			default:
				logger.Error("failed to save product", slog.Any("error", err))
				writeError(w, logger, http.StatusInternalServerError, "internal server error")
			}
			return
		}
		writeJSON(w, logger, http.StatusOK, product)
	}
}

// SetProductActiveHandler handles PATCH /api/admin/products/{id}/active.
func SetProductActiveHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SetProductActiveHandler"
		logger := log.With(slog.String("op", op))

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid product id")
			return
		}

		var req SetProductActiveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid request")
			return
		}

		if err := catalogService.SetProductActive(r.Context(), id, req.Active); err != nil {
			switch {
			case errors.Is(err, service.ErrActiveWithoutStock):
				writeError(w, logger, http.StatusBadRequest, "product cannot be active with zero stock")
			case errors.Is(err, storage.ErrProductNotFound):
				writeError(w, logger, http.StatusNotFound, "product not found")
			default:
				logger.Error("failed to set product active", slog.Any("error", err))
				writeError(w, logger, http.StatusInternalServerError, "internal server error")
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// CreateCategoryHandler handles POST /api/admin/categories.
func CreateCategoryHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateCategoryHandler"
		logger := log.With(slog.String("op", op))

		var req CreateNameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid request")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, logger, http.StatusBadRequest, "validation error")
			return
		}

		category, err := catalogService.CreateCategory(r.Context(), req.Name)
		if err != nil {
			logger.Error("failed to create category", slog.Any("error", err))
			writeError(w, logger, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, logger, http.StatusCreated, category)
	}
}

// CreateBrandHandler handles POST /api/admin/brands.
func CreateBrandHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateBrandHandler"
		logger := log.With(slog.String("op", op))

		var req CreateNameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid request")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, logger, http.StatusBadRequest, "validation error")
			return
		}

		brand, err := catalogService.CreateBrand(r.Context(), req.Name)
		if err != nil {
			logger.Error("failed to create brand", slog.Any("error", err))
			writeError(w, logger, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, logger, http.StatusCreated, brand)
	}
}

// SalesSummaryHandler handles GET /api/admin/sales/summary. The optional since
// query parameter (RFC 3339) defaults to the last 30 days.
func SalesSummaryHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SalesSummaryHandler"
		logger := log.With(slog.String("op", op))

		since := time.Now().AddDate(0, 0, -30)
		if raw := r.URL.Query().Get("since"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeError(w, logger, http.StatusBadRequest, "invalid since parameter")
				return
			}
			since = parsed
		}

		summary, err := catalogService.SalesSummary(r.Context(), since)
		if err != nil {
			logger.Error("failed to get sales summary", slog.Any("error", err))
			writeError(w, logger, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, logger, http.StatusOK, summary)
	}
}
