package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dulcehogar/shop/internal/jwt/jwtmiddleware"
	"github.com/dulcehogar/shop/internal/service"
	"github.com/dulcehogar/shop/internal/storage"
)

// AddToCartRequest adds qty units of a product to the caller's cart.
type AddToCartRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// GetCartHandler handles GET /api/cart.
func GetCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		view, err := cartService.GetCart(r.Context(), userID)
		if err != nil {
			logger.Error("failed to get cart", slog.Any("error", err))
			writeError(w, logger, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, logger, http.StatusOK, view)
	}
}

// AddToCartHandler handles POST /api/cart. Adding the same product again
// sums quantities; a request past the available stock is rejected whole.
func AddToCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddToCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req AddToCartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid request")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, logger, http.StatusBadRequest, "validation error")
			return
		}

		if err := cartService.AddToCart(r.Context(), userID, req.ProductID, req.Quantity); err != nil {
			var stockErr *service.StockInsufficientError
			switch {
			case errors.As(err, &stockErr):
				writeJSON(w, logger, http.StatusBadRequest, stockResponse(stockErr))
			case errors.Is(err, storage.ErrProductNotFound):
				writeError(w, logger, http.StatusNotFound, "product not found")
			case errors.Is(err, service.ErrInvalidPayload):
				writeError(w, logger, http.StatusBadRequest, "invalid request")
			default:
				logger.Error("failed to add to cart", slog.Any("error", err))
				writeError(w, logger, http.StatusInternalServerError, "internal server error")
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// RemoveFromCartHandler handles DELETE /api/cart/{productID}.
func RemoveFromCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveFromCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid product id")
			return
		}

		if err := cartService.RemoveFromCart(r.Context(), userID, productID); err != nil {
			if errors.Is(err, storage.ErrCartItemNotFound) {
				writeError(w, logger, http.StatusNotFound, "cart item not found")
				return
			}
			logger.Error("failed to remove cart item", slog.Any("error", err))
			writeError(w, logger, http.StatusInternalServerError, "internal server error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ClearCartHandler handles DELETE /api/cart.
func ClearCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ClearCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		if err := cartService.ClearCart(r.Context(), userID); err != nil {
			logger.Error("failed to clear cart", slog.Any("error", err))
			writeError(w, logger, http.StatusInternalServerError, "internal server error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
