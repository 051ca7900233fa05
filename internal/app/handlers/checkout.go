package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dulcehogar/shop/internal/domain/models"
	"github.com/dulcehogar/shop/internal/jwt/jwtmiddleware"
	"github.com/dulcehogar/shop/internal/service"
)

// StartCheckoutRequest opens a hosted-checkout session. Direct set means a
// single-product purchase from its page; nil means the current cart.
type StartCheckoutRequest struct {
	AddressID int64                  `json:"address_id" validate:"required,gt=0"`
	Direct    *models.DirectPurchase `json:"direct,omitempty"`
}

// StartCheckoutHandler handles POST /api/checkout/session.
func StartCheckoutHandler(log *slog.Logger, checkoutService service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.StartCheckoutHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req StartCheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid request")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, logger, http.StatusBadRequest, "validation error")
			return
		}

		res, err := checkoutService.StartCheckout(r.Context(), userID, req.AddressID, req.Direct)
		if err != nil {
			var stockErr *service.StockInsufficientError
			switch {
			case errors.As(err, &stockErr):
				writeJSON(w, logger, http.StatusBadRequest, stockResponse(stockErr))
			case errors.Is(err, service.ErrInvalidPayload):
				writeError(w, logger, http.StatusBadRequest, "invalid checkout payload")
			default:
				logger.Error("failed to start checkout", slog.Any("error", err))
				writeError(w, logger, http.StatusInternalServerError, "internal server error")
			}
			return
		}

		writeJSON(w, logger, http.StatusOK, res)
	}
}
