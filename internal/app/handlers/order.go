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

// ConfirmOrderRequest finalizes a paid checkout session. The success page
// sends it on every mount, so the same session id arrives repeatedly.
type ConfirmOrderRequest struct {
	SessionID string                 `json:"session_id" validate:"required"`
	AddressID int64                  `json:"address_id" validate:"required,gt=0"`
	Direct    *models.DirectPurchase `json:"direct,omitempty"`
}

// ConfirmOrderHandler handles POST /api/order/confirm. Repeated and
// concurrent calls for one session all answer 200 with the same order.
func ConfirmOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ConfirmOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req ConfirmOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid request")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, logger, http.StatusBadRequest, "validation error")
			return
		}

		res, err := orderService.ConfirmOrder(r.Context(), userID, req.SessionID, req.AddressID, req.Direct)
		if err != nil {
			var stockErr *service.StockInsufficientError
			switch {
			case errors.As(err, &stockErr):
				writeJSON(w, logger, http.StatusBadRequest, stockResponse(stockErr))
			case errors.Is(err, service.ErrPaymentNotCompleted):
				writeError(w, logger, http.StatusConflict, "payment session not completed")
			case errors.Is(err, service.ErrInvalidPayload):
				writeError(w, logger, http.StatusBadRequest, "invalid checkout payload")
			default:
				logger.Error("failed to confirm order", slog.Any("error", err))
				writeError(w, logger, http.StatusInternalServerError, "internal server error")
			}
			return
		}

		writeJSON(w, logger, http.StatusOK, res)
	}
}

// ListOrdersHandler handles GET /api/orders.
func ListOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		orders, err := orderService.ListOrders(r.Context(), userID)
		if err != nil {
			logger.Error("failed to list orders", slog.Any("error", err))
			writeError(w, logger, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, logger, http.StatusOK, orders)
	}
}
