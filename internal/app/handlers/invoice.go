package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dulcehogar/shop/internal/jwt/jwtmiddleware"
	"github.com/dulcehogar/shop/internal/service"
	"github.com/dulcehogar/shop/internal/storage"
)

// InvoiceResponse reports the invoice state for a session. Status is
// "ready" with the URL set, or "pending" while the worker catches up.
type InvoiceResponse struct {
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
}

// InvoiceHandler handles GET /api/invoice/{sessionID}. Pending is a normal
// answer, the client polls until the worker has produced the document.
func InvoiceHandler(log *slog.Logger, invoiceService service.InvoiceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.InvoiceHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		sessionID := chi.URLParam(r, "sessionID")
		if sessionID == "" {
			writeError(w, logger, http.StatusBadRequest, "session id is required")
			return
		}

		url, err := invoiceService.GetInvoiceURL(r.Context(), userID, sessionID)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvoicePending):
				writeJSON(w, logger, http.StatusOK, InvoiceResponse{Status: "pending"})
			case errors.Is(err, storage.ErrOrderNotFound):
				writeError(w, logger, http.StatusNotFound, "order not found")
			default:
				logger.Error("failed to get invoice", slog.Any("error", err))
				writeError(w, logger, http.StatusInternalServerError, "internal server error")
			}
			return
		}

		writeJSON(w, logger, http.StatusOK, InvoiceResponse{Status: "ready", URL: url})
	}
}
