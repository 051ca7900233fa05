package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/dulcehogar/shop/internal/service"
)

var validate = validator.New()

// ErrorResponse is the body of every non-2xx JSON answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StockErrorResponse names the product that failed the stock check so the
// client can show which line to fix.
type StockErrorResponse struct {
	Error     string `json:"error"`
	ProductID int64  `json:"productId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func stockResponse(err *service.StockInsufficientError) StockErrorResponse {
	return StockErrorResponse{
		Error:     "insufficient stock",
		ProductID: err.ProductID,
		Requested: err.Requested,
		Available: err.Available,
	}
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("failed to encode response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, log *slog.Logger, status int, msg string) {
	writeJSON(w, log, status, ErrorResponse{Error: msg})
}
