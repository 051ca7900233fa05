package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dulcehogar/shop/internal/domain/models"
	"github.com/dulcehogar/shop/internal/jwt/jwtmiddleware"
	"github.com/dulcehogar/shop/internal/service"
	"github.com/dulcehogar/shop/internal/storage"
)

// CreateAddressRequest adds a delivery address to the caller's address book.
type CreateAddressRequest struct {
	Recipient  string `json:"recipient" validate:"required"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postal_code"`
}

// ListAddressesHandler handles GET /api/addresses.
func ListAddressesHandler(log *slog.Logger, addressService service.AddressService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListAddressesHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		addresses, err := addressService.ListAddresses(r.Context(), userID)
		if err != nil {
			logger.Error("failed to list addresses", slog.Any("error", err))
			writeError(w, logger, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, logger, http.StatusOK, addresses)
	}
}

// CreateAddressHandler handles POST /api/addresses.
func CreateAddressHandler(log *slog.Logger, addressService service.AddressService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateAddressHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req CreateAddressRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid request")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, logger, http.StatusBadRequest, "validation error")
			return
		}

		address, err := addressService.CreateAddress(r.Context(), &models.Address{
			UserID:     userID,
			Recipient:  req.Recipient,
			Street:     req.Street,
			City:       req.City,
			PostalCode: req.PostalCode,
		})
		if err != nil {
			logger.Error("failed to create address", slog.Any("error", err))
			writeError(w, logger, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, logger, http.StatusCreated, address)
	}
}

// DeleteAddressHandler handles DELETE /api/addresses/{id}.
func DeleteAddressHandler(log *slog.Logger, addressService service.AddressService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteAddressHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		addressID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid address id")
			return
		}

		if err := addressService.DeleteAddress(r.Context(), userID, addressID); err != nil {
			if errors.Is(err, storage.ErrAddressNotFound) {
				writeError(w, logger, http.StatusNotFound, "address not found")
				return
			}
			logger.Error("failed to delete address", slog.Any("error", err))
			writeError(w, logger, http.StatusInternalServerError, "internal server error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
