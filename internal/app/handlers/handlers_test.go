package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dulcehogar/shop/internal/app/handlers"
	"github.com/dulcehogar/shop/internal/domain/models"
	"github.com/dulcehogar/shop/internal/jwt/jwtmiddleware"
	"github.com/dulcehogar/shop/internal/service"
	"github.com/dulcehogar/shop/internal/storage"

	"log/slog"
	"os"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := context.WithValue(req.Context(), jwtmiddleware.UserIDKey, int64(7))
	return req.WithContext(ctx)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// --- fakes ---

type fakeAuthService struct {
	token string
	err   error
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (string, error) {
	return f.token, f.err
}

type fakeOrderService struct {
	result *service.ConfirmResult
	err    error

	gotSessionID string
	gotAddressID int64
	gotDirect    *models.DirectPurchase
}

func (f *fakeOrderService) ConfirmOrder(ctx context.Context, userID int64, sessionID string, addressID int64, direct *models.DirectPurchase) (*service.ConfirmResult, error) {
	f.gotSessionID = sessionID
	f.gotAddressID = addressID
	f.gotDirect = direct
	return f.result, f.err
}

func (f *fakeOrderService) ListOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	return []*models.Order{{ID: 1, UserID: userID}}, nil
}

type fakeInvoiceService struct {
	url string
	err error
}

func (f *fakeInvoiceService) GetInvoiceURL(ctx context.Context, userID int64, sessionID string) (string, error) {
	return f.url, f.err
}

type fakeCartHandlerService struct {
	addErr error
}

func (f *fakeCartHandlerService) GetCart(ctx context.Context, userID int64) (*service.CartView, error) {
	return &service.CartView{}, nil
}

func (f *fakeCartHandlerService) AddToCart(ctx context.Context, userID, productID int64, qty int) error {
	return f.addErr
}

func (f *fakeCartHandlerService) RemoveFromCart(ctx context.Context, userID, productID int64) error {
	return nil
}

func (f *fakeCartHandlerService) ClearCart(ctx context.Context, userID int64) error {
	return nil
}

// --- tests ---

func TestAuthHandler_Success(t *testing.T) {
	h := handlers.AuthHandler(testLogger(), &fakeAuthService{token: "signed.jwt"})

	req := httptest.NewRequest(http.MethodPost, "/api/auth", strings.NewReader(`{"email":"ana@example.com","password":"longenough"}`))
	rr := httptest.NewRecorder()
	h(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp handlers.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "signed.jwt", resp.Token)
}

func TestAuthHandler_ValidationError(t *testing.T) {
	h := handlers.AuthHandler(testLogger(), &fakeAuthService{token: "signed.jwt"})

	// password below the minimum length
	req := httptest.NewRequest(http.MethodPost, "/api/auth", strings.NewReader(`{"email":"ana@example.com","password":"short"}`))
	rr := httptest.NewRecorder()
	h(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestConfirmOrderHandler_Success(t *testing.T) {
	svc := &fakeOrderService{result: &service.ConfirmResult{
		Order:            &models.Order{ID: 11, TotalCents: 240000, Status: models.StatusConfirmed},
		LineCount:        2,
		InvoiceTriggered: true,
	}}
	h := handlers.ConfirmOrderHandler(testLogger(), svc)

	rr := httptest.NewRecorder()
	h(rr, authedRequest(http.MethodPost, "/api/order/confirm", `{"session_id":"cs_123","address_id":4}`))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "cs_123", svc.gotSessionID)
	assert.Equal(t, int64(4), svc.gotAddressID)
	assert.Nil(t, svc.gotDirect)

	var resp service.ConfirmResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, int64(11), resp.Order.ID)
	assert.False(t, resp.AlreadyProcessed)
}

func TestConfirmOrderHandler_DirectPayloadForwarded(t *testing.T) {
	svc := &fakeOrderService{result: &service.ConfirmResult{Order: &models.Order{ID: 12}}}
	h := handlers.ConfirmOrderHandler(testLogger(), svc)

	rr := httptest.NewRecorder()
	h(rr, authedRequest(http.MethodPost, "/api/order/confirm",
		`{"session_id":"cs_d","address_id":4,"direct":{"product_id":9,"quantity":2}}`))

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, svc.gotDirect)
	assert.Equal(t, int64(9), svc.gotDirect.ProductID)
	assert.Equal(t, 2, svc.gotDirect.Quantity)
}

func TestConfirmOrderHandler_StockConflict(t *testing.T) {
	svc := &fakeOrderService{err: &service.StockInsufficientError{ProductID: 3, Requested: 5, Available: 1}}
	h := handlers.ConfirmOrderHandler(testLogger(), svc)

	rr := httptest.NewRecorder()
	h(rr, authedRequest(http.MethodPost, "/api/order/confirm", `{"session_id":"cs_123","address_id":4}`))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var resp handlers.StockErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.ProductID)
	assert.Equal(t, 1, resp.Available)
}

func TestConfirmOrderHandler_PaymentNotCompleted(t *testing.T) {
	svc := &fakeOrderService{err: service.ErrPaymentNotCompleted}
	h := handlers.ConfirmOrderHandler(testLogger(), svc)

	rr := httptest.NewRecorder()
	h(rr, authedRequest(http.MethodPost, "/api/order/confirm", `{"session_id":"cs_123","address_id":4}`))

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestConfirmOrderHandler_MissingSessionID(t *testing.T) {
	h := handlers.ConfirmOrderHandler(testLogger(), &fakeOrderService{})

	rr := httptest.NewRecorder()
	h(rr, authedRequest(http.MethodPost, "/api/order/confirm", `{"address_id":4}`))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestConfirmOrderHandler_Unauthenticated(t *testing.T) {
	h := handlers.ConfirmOrderHandler(testLogger(), &fakeOrderService{})

	req := httptest.NewRequest(http.MethodPost, "/api/order/confirm", strings.NewReader(`{"session_id":"cs_123","address_id":4}`))
	rr := httptest.NewRecorder()
	h(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestInvoiceHandler_Pending(t *testing.T) {
	h := handlers.InvoiceHandler(testLogger(), &fakeInvoiceService{err: service.ErrInvoicePending})

	req := authedRequest(http.MethodGet, "/api/invoice/cs_123", "")
	req = withURLParam(req, "sessionID", "cs_123")
	rr := httptest.NewRecorder()
	h(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp handlers.InvoiceResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "pending", resp.Status)
	assert.Empty(t, resp.URL)
}

func TestInvoiceHandler_Ready(t *testing.T) {
	h := handlers.InvoiceHandler(testLogger(), &fakeInvoiceService{url: "https://shop.example.com/invoices/abc.pdf"})

	req := authedRequest(http.MethodGet, "/api/invoice/cs_123", "")
	req = withURLParam(req, "sessionID", "cs_123")
	rr := httptest.NewRecorder()
	h(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp handlers.InvoiceResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.NotEmpty(t, resp.URL)
}

func TestInvoiceHandler_ForeignOrder(t *testing.T) {
	h := handlers.InvoiceHandler(testLogger(), &fakeInvoiceService{err: storage.ErrOrderNotFound})

	req := authedRequest(http.MethodGet, "/api/invoice/cs_foreign", "")
	req = withURLParam(req, "sessionID", "cs_foreign")
	rr := httptest.NewRecorder()
	h(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAddToCartHandler_StockConflict(t *testing.T) {
	svc := &fakeCartHandlerService{addErr: &service.StockInsufficientError{ProductID: 1, Requested: 5, Available: 2}}
	h := handlers.AddToCartHandler(testLogger(), svc)

	rr := httptest.NewRecorder()
	h(rr, authedRequest(http.MethodPost, "/api/cart", `{"product_id":1,"quantity":5}`))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var resp handlers.StockErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Available)
}

func TestAddToCartHandler_UnknownProduct(t *testing.T) {
	svc := &fakeCartHandlerService{addErr: storage.ErrProductNotFound}
	h := handlers.AddToCartHandler(testLogger(), svc)

	rr := httptest.NewRecorder()
	h(rr, authedRequest(http.MethodPost, "/api/cart", `{"product_id":99,"quantity":1}`))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAddToCartHandler_InternalError(t *testing.T) {
	svc := &fakeCartHandlerService{addErr: errors.New("boom")}
	h := handlers.AddToCartHandler(testLogger(), svc)

	rr := httptest.NewRecorder()
	h(rr, authedRequest(http.MethodPost, "/api/cart", `{"product_id":1,"quantity":1}`))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
