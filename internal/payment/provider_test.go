package payment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dulcehogar/shop/internal/payment"
	"github.com/stretchr/testify/assert"
)

func TestHTTPProvider_CreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer pk_test", r.Header.Get("Authorization"))

		var body struct {
			Items []payment.SessionItem `json:"items"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body.Items, 1)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payment.Session{ID: "cs_test_1", CheckoutURL: "https://pay.example.com/cs_test_1"})
	}))
	defer srv.Close()

	p := payment.NewHTTPProvider(srv.URL, "pk_test", 5*time.Second)
	session, err := p.CreateSession(context.Background(), []payment.SessionItem{
		{Name: "Licuadora Oster", Quantity: 1, UnitPriceCents: 45990},
	}, "http://localhost:3000/success")
	assert.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.ID)
	assert.NotEmpty(t, session.CheckoutURL)
}

func TestHTTPProvider_GetSessionStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions/cs_test_1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"status": payment.StatusCompleted})
	}))
	defer srv.Close()

	p := payment.NewHTTPProvider(srv.URL, "pk_test", 5*time.Second)
	status, err := p.GetSessionStatus(context.Background(), "cs_test_1")
	assert.NoError(t, err)
	assert.Equal(t, payment.StatusCompleted, status)
}

func TestHTTPProvider_BadStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := payment.NewHTTPProvider(srv.URL, "pk_test", 5*time.Second)
	_, err := p.GetSessionStatus(context.Background(), "cs_test_1")
	assert.Error(t, err)
}
