package paymentprovider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	sig := Sign("order_1", "pay_1", "secret")
	assert.Len(t, sig, 64)

	tests := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
		want      bool
	}{
		{"валидная подпись", "order_1", "pay_1", sig, true},
		{"другой платёж", "order_1", "pay_2", sig, false},
		{"другой заказ", "order_2", "pay_1", sig, false},
		{"пустая подпись", "order_1", "pay_1", "", false},
		{"обрезанная подпись", "order_1", "pay_1", sig[:10], false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifySignature(tt.orderID, tt.paymentID, tt.signature, "secret"))
		})
	}
	assert.False(t, VerifySignature("order_1", "pay_1", sig, "other"))
}

func TestClient_CreateOrder(t *testing.T) {
	var got CreateOrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte("key:secret"))
		assert.Equal(t, want, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"order_abc","amount":9900,"currency":"INR"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "key", "secret")
	order, err := c.CreateOrder(context.Background(), CreateOrderRequest{
		Amount:         9900,
		Currency:       "INR",
		PaymentCapture: 1,
		Notes:          map[string]string{"userId": "u1", "plan": "A1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, int64(9900), order.Amount)
	assert.Equal(t, 1, got.PaymentCapture)
	assert.Equal(t, "u1", got.Notes["userId"])
}

func TestClient_CreateOrderErrors(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
	}{
		{"ошибка шлюза", http.StatusBadRequest, `{"error":"bad"}`},
		{"без id", http.StatusOK, `{"amount":1}`},
		{"битый json", http.StatusOK, `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "key", "secret").CreateOrder(context.Background(), CreateOrderRequest{Amount: 1})
			assert.Error(t, err)
		})
	}
}
