package order

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/duelchat/internal/http/middlewarectx"
	"github.com/magabrotheeeer/duelchat/internal/models"
	"github.com/magabrotheeeer/duelchat/internal/services/billing"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) CreateOrder(ctx context.Context, userID, plan string) (*billing.OrderResult, error) {
	args := m.Called(ctx, userID, plan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.OrderResult), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestOrderHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMock  func(m *ServiceMock)
		wantStatus int
		wantCode   string
	}{
		{
			name: "заказ создан",
			body: `{"plan":"A2"}`,
			setupMock: func(m *ServiceMock) {
				m.On("CreateOrder", mock.Anything, "u1", "A2").Return(&billing.OrderResult{
					Plan:      models.PlanA2,
					Order:     &models.Order{ID: "order_1", Amount: 79900, Currency: "INR"},
					PublicKey: "key_id",
				}, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "неизвестный план",
			body:       `{"plan":"Z9"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_input",
		},
		{
			name: "биллинг не настроен",
			body: `{"plan":"A1"}`,
			setupMock: func(m *ServiceMock) {
				m.On("CreateOrder", mock.Anything, "u1", "A1").Return(nil, models.ErrBillingNotConfigured).Once()
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "billing_not_configured",
		},
		{
			name: "шлюз недоступен",
			body: `{"plan":"A1"}`,
			setupMock: func(m *ServiceMock) {
				m.On("CreateOrder", mock.Anything, "u1", "A1").Return(nil, models.ErrBillingError).Once()
			},
			wantStatus: http.StatusBadGateway,
			wantCode:   "billing_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.setupMock != nil {
				tt.setupMock(svc)
			}
			handler := New(newNoopLogger(), svc)

			req := httptest.NewRequest(http.MethodPost, "/api/billing/order", bytes.NewReader([]byte(tt.body)))
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.User, "u1"))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, got["code"])
			} else {
				data, ok := got["data"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "key_id", data["public_key"])
				order, ok := data["order"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "order_1", order["id"])
			}
			svc.AssertExpectations(t)
		})
	}
}
