package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

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

func (m *ServiceMock) VerifyPayment(ctx context.Context, userID string, req billing.VerifyRequest) (*models.Subscription, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestVerifyHandler_ServeHTTP(t *testing.T) {
	validBody := `{"plan":"A2","order_id":"order_1","payment_id":"pay_1","signature":"abc"}`
	validReq := billing.VerifyRequest{Plan: "A2", OrderID: "order_1", PaymentID: "pay_1", Signature: "abc"}
	end := time.Date(2026, 11, 14, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		body       string
		mockSub    *models.Subscription
		mockErr    error
		callsSvc   bool
		wantStatus int
		wantCode   string
		wantError  string
	}{
		{
			name:       "подписка продлена",
			body:       validBody,
			mockSub:    &models.Subscription{ID: "s1", Plan: models.PlanA2, Status: models.SubscriptionActive, CurrentPeriodEnd: end},
			callsSvc:   true,
			wantStatus: http.StatusOK,
		},
		{
			name:       "нет подписи",
			body:       `{"plan":"A2","order_id":"order_1","payment_id":"pay_1"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_input",
			wantError:  "field Signature is a required field",
		},
		{
			name:       "подпись неверна",
			body:       validBody,
			mockErr:    models.ErrPaymentVerificationFailed,
			callsSvc:   true,
			wantStatus: http.StatusBadRequest,
			wantCode:   "payment_verification_failed",
		},
		{
			name:       "заказ не найден",
			body:       validBody,
			mockErr:    models.ErrPaymentNotFound,
			callsSvc:   true,
			wantStatus: http.StatusNotFound,
			wantCode:   "payment_not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.callsSvc {
				if tt.mockErr != nil {
					svc.On("VerifyPayment", mock.Anything, "u1", validReq).Return(nil, tt.mockErr).Once()
				} else {
					svc.On("VerifyPayment", mock.Anything, "u1", validReq).Return(tt.mockSub, nil).Once()
				}
			}
			handler := New(newNoopLogger(), svc)

			req := httptest.NewRequest(http.MethodPost, "/api/billing/verify", bytes.NewReader([]byte(tt.body)))
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.User, "u1"))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, got["code"])
				if tt.wantError != "" {
					assert.Equal(t, tt.wantError, got["error"])
				}
			} else {
				data := got["data"].(map[string]any)
				sub := data["subscription"].(map[string]any)
				assert.Equal(t, "A2", sub["plan"])
				assert.Equal(t, "active", sub["status"])
				assert.Equal(t, "2026-11-14T00:00:00Z", sub["current_period_end"])
			}
			svc.AssertExpectations(t)
		})
	}
}
