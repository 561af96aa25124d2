// Package verify реализует HTTP-обработчик подтверждения оплаты.
package verify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/duelchat/internal/http/middlewarectx"
	"github.com/magabrotheeeer/duelchat/internal/http/response"
	"github.com/magabrotheeeer/duelchat/internal/lib/sl"
	"github.com/magabrotheeeer/duelchat/internal/models"
	"github.com/magabrotheeeer/duelchat/internal/services/billing"
)

// Request тело запроса.
type Request struct {
	Plan      string `json:"plan" validate:"required,oneof=A1 A2"`
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// Service описывает бизнес-логику подтверждения оплаты.
type Service interface {
	VerifyPayment(ctx context.Context, userID string, req billing.VerifyRequest) (*models.Subscription, error)
}

// Handler обрабатывает POST /api/billing/verify.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Подтвердить оплату
// @Description Проверяет подпись шлюза и продлевает подписку. Повторный вызов с тем же заказом не продлевает её второй раз.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные оплаты"
// @Success 200 {object} response.Response "Текущая подписка"
// @Failure 400 {object} response.ErrorResponse "Подпись неверна или запрос некорректен"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Заказ не найден"
// @Router /api/billing/verify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.verify"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserID(r.Context())
	if !ok {
		response.RenderError(w, r, models.ErrUnauthorized)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debug("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.CodeInvalidInput, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	sub, err := h.service.VerifyPayment(r.Context(), userID, billing.VerifyRequest{
		Plan:      req.Plan,
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		log.Warn("payment not verified", sl.UserID(userID), slog.String("order_id", req.OrderID), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscription": sub,
	}))
}
