// Package order реализует HTTP-обработчик создания заказа на оплату плана.
package order

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
	Plan string `json:"plan" validate:"required,oneof=A1 A2"`
}

// Service описывает бизнес-логику создания заказа.
type Service interface {
	CreateOrder(ctx context.Context, userID, plan string) (*billing.OrderResult, error)
}

// Handler обрабатывает POST /api/billing/order.
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
// @Summary Создать заказ
// @Description Создаёт заказ в платёжном шлюзе для платного плана.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param request body Request true "План"
// @Success 200 {object} response.Response "Заказ и публичный ключ"
// @Failure 400 {object} response.ErrorResponse "Некорректный план или биллинг не настроен"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 502 {object} response.ErrorResponse "Ошибка платёжного шлюза"
// @Router /api/billing/order [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.order"
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

	res, err := h.service.CreateOrder(r.Context(), userID, req.Plan)
	if err != nil {
		log.Error("failed to create order", sl.UserID(userID), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("order created", sl.UserID(userID), slog.String("plan", req.Plan))
	render.JSON(w, r, response.OKWithData(res))
}
