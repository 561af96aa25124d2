// Package send реализует HTTP-обработчик пользовательской реплики.
//
// Первая реплика треда возвращает дуэль из двух вариантов ответа,
// последующие реплики возвращают ответ закреплённого провайдера.
package send

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
	"github.com/magabrotheeeer/duelchat/internal/services/chat"
)

// Request тело запроса реплики.
type Request struct {
	ThreadID string `json:"thread_id"`
	Content  string `json:"content" validate:"required"`
	Mode     string `json:"mode"`
}

// Service описывает бизнес-логику реплики.
type Service interface {
	SendTurn(ctx context.Context, userID string, req chat.TurnRequest) (*chat.TurnResult, error)
}

// Handler обрабатывает POST /api/chat.
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
// @Summary Отправить реплику
// @Description Первая реплика треда создаёт дуэль двух провайдеров, последующие отвечают закреплённым провайдером.
// @Tags Chat
// @Accept  json
// @Produce  json
// @Param request body Request true "Реплика"
// @Success 200 {object} response.Response "Дуэль или ответ ассистента"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос или тред не закреплён"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Квота исчерпана"
// @Failure 404 {object} response.ErrorResponse "Тред не найден"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Failure 502 {object} response.ErrorResponse "Ошибка провайдера"
// @Router /api/chat [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.chat.send"
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

	mode := models.ModeExploration
	if req.Mode == string(models.ModeVerified) {
		mode = models.ModeVerified
	}

	res, err := h.service.SendTurn(r.Context(), userID, chat.TurnRequest{
		ThreadID: req.ThreadID,
		Content:  req.Content,
		Mode:     mode,
	})
	if err != nil {
		log.Info("turn rejected", sl.UserID(userID), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(res))
}
