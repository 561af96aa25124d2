// Package vote реализует HTTP-обработчик голоса в дуэли.
package vote

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

// Request тело запроса голоса. Choice — ключ провайдера.
type Request struct {
	DuelID string `json:"duel_id" validate:"required"`
	Choice string `json:"choice" validate:"required,oneof=A B"`
}

// Service описывает бизнес-логику голосования.
type Service interface {
	Vote(ctx context.Context, userID, duelID, choice string) (*chat.VoteResult, error)
}

// Handler обрабатывает POST /api/vote.
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
// @Summary Проголосовать в дуэли
// @Description Закрепляет тред за выбранным провайдером. Повторный голос ничего не меняет.
// @Tags Chat
// @Accept  json
// @Produce  json
// @Param request body Request true "Голос"
// @Success 200 {object} response.Response "Тред и его сообщения"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Дуэль не найдена"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Router /api/vote [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.chat.vote"
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

	res, err := h.service.Vote(r.Context(), userID, req.DuelID, req.Choice)
	if err != nil {
		log.Info("vote rejected", sl.UserID(userID), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(res))
}
