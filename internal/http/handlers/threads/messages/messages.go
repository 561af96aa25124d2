// Package messages реализует HTTP-обработчик истории сообщений треда.
package messages

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/duelchat/internal/http/middlewarectx"
	"github.com/magabrotheeeer/duelchat/internal/http/response"
	"github.com/magabrotheeeer/duelchat/internal/lib/sl"
	"github.com/magabrotheeeer/duelchat/internal/models"
)

// Service описывает бизнес-логику чтения сообщений.
type Service interface {
	ListMessages(ctx context.Context, userID, threadID string) ([]*models.Message, error)
}

// Handler обрабатывает GET /api/threads/{id}/messages.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Сообщения треда
// @Tags Threads
// @Produce  json
// @Param id path string true "ID треда"
// @Success 200 {object} response.Response "Сообщения в порядке создания"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Тред не найден"
// @Router /api/threads/{id}/messages [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.threads.messages"

	userID, ok := middlewarectx.UserID(r.Context())
	if !ok {
		response.RenderError(w, r, models.ErrUnauthorized)
		return
	}

	msgs, err := h.service.ListMessages(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.log.Info("failed to list messages",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err),
		)
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"messages": msgs,
	}))
}
