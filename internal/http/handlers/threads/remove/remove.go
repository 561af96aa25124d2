// Package remove реализует HTTP-обработчик удаления треда.
package remove

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

// Service описывает бизнес-логику удаления треда.
type Service interface {
	DeleteThread(ctx context.Context, userID, threadID string) error
}

// Handler обрабатывает DELETE /api/threads/{id}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удалить тред
// @Description Удаляет тред вместе с сообщениями и дуэлями.
// @Tags Threads
// @Produce  json
// @Param id path string true "ID треда"
// @Success 200 {object} response.Response "Тред удалён"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Тред не найден"
// @Router /api/threads/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.threads.remove"

	userID, ok := middlewarectx.UserID(r.Context())
	if !ok {
		response.RenderError(w, r, models.ErrUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.DeleteThread(r.Context(), userID, id); err != nil {
		h.log.Info("failed to delete thread",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err),
		)
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"deleted": id,
	}))
}
