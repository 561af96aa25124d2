// Package list реализует HTTP-обработчик списка тредов пользователя.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/duelchat/internal/http/middlewarectx"
	"github.com/magabrotheeeer/duelchat/internal/http/response"
	"github.com/magabrotheeeer/duelchat/internal/lib/sl"
	"github.com/magabrotheeeer/duelchat/internal/models"
)

// Service описывает бизнес-логику списка тредов.
type Service interface {
	ListThreads(ctx context.Context, userID string) ([]*models.Thread, error)
}

// Handler обрабатывает GET /api/threads.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список тредов
// @Tags Threads
// @Produce  json
// @Success 200 {object} response.Response "Треды, последние обновлённые первыми"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /api/threads [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.threads.list"

	userID, ok := middlewarectx.UserID(r.Context())
	if !ok {
		response.RenderError(w, r, models.ErrUnauthorized)
		return
	}

	threads, err := h.service.ListThreads(r.Context(), userID)
	if err != nil {
		h.log.Error("failed to list threads",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err),
		)
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"threads": threads,
	}))
}
