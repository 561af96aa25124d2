// Package create реализует HTTP-обработчик создания пустого треда.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/duelchat/internal/http/middlewarectx"
	"github.com/magabrotheeeer/duelchat/internal/http/response"
	"github.com/magabrotheeeer/duelchat/internal/lib/sl"
	"github.com/magabrotheeeer/duelchat/internal/models"
)

// Request тело запроса. Пустое тело допустимо.
type Request struct {
	Title string `json:"title"`
}

// Service описывает бизнес-логику создания треда.
type Service interface {
	CreateThread(ctx context.Context, userID, title string) (*models.Thread, error)
}

// Handler обрабатывает POST /api/threads.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Создать тред
// @Tags Threads
// @Accept  json
// @Produce  json
// @Param request body Request false "Название"
// @Success 201 {object} response.Response "Созданный тред"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /api/threads [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.threads.create"
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
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Debug("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.CodeInvalidInput, "invalid request body"))
		return
	}

	thread, err := h.service.CreateThread(r.Context(), userID, req.Title)
	if err != nil {
		log.Error("failed to create thread", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"thread": thread,
	}))
}
