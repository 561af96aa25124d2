// Package quota реализует HTTP-обработчик остатков квоты пользователя.
package quota

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

// Service строит снимок остатков.
type Service interface {
	Snapshot(ctx context.Context, userID string) (models.QuotaSnapshot, error)
}

// Handler обрабатывает GET /api/quota.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Остатки квоты
// @Tags Quota
// @Produce  json
// @Success 200 {object} response.Response "Тариф, статус подписки и остатки"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /api/quota [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.quota"

	userID, ok := middlewarectx.UserID(r.Context())
	if !ok {
		response.RenderError(w, r, models.ErrUnauthorized)
		return
	}

	snap, err := h.service.Snapshot(r.Context(), userID)
	if err != nil {
		h.log.Error("failed to build quota snapshot",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err),
		)
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(snap))
}
