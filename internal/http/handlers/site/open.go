package site

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/lavaderos/turnos-backend/internal/http/middlewarectx"
	"github.com/lavaderos/turnos-backend/internal/http/response"
	"github.com/lavaderos/turnos-backend/internal/lib/sl"
)

// OpenService is the open-flag slice of the schedule service.
type OpenService interface {
	SetOpen(ctx context.Context, operatorID string, open bool) error
}

// OpenRequest flips the currently-open flag shown on the public listing.
type OpenRequest struct {
	Open bool `json:"open"`
}

// OpenHandler sets whether the site is currently taking walk-ins.
type OpenHandler struct {
	log     *slog.Logger
	service OpenService
}

// NewOpen creates an OpenHandler.
func NewOpen(log *slog.Logger, service OpenService) *OpenHandler {
	return &OpenHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Set the currently-open flag
// @Tags Site
// @Accept json
// @Produce json
// @Param request body OpenRequest true "Open flag"
// @Success 200 {object} response.OKResponse
// @Failure 404 {object} response.ErrorResponse "Operator has no site"
// @Router /site/open [put]
func (h *OpenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.site.open"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.PrincipalFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthenticated"))
		return
	}

	var req OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.service.SetOpen(r.Context(), principal.ID, req.Open); err != nil {
		log.Error("failed to set open flag", sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to set open flag")))
		return
	}

	log.Info("open flag set", slog.Bool("open", req.Open))
	render.JSON(w, r, response.OKWithData(map[string]any{"open": req.Open}))
}
