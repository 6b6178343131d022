// Package public exposes the unauthenticated marketplace routes: the
// listing of active sites and the available slots of one site.
package public

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/lavaderos/turnos-backend/internal/http/response"
	"github.com/lavaderos/turnos-backend/internal/lib/sl"
	"github.com/lavaderos/turnos-backend/internal/models"
)

// SitesService is the public-listing slice of the schedule service.
type SitesService interface {
	PublicSites(ctx context.Context) ([]*models.PublicSite, error)
}

// SitesHandler lists the active sites.
type SitesHandler struct {
	log     *slog.Logger
	service SitesService
}

// NewSites creates a SitesHandler.
func NewSites(log *slog.Logger, service SitesService) *SitesHandler {
	return &SitesHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary List active sites
// @Tags Public
// @Produce json
// @Success 200 {object} response.OKResponse
// @Router /sites [get]
func (h *SitesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.public.sites"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sites, err := h.service.PublicSites(r.Context())
	if err != nil {
		log.Error("failed to list sites", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list sites"))
		return
	}

	render.JSON(w, r, response.OKWithData(sites))
}
