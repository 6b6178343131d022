package public

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/lavaderos/turnos-backend/internal/http/response"
	"github.com/lavaderos/turnos-backend/internal/lib/sl"
	"github.com/lavaderos/turnos-backend/internal/models"
)

// AvailableSlotsService is the availability slice of the booking
// service.
type AvailableSlotsService interface {
	AvailableSlots(ctx context.Context, siteID string) ([]*models.Slot, error)
}

// AvailableSlotsHandler lists the bookable slots of one active site.
type AvailableSlotsHandler struct {
	log     *slog.Logger
	service AvailableSlotsService
}

// NewAvailableSlots creates an AvailableSlotsHandler.
func NewAvailableSlots(log *slog.Logger, service AvailableSlotsService) *AvailableSlotsHandler {
	return &AvailableSlotsHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary List available slots of a site
// @Tags Public
// @Produce json
// @Param siteID path string true "Site id"
// @Success 200 {object} response.OKResponse
// @Failure 404 {object} response.ErrorResponse "Site not found"
// @Failure 409 {object} response.ErrorResponse "Site not active"
// @Router /sites/{siteID}/slots [get]
func (h *AvailableSlotsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.public.slots"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	siteID := chi.URLParam(r, "siteID")

	slots, err := h.service.AvailableSlots(r.Context(), siteID)
	if err != nil {
		log.Error("failed to list slots", slog.String("site_id", siteID), sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to list slots")))
		return
	}

	render.JSON(w, r, response.OKWithData(slots))
}
