// Package booking exposes the customer slot routes: listing own
// reservations, reserving, cancelling and uploading the payment proof
// of a reserved slot.
package booking

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/lavaderos/turnos-backend/internal/http/middlewarectx"
	"github.com/lavaderos/turnos-backend/internal/http/response"
	"github.com/lavaderos/turnos-backend/internal/lib/sl"
	"github.com/lavaderos/turnos-backend/internal/models"
)

// MySlotsService is the own-reservations slice of the booking service.
type MySlotsService interface {
	MySlots(ctx context.Context, customerID string) ([]*models.Slot, error)
}

// MySlotsHandler lists the slots held by the authenticated customer.
type MySlotsHandler struct {
	log     *slog.Logger
	service MySlotsService
}

// NewMySlots creates a MySlotsHandler.
func NewMySlots(log *slog.Logger, service MySlotsService) *MySlotsHandler {
	return &MySlotsHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary List the caller's slots
// @Tags Booking
// @Produce json
// @Success 200 {object} response.OKResponse
// @Failure 401 {object} response.ErrorResponse "Not authenticated"
// @Router /me/slots [get]
func (h *MySlotsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.booking.myslots"

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

	slots, err := h.service.MySlots(r.Context(), principal.ID)
	if err != nil {
		log.Error("failed to list slots", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list slots"))
		return
	}

	render.JSON(w, r, response.OKWithData(slots))
}
