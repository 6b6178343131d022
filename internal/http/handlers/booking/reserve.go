package booking

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/lavaderos/turnos-backend/internal/http/middlewarectx"
	"github.com/lavaderos/turnos-backend/internal/http/response"
	"github.com/lavaderos/turnos-backend/internal/lib/sl"
	"github.com/lavaderos/turnos-backend/internal/models"
)

// ReserveService is the reservation slice of the booking service.
type ReserveService interface {
	Reserve(ctx context.Context, customerID, slotID string) (*models.Slot, error)
}

// ReserveHandler takes an available slot for the authenticated customer.
type ReserveHandler struct {
	log     *slog.Logger
	service ReserveService
}

// NewReserve creates a ReserveHandler.
func NewReserve(log *slog.Logger, service ReserveService) *ReserveHandler {
	return &ReserveHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Reserve a slot
// @Description Atomically moves an AVAILABLE slot to RESERVED for the caller. Losing a race returns 409.
// @Tags Booking
// @Produce json
// @Param slotID path string true "Slot id"
// @Success 200 {object} response.OKResponse
// @Failure 404 {object} response.ErrorResponse "Slot not found"
// @Failure 409 {object} response.ErrorResponse "Slot already taken"
// @Router /slots/{slotID}/reserve [post]
func (h *ReserveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.booking.reserve"

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
	slotID := chi.URLParam(r, "slotID")

	slot, err := h.service.Reserve(r.Context(), principal.ID, slotID)
	if err != nil {
		log.Info("reservation rejected", slog.String("slot_id", slotID), sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to reserve slot")))
		return
	}

	log.Info("slot reserved", slog.String("slot_id", slotID))
	render.JSON(w, r, response.OKWithData(slot))
}
