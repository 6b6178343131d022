package site

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

// CancelService is the operator-cancel slice of the booking service.
type CancelService interface {
	CancelForOperator(ctx context.Context, operatorID, slotID string) (*models.Slot, error)
}

// CancelHandler lets an operator cancel a reservation at their own
// site, for no-shows or schedule changes.
type CancelHandler struct {
	log     *slog.Logger
	service CancelService
}

// NewCancel creates a CancelHandler.
func NewCancel(log *slog.Logger, service CancelService) *CancelHandler {
	return &CancelHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Cancel a reservation at the operator's site
// @Description Returns the slot to AVAILABLE when no proof was ever submitted, otherwise retires it as CANCELLED.
// @Tags Site
// @Produce json
// @Param slotID path string true "Slot id"
// @Success 200 {object} response.OKResponse
// @Failure 403 {object} response.ErrorResponse "Slot belongs to another site"
// @Failure 404 {object} response.ErrorResponse "Slot not found"
// @Failure 409 {object} response.ErrorResponse "Slot not cancellable"
// @Router /site/slots/{slotID}/cancel [post]
func (h *CancelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.site.cancel"

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

	slot, err := h.service.CancelForOperator(r.Context(), principal.ID, slotID)
	if err != nil {
		log.Info("cancel rejected", slog.String("slot_id", slotID), sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to cancel slot")))
		return
	}

	log.Info("slot cancelled",
		slog.String("slot_id", slotID),
		slog.String("state", slot.State))
	render.JSON(w, r, response.OKWithData(slot))
}
