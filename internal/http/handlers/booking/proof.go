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
	"github.com/lavaderos/turnos-backend/internal/lib/upload"
	"github.com/lavaderos/turnos-backend/internal/models"
)

// SubmitProofService is the slot-proof slice of the payments service.
type SubmitProofService interface {
	SubmitSlotProof(ctx context.Context, customerID, slotID string, u models.Upload) (string, error)
}

// SubmitProofHandler accepts the payment proof image of a reserved slot.
type SubmitProofHandler struct {
	log     *slog.Logger
	service SubmitProofService
}

// NewSubmitProof creates a SubmitProofHandler.
func NewSubmitProof(log *slog.Logger, service SubmitProofService) *SubmitProofHandler {
	return &SubmitProofHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Upload a slot payment proof
// @Description Accepts a jpeg, png, gif or webp image up to 5 MiB under the multipart field "image".
// @Tags Booking
// @Accept mpfd
// @Produce json
// @Param slotID path string true "Slot id"
// @Param image formData file true "Proof image"
// @Success 201 {object} response.OKResponse
// @Failure 400 {object} response.ErrorResponse "Bad upload"
// @Failure 403 {object} response.ErrorResponse "Slot held by someone else"
// @Failure 409 {object} response.ErrorResponse "Live proof already exists"
// @Router /slots/{slotID}/proof [post]
func (h *SubmitProofHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.booking.proof"

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

	u, err := upload.FromRequest(r, "image")
	if err != nil {
		log.Info("bad upload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.Message(err, "invalid upload")))
		return
	}

	proofID, err := h.service.SubmitSlotProof(r.Context(), principal.ID, slotID, u)
	if err != nil {
		log.Info("proof rejected", slog.String("slot_id", slotID), sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to submit proof")))
		return
	}

	log.Info("slot proof submitted",
		slog.String("slot_id", slotID),
		slog.String("proof_id", proofID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{"proof_id": proofID}))
}
