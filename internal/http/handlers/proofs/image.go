// Package proofs serves the stored proof images to their authorized
// viewers. Authorization lives in the payments service, the handlers
// only stream bytes.
package proofs

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

// ImageService is the proof-image slice of the payments service.
type ImageService interface {
	SubscriptionProofImage(ctx context.Context, viewer *models.Principal, proofID string) ([]byte, error)
	SlotProofImage(ctx context.Context, viewer *models.Principal, proofID string) ([]byte, error)
}

// ImageHandler streams one proof image.
type ImageHandler struct {
	log     *slog.Logger
	service ImageService
	kind    string // "subscription" or "slot"
}

// NewSubscriptionImage creates the handler for subscription proof
// images.
func NewSubscriptionImage(log *slog.Logger, service ImageService) *ImageHandler {
	return &ImageHandler{log: log, service: service, kind: "subscription"}
}

// NewSlotImage creates the handler for slot proof images.
func NewSlotImage(log *slog.Logger, service ImageService) *ImageHandler {
	return &ImageHandler{log: log, service: service, kind: "slot"}
}

// ServeHTTP godoc
// @Summary Download a proof image
// @Tags Proofs
// @Produce png
// @Param proofID path string true "Proof id"
// @Success 200 {file} file
// @Failure 403 {object} response.ErrorResponse "Not a permitted viewer"
// @Failure 404 {object} response.ErrorResponse "Proof not found"
// @Router /proofs/{kind}/{proofID}/image [get]
func (h *ImageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.proofs.image"

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
	proofID := chi.URLParam(r, "proofID")

	var (
		data []byte
		err  error
	)
	switch h.kind {
	case "subscription":
		data, err = h.service.SubscriptionProofImage(r.Context(), principal, proofID)
	default:
		data, err = h.service.SlotProofImage(r.Context(), principal, proofID)
	}
	if err != nil {
		log.Info("image rejected", slog.String("proof_id", proofID), sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to load image")))
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Warn("failed to stream image", sl.Err(err))
	}
}
