package site

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/lavaderos/turnos-backend/internal/http/middlewarectx"
	"github.com/lavaderos/turnos-backend/internal/http/response"
	"github.com/lavaderos/turnos-backend/internal/lib/sl"
	"github.com/lavaderos/turnos-backend/internal/lib/upload"
	"github.com/lavaderos/turnos-backend/internal/models"
)

// InvoiceService is the subscription-billing slice of the payments
// service.
type InvoiceService interface {
	PendingInvoice(ctx context.Context, operatorID string) (*models.PendingInvoiceView, error)
	SubmitSubscriptionProof(ctx context.Context, operatorID string, u models.Upload) (string, error)
}

// InvoiceHandler shows the operator's outstanding invoice with the
// platform bank alias to pay it to.
type InvoiceHandler struct {
	log     *slog.Logger
	service InvoiceService
}

// NewInvoice creates an InvoiceHandler.
func NewInvoice(log *slog.Logger, service InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Get the pending subscription invoice
// @Tags Site
// @Produce json
// @Success 200 {object} response.OKResponse
// @Router /site/invoice [get]
func (h *InvoiceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.site.invoice"

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

	view, err := h.service.PendingInvoice(r.Context(), principal.ID)
	if err != nil {
		log.Error("failed to load invoice", sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to load invoice")))
		return
	}

	render.JSON(w, r, response.OKWithData(view))
}

// SubmitProofHandler accepts the payment proof image of the pending
// invoice.
type SubmitProofHandler struct {
	log     *slog.Logger
	service InvoiceService
}

// NewSubmitProof creates a SubmitProofHandler.
func NewSubmitProof(log *slog.Logger, service InvoiceService) *SubmitProofHandler {
	return &SubmitProofHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Upload a subscription payment proof
// @Description Accepts a jpeg, png, gif or webp image up to 5 MiB under the multipart field "image".
// @Tags Site
// @Accept mpfd
// @Produce json
// @Param image formData file true "Proof image"
// @Success 201 {object} response.OKResponse
// @Failure 400 {object} response.ErrorResponse "Bad upload"
// @Failure 404 {object} response.ErrorResponse "No pending invoice"
// @Failure 409 {object} response.ErrorResponse "Live proof already exists"
// @Router /site/invoice/proof [post]
func (h *SubmitProofHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.site.submitproof"

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

	u, err := upload.FromRequest(r, "image")
	if err != nil {
		log.Info("bad upload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.Message(err, "invalid upload")))
		return
	}

	proofID, err := h.service.SubmitSubscriptionProof(r.Context(), principal.ID, u)
	if err != nil {
		log.Info("proof rejected", sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to submit proof")))
		return
	}

	log.Info("subscription proof submitted", slog.String("proof_id", proofID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{"proof_id": proofID}))
}
