package site

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/lavaderos/turnos-backend/internal/http/middlewarectx"
	"github.com/lavaderos/turnos-backend/internal/http/response"
	"github.com/lavaderos/turnos-backend/internal/lib/sl"
	"github.com/lavaderos/turnos-backend/internal/models"
)

// ReviewService is the slot-proof review slice of the payments service.
type ReviewService interface {
	SlotProofQueue(ctx context.Context, operatorID string, filter models.ProofFilter) (*models.ProofQueue[*models.SlotProofView], error)
	ApproveSlotProof(ctx context.Context, operatorID, proofID string) error
	RejectSlotProof(ctx context.Context, operatorID, proofID, comment string) error
}

// QueueHandler pages through the slot proofs of the operator's site.
type QueueHandler struct {
	log     *slog.Logger
	service ReviewService
}

// NewQueue creates a QueueHandler.
func NewQueue(log *slog.Logger, service ReviewService) *QueueHandler {
	return &QueueHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary List slot proofs of the site
// @Tags Site
// @Produce json
// @Param state query string false "Filter by review state"
// @Param limit query int false "Page size, default 50"
// @Param offset query int false "Page offset"
// @Success 200 {object} response.OKResponse
// @Router /site/proofs [get]
func (h *QueueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.site.queue"

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

	queue, err := h.service.SlotProofQueue(r.Context(), principal.ID, queueFilter(r))
	if err != nil {
		log.Error("failed to load queue", sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to load queue")))
		return
	}

	render.JSON(w, r, response.OKWithData(queue))
}

func queueFilter(r *http.Request) models.ProofFilter {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return models.ProofFilter{
		State:  q.Get("state"),
		Limit:  limit,
		Offset: offset,
	}
}

// ApproveHandler confirms a slot proof, confirming the slot with it.
type ApproveHandler struct {
	log     *slog.Logger
	service ReviewService
}

// NewApprove creates an ApproveHandler.
func NewApprove(log *slog.Logger, service ReviewService) *ApproveHandler {
	return &ApproveHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Approve a slot proof
// @Tags Site
// @Produce json
// @Param proofID path string true "Proof id"
// @Success 200 {object} response.OKResponse
// @Failure 403 {object} response.ErrorResponse "Proof belongs to another site"
// @Failure 409 {object} response.ErrorResponse "Proof already reviewed"
// @Router /site/proofs/{proofID}/approve [post]
func (h *ApproveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.site.approve"

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

	if err := h.service.ApproveSlotProof(r.Context(), principal.ID, proofID); err != nil {
		log.Info("approval rejected", slog.String("proof_id", proofID), sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to approve proof")))
		return
	}

	log.Info("slot proof approved", slog.String("proof_id", proofID))
	render.JSON(w, r, response.OKWithData(nil))
}

// RejectHandler rejects a slot proof with a mandatory comment. The slot
// stays RESERVED so the customer can retry.
type RejectHandler struct {
	log      *slog.Logger
	service  ReviewService
	validate *validator.Validate
}

// NewReject creates a RejectHandler.
func NewReject(log *slog.Logger, service ReviewService) *RejectHandler {
	return &RejectHandler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Reject a slot proof
// @Tags Site
// @Accept json
// @Produce json
// @Param proofID path string true "Proof id"
// @Param request body models.RejectProofRequest true "Reviewer comment"
// @Success 200 {object} response.OKResponse
// @Failure 403 {object} response.ErrorResponse "Proof belongs to another site"
// @Failure 409 {object} response.ErrorResponse "Proof already reviewed"
// @Failure 422 {object} response.ErrorResponse "Missing comment"
// @Router /site/proofs/{proofID}/reject [post]
func (h *RejectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.site.reject"

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

	var req models.RejectProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.service.RejectSlotProof(r.Context(), principal.ID, proofID, req.Comment); err != nil {
		log.Info("rejection failed", slog.String("proof_id", proofID), sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to reject proof")))
		return
	}

	log.Info("slot proof rejected", slog.String("proof_id", proofID))
	render.JSON(w, r, response.OKWithData(nil))
}
