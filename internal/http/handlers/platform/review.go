package platform

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

	"github.com/lavaderos/turnos-backend/internal/http/response"
	"github.com/lavaderos/turnos-backend/internal/lib/period"
	"github.com/lavaderos/turnos-backend/internal/lib/sl"
	"github.com/lavaderos/turnos-backend/internal/models"
)

// ReviewService is the subscription-proof review slice of the payments
// service.
type ReviewService interface {
	SubscriptionProofQueue(ctx context.Context, filter models.ProofFilter) (*models.ProofQueue[*models.SubscriptionProofView], error)
	ApproveSubscriptionProof(ctx context.Context, proofID string) error
	RejectSubscriptionProof(ctx context.Context, proofID, comment string) error
}

// QueueHandler pages through the subscription proofs of the whole
// platform.
type QueueHandler struct {
	log     *slog.Logger
	service ReviewService
}

// NewQueue creates a QueueHandler.
func NewQueue(log *slog.Logger, service ReviewService) *QueueHandler {
	return &QueueHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary List subscription proofs
// @Tags Platform
// @Produce json
// @Param state query string false "Filter by review state"
// @Param operator_id query string false "Filter by operator"
// @Param period query string false "Filter by billing period (2006-01)"
// @Param limit query int false "Page size, default 50"
// @Param offset query int false "Page offset"
// @Success 200 {object} response.OKResponse
// @Failure 400 {object} response.ErrorResponse "Malformed billing period"
// @Router /platform/proofs [get]
func (h *QueueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.platform.queue"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	filter, err := queueFilter(r)
	if err != nil {
		log.Info("bad queue filter", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid billing period"))
		return
	}

	queue, err := h.service.SubscriptionProofQueue(r.Context(), filter)
	if err != nil {
		log.Error("failed to load queue", sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to load queue")))
		return
	}

	render.JSON(w, r, response.OKWithData(queue))
}

func queueFilter(r *http.Request) (models.ProofFilter, error) {
	q := r.URL.Query()
	if p := q.Get("period"); p != "" {
		if _, err := period.Parse(p); err != nil {
			return models.ProofFilter{}, err
		}
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return models.ProofFilter{
		State:          q.Get("state"),
		CounterpartyID: q.Get("operator_id"),
		Period:         q.Get("period"),
		Limit:          limit,
		Offset:         offset,
	}, nil
}

// ApproveHandler confirms a subscription proof and activates the site
// for thirty days.
type ApproveHandler struct {
	log     *slog.Logger
	service ReviewService
}

// NewApprove creates an ApproveHandler.
func NewApprove(log *slog.Logger, service ReviewService) *ApproveHandler {
	return &ApproveHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Approve a subscription proof
// @Description Confirms the proof and its invoice, then activates the site for thirty days.
// @Tags Platform
// @Produce json
// @Param proofID path string true "Proof id"
// @Success 200 {object} response.OKResponse
// @Failure 404 {object} response.ErrorResponse "Proof not found"
// @Failure 409 {object} response.ErrorResponse "Proof already reviewed"
// @Router /platform/proofs/{proofID}/approve [post]
func (h *ApproveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.platform.approve"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	proofID := chi.URLParam(r, "proofID")

	if err := h.service.ApproveSubscriptionProof(r.Context(), proofID); err != nil {
		log.Info("approval rejected", slog.String("proof_id", proofID), sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to approve proof")))
		return
	}

	log.Info("subscription proof approved", slog.String("proof_id", proofID))
	render.JSON(w, r, response.OKWithData(nil))
}

// RejectHandler rejects a subscription proof with a mandatory comment.
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
// @Summary Reject a subscription proof
// @Tags Platform
// @Accept json
// @Produce json
// @Param proofID path string true "Proof id"
// @Param request body models.RejectProofRequest true "Reviewer comment"
// @Success 200 {object} response.OKResponse
// @Failure 404 {object} response.ErrorResponse "Proof not found"
// @Failure 409 {object} response.ErrorResponse "Proof already reviewed"
// @Failure 422 {object} response.ErrorResponse "Missing comment"
// @Router /platform/proofs/{proofID}/reject [post]
func (h *RejectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.platform.reject"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

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

	if err := h.service.RejectSubscriptionProof(r.Context(), proofID, req.Comment); err != nil {
		log.Info("rejection failed", slog.String("proof_id", proofID), sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to reject proof")))
		return
	}

	log.Info("subscription proof rejected", slog.String("proof_id", proofID))
	render.JSON(w, r, response.OKWithData(nil))
}
