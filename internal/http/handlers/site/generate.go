package site

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/lavaderos/turnos-backend/internal/http/middlewarectx"
	"github.com/lavaderos/turnos-backend/internal/http/response"
	"github.com/lavaderos/turnos-backend/internal/lib/sl"
	"github.com/lavaderos/turnos-backend/internal/models"
)

// GenerateService is the slot-generation slice of the schedule service.
type GenerateService interface {
	GenerateSlots(ctx context.Context, operatorID string, req models.GenerateSlotsRequest) (int, error)
	SiteSlots(ctx context.Context, operatorID string) ([]*models.Slot, error)
}

// GenerateHandler materializes the AVAILABLE slots of one day from the
// site schedule.
type GenerateHandler struct {
	log      *slog.Logger
	service  GenerateService
	validate *validator.Validate
}

// NewGenerate creates a GenerateHandler.
func NewGenerate(log *slog.Logger, service GenerateService) *GenerateHandler {
	return &GenerateHandler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Generate the slots of one day
// @Description Idempotent. Already-existing slots are kept, the response carries the number actually created.
// @Tags Site
// @Accept json
// @Produce json
// @Param request body models.GenerateSlotsRequest true "Day to generate"
// @Success 200 {object} response.OKResponse
// @Failure 400 {object} response.ErrorResponse "Past date, non-working day or weekday outside schedule"
// @Failure 422 {object} response.ErrorResponse "Validation failed"
// @Router /site/slots/generate [post]
func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.site.generate"

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

	var req models.GenerateSlotsRequest
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

	created, err := h.service.GenerateSlots(r.Context(), principal.ID, req)
	if err != nil {
		log.Info("generation rejected", slog.String("date", req.Date), sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to generate slots")))
		return
	}

	log.Info("slots generated",
		slog.String("date", req.Date),
		slog.Int("created", created))
	render.JSON(w, r, response.OKWithData(map[string]any{"created": created}))
}

// SlotsHandler lists the upcoming slots of the operator's site in every
// state.
type SlotsHandler struct {
	log     *slog.Logger
	service GenerateService
}

// NewSlots creates a SlotsHandler.
func NewSlots(log *slog.Logger, service GenerateService) *SlotsHandler {
	return &SlotsHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary List the site's upcoming slots
// @Tags Site
// @Produce json
// @Success 200 {object} response.OKResponse
// @Router /site/slots [get]
func (h *SlotsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.site.slots"

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

	slots, err := h.service.SiteSlots(r.Context(), principal.ID)
	if err != nil {
		log.Error("failed to list slots", sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to list slots")))
		return
	}

	render.JSON(w, r, response.OKWithData(slots))
}
