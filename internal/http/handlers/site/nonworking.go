package site

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/lavaderos/turnos-backend/internal/http/middlewarectx"
	"github.com/lavaderos/turnos-backend/internal/http/response"
	"github.com/lavaderos/turnos-backend/internal/lib/sl"
	"github.com/lavaderos/turnos-backend/internal/models"
)

// NonWorkingService is the blocked-days slice of the schedule service.
type NonWorkingService interface {
	NonWorkingDays(ctx context.Context, operatorID string) ([]*models.NonWorkingDay, error)
	AddNonWorkingDay(ctx context.Context, operatorID string, req models.NonWorkingDayRequest) (string, error)
	RemoveNonWorkingDay(ctx context.Context, operatorID, id string) error
}

// NonWorkingListHandler lists the blocked days of the site.
type NonWorkingListHandler struct {
	log     *slog.Logger
	service NonWorkingService
}

// NewNonWorkingList creates a NonWorkingListHandler.
func NewNonWorkingList(log *slog.Logger, service NonWorkingService) *NonWorkingListHandler {
	return &NonWorkingListHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary List non-working days
// @Tags Site
// @Produce json
// @Success 200 {object} response.OKResponse
// @Router /site/non-working-days [get]
func (h *NonWorkingListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.site.nonworkinglist"

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

	days, err := h.service.NonWorkingDays(r.Context(), principal.ID)
	if err != nil {
		log.Error("failed to list non-working days", sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to list non-working days")))
		return
	}

	render.JSON(w, r, response.OKWithData(days))
}

// NonWorkingAddHandler blocks one calendar day.
type NonWorkingAddHandler struct {
	log      *slog.Logger
	service  NonWorkingService
	validate *validator.Validate
}

// NewNonWorkingAdd creates a NonWorkingAddHandler.
func NewNonWorkingAdd(log *slog.Logger, service NonWorkingService) *NonWorkingAddHandler {
	return &NonWorkingAddHandler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Add a non-working day
// @Tags Site
// @Accept json
// @Produce json
// @Param request body models.NonWorkingDayRequest true "Day to block"
// @Success 201 {object} response.OKResponse
// @Failure 400 {object} response.ErrorResponse "Date in the past"
// @Failure 409 {object} response.ErrorResponse "Day already blocked"
// @Failure 422 {object} response.ErrorResponse "Validation failed"
// @Router /site/non-working-days [post]
func (h *NonWorkingAddHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.site.nonworkingadd"

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

	var req models.NonWorkingDayRequest
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

	id, err := h.service.AddNonWorkingDay(r.Context(), principal.ID, req)
	if err != nil {
		log.Info("day rejected", slog.String("date", req.Date), sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to add non-working day")))
		return
	}

	log.Info("non-working day added", slog.String("date", req.Date))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{"id": id}))
}

// NonWorkingRemoveHandler unblocks a day.
type NonWorkingRemoveHandler struct {
	log     *slog.Logger
	service NonWorkingService
}

// NewNonWorkingRemove creates a NonWorkingRemoveHandler.
func NewNonWorkingRemove(log *slog.Logger, service NonWorkingService) *NonWorkingRemoveHandler {
	return &NonWorkingRemoveHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Remove a non-working day
// @Tags Site
// @Produce json
// @Param dayID path string true "Non-working day id"
// @Success 200 {object} response.OKResponse
// @Failure 404 {object} response.ErrorResponse "Day not found"
// @Router /site/non-working-days/{dayID} [delete]
func (h *NonWorkingRemoveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.site.nonworkingremove"

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
	dayID := chi.URLParam(r, "dayID")

	if err := h.service.RemoveNonWorkingDay(r.Context(), principal.ID, dayID); err != nil {
		log.Info("removal rejected", slog.String("day_id", dayID), sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to remove non-working day")))
		return
	}

	log.Info("non-working day removed", slog.String("day_id", dayID))
	render.JSON(w, r, response.OKWithData(nil))
}
