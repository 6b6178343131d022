// Package platform exposes the admin routes: operator administration,
// site toggling, the subscription proof review queue and the platform
// configuration. Every route is gated on the PLATFORM_ADMIN role.
package platform

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/lavaderos/turnos-backend/internal/http/response"
	"github.com/lavaderos/turnos-backend/internal/lib/sl"
	"github.com/lavaderos/turnos-backend/internal/models"
)

// OperatorsService is the operator-administration slice of the
// lifecycle service.
type OperatorsService interface {
	ListOperators(ctx context.Context) ([]*models.OperatorView, error)
	UpdateOperator(ctx context.Context, id string, req models.OperatorUpdateRequest) error
	DeleteOperator(ctx context.Context, id string) error
}

// OperatorsListHandler lists every operator with its site summary.
type OperatorsListHandler struct {
	log     *slog.Logger
	service OperatorsService
}

// NewOperatorsList creates an OperatorsListHandler.
func NewOperatorsList(log *slog.Logger, service OperatorsService) *OperatorsListHandler {
	return &OperatorsListHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary List operators
// @Tags Platform
// @Produce json
// @Success 200 {object} response.OKResponse
// @Router /platform/operators [get]
func (h *OperatorsListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.platform.operatorslist"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	operators, err := h.service.ListOperators(r.Context())
	if err != nil {
		log.Error("failed to list operators", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list operators"))
		return
	}

	render.JSON(w, r, response.OKWithData(operators))
}

// OperatorUpdateHandler partially edits an operator account.
type OperatorUpdateHandler struct {
	log      *slog.Logger
	service  OperatorsService
	validate *validator.Validate
}

// NewOperatorUpdate creates an OperatorUpdateHandler.
func NewOperatorUpdate(log *slog.Logger, service OperatorsService) *OperatorUpdateHandler {
	return &OperatorUpdateHandler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Update an operator
// @Tags Platform
// @Accept json
// @Produce json
// @Param operatorID path string true "Operator id"
// @Param request body models.OperatorUpdateRequest true "Fields to change"
// @Success 200 {object} response.OKResponse
// @Failure 404 {object} response.ErrorResponse "Operator not found"
// @Failure 409 {object} response.ErrorResponse "Email already registered"
// @Failure 422 {object} response.ErrorResponse "Validation failed"
// @Router /platform/operators/{operatorID} [patch]
func (h *OperatorUpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.platform.operatorupdate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	operatorID := chi.URLParam(r, "operatorID")

	var req models.OperatorUpdateRequest
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

	if err := h.service.UpdateOperator(r.Context(), operatorID, req); err != nil {
		log.Error("failed to update operator", slog.String("operator_id", operatorID), sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to update operator")))
		return
	}

	log.Info("operator updated", slog.String("operator_id", operatorID))
	render.JSON(w, r, response.OKWithData(nil))
}

// OperatorDeleteHandler removes an operator account and its site.
type OperatorDeleteHandler struct {
	log     *slog.Logger
	service OperatorsService
}

// NewOperatorDelete creates an OperatorDeleteHandler.
func NewOperatorDelete(log *slog.Logger, service OperatorsService) *OperatorDeleteHandler {
	return &OperatorDeleteHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Delete an operator
// @Tags Platform
// @Produce json
// @Param operatorID path string true "Operator id"
// @Success 200 {object} response.OKResponse
// @Failure 404 {object} response.ErrorResponse "Operator not found"
// @Router /platform/operators/{operatorID} [delete]
func (h *OperatorDeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.platform.operatordelete"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	operatorID := chi.URLParam(r, "operatorID")

	if err := h.service.DeleteOperator(r.Context(), operatorID); err != nil {
		log.Error("failed to delete operator", slog.String("operator_id", operatorID), sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to delete operator")))
		return
	}

	log.Info("operator deleted", slog.String("operator_id", operatorID))
	render.JSON(w, r, response.OKWithData(nil))
}
