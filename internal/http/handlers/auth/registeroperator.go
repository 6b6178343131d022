package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/lavaderos/turnos-backend/internal/http/response"
	"github.com/lavaderos/turnos-backend/internal/lib/sl"
	"github.com/lavaderos/turnos-backend/internal/models"
)

// RegisterOperatorService is the operator-registration slice of the
// lifecycle service.
type RegisterOperatorService interface {
	RegisterOperator(ctx context.Context, req models.RegisterOperatorRequest) (operatorID, siteID string, err error)
}

// RegisterOperatorHandler creates an operator account together with its
// site and the first pending invoice.
type RegisterOperatorHandler struct {
	log      *slog.Logger
	service  RegisterOperatorService
	validate *validator.Validate
}

// NewRegisterOperator creates a RegisterOperatorHandler.
func NewRegisterOperator(log *slog.Logger, service RegisterOperatorService) *RegisterOperatorHandler {
	return &RegisterOperatorHandler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Register an operator with its site
// @Description Creates the operator account, its site in PENDING_APPROVAL and the first pending invoice.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.RegisterOperatorRequest true "Operator and site data"
// @Success 201 {object} response.OKResponse
// @Failure 400 {object} response.ErrorResponse "Invalid JSON"
// @Failure 409 {object} response.ErrorResponse "Email or site name taken"
// @Failure 422 {object} response.ErrorResponse "Validation failed"
// @Router /auth/register-operator [post]
func (h *RegisterOperatorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.registeroperator"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.RegisterOperatorRequest
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

	operatorID, siteID, err := h.service.RegisterOperator(r.Context(), req)
	if err != nil {
		log.Error("failed to register operator", sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to register")))
		return
	}

	log.Info("operator registered",
		slog.String("operator_id", operatorID),
		slog.String("site_id", siteID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"operator_id": operatorID,
		"site_id":     siteID,
	}))
}
