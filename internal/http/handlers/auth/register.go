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

// RegisterCustomerService is the customer-registration slice of the
// identity service.
type RegisterCustomerService interface {
	RegisterCustomer(ctx context.Context, req models.RegisterCustomerRequest) (string, error)
}

// RegisterCustomerHandler creates customer accounts.
type RegisterCustomerHandler struct {
	log      *slog.Logger
	service  RegisterCustomerService
	validate *validator.Validate
}

// NewRegisterCustomer creates a RegisterCustomerHandler.
func NewRegisterCustomer(log *slog.Logger, service RegisterCustomerService) *RegisterCustomerHandler {
	return &RegisterCustomerHandler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Register a customer account
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.RegisterCustomerRequest true "Account data"
// @Success 201 {object} response.OKResponse
// @Failure 400 {object} response.ErrorResponse "Invalid JSON"
// @Failure 409 {object} response.ErrorResponse "Email already registered"
// @Failure 422 {object} response.ErrorResponse "Validation failed"
// @Router /auth/register [post]
func (h *RegisterCustomerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.RegisterCustomerRequest
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

	id, err := h.service.RegisterCustomer(r.Context(), req)
	if err != nil {
		log.Error("failed to register customer", sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to register")))
		return
	}

	log.Info("customer registered", slog.String("principal_id", id))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{"id": id}))
}
