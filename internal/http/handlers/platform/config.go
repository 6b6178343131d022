package platform

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

// ConfigService is the platform-configuration slice of the platform
// service.
type ConfigService interface {
	Config(ctx context.Context) (*models.PlatformConfig, error)
	Update(ctx context.Context, req models.PlatformConfigUpdateRequest) (*models.PlatformConfig, error)
}

// ConfigHandler reads the platform bank alias and monthly fee.
type ConfigHandler struct {
	log     *slog.Logger
	service ConfigService
}

// NewConfig creates a ConfigHandler.
func NewConfig(log *slog.Logger, service ConfigService) *ConfigHandler {
	return &ConfigHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Get the platform configuration
// @Tags Platform
// @Produce json
// @Success 200 {object} response.OKResponse
// @Router /platform/config [get]
func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.platform.config"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	cfg, err := h.service.Config(r.Context())
	if err != nil {
		log.Error("failed to load config", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to load config"))
		return
	}

	render.JSON(w, r, response.OKWithData(cfg))
}

// ConfigUpdateHandler changes the bank alias or the monthly fee. A fee
// change propagates to every pending invoice.
type ConfigUpdateHandler struct {
	log      *slog.Logger
	service  ConfigService
	validate *validator.Validate
}

// NewConfigUpdate creates a ConfigUpdateHandler.
func NewConfigUpdate(log *slog.Logger, service ConfigService) *ConfigUpdateHandler {
	return &ConfigUpdateHandler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Update the platform configuration
// @Tags Platform
// @Accept json
// @Produce json
// @Param request body models.PlatformConfigUpdateRequest true "New configuration"
// @Success 200 {object} response.OKResponse
// @Failure 422 {object} response.ErrorResponse "Validation failed"
// @Router /platform/config [put]
func (h *ConfigUpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.platform.configupdate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.PlatformConfigUpdateRequest
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

	cfg, err := h.service.Update(r.Context(), req)
	if err != nil {
		log.Error("failed to update config", sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to update config")))
		return
	}

	log.Info("platform config updated", slog.Float64("monthly_fee", cfg.MonthlyFee))
	render.JSON(w, r, response.OKWithData(cfg))
}
