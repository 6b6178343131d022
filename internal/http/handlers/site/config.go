// Package site exposes the operator routes: schedule configuration,
// non-working days, slot generation, the subscription invoice and the
// slot proof review queue. Every handler resolves the site through the
// authenticated operator, so one operator can never touch another's
// site.
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

// ConfigService is the schedule-config slice of the schedule service.
type ConfigService interface {
	Config(ctx context.Context, operatorID string) (*models.SiteConfig, error)
	UpdateConfig(ctx context.Context, operatorID string, req models.SiteConfigUpdateRequest) (*models.SiteConfig, error)
}

// ConfigHandler reads the site configuration, creating the defaults on
// first access.
type ConfigHandler struct {
	log     *slog.Logger
	service ConfigService
}

// NewConfig creates a ConfigHandler.
func NewConfig(log *slog.Logger, service ConfigService) *ConfigHandler {
	return &ConfigHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Get the site configuration
// @Tags Site
// @Produce json
// @Success 200 {object} response.OKResponse
// @Failure 404 {object} response.ErrorResponse "Operator has no site"
// @Router /site/config [get]
func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.site.config"

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

	cfg, err := h.service.Config(r.Context(), principal.ID)
	if err != nil {
		log.Error("failed to load config", sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to load config")))
		return
	}

	render.JSON(w, r, response.OKWithData(cfg))
}

// UpdateConfigHandler replaces the schedule and pricing of the site.
type UpdateConfigHandler struct {
	log      *slog.Logger
	service  ConfigService
	validate *validator.Validate
}

// NewUpdateConfig creates an UpdateConfigHandler.
func NewUpdateConfig(log *slog.Logger, service ConfigService) *UpdateConfigHandler {
	return &UpdateConfigHandler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Update the site configuration
// @Tags Site
// @Accept json
// @Produce json
// @Param request body models.SiteConfigUpdateRequest true "New configuration"
// @Success 200 {object} response.OKResponse
// @Failure 400 {object} response.ErrorResponse "Window, duration or weekdays out of range"
// @Failure 422 {object} response.ErrorResponse "Validation failed"
// @Router /site/config [put]
func (h *UpdateConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.site.updateconfig"

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

	var req models.SiteConfigUpdateRequest
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

	cfg, err := h.service.UpdateConfig(r.Context(), principal.ID, req)
	if err != nil {
		log.Error("failed to update config", sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to update config")))
		return
	}

	log.Info("site config updated", slog.String("site_id", cfg.SiteID))
	render.JSON(w, r, response.OKWithData(cfg))
}
