// Package dashboard exposes the per-role stat projections. Each handler
// is mounted behind the matching role gate.
package dashboard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/lavaderos/turnos-backend/internal/http/middlewarectx"
	"github.com/lavaderos/turnos-backend/internal/http/response"
	"github.com/lavaderos/turnos-backend/internal/lib/sl"
	"github.com/lavaderos/turnos-backend/internal/models"
)

// StatsService is the dashboard service surface.
type StatsService interface {
	PlatformStats(ctx context.Context) (*models.PlatformStats, error)
	OperatorStats(ctx context.Context, operatorID string) (*models.OperatorStats, error)
	CustomerStats(ctx context.Context, customerID string) (*models.CustomerStats, error)
}

// PlatformHandler serves the admin dashboard numbers.
type PlatformHandler struct {
	log     *slog.Logger
	service StatsService
}

// NewPlatform creates a PlatformHandler.
func NewPlatform(log *slog.Logger, service StatsService) *PlatformHandler {
	return &PlatformHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Platform dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.OKResponse
// @Router /platform/dashboard [get]
func (h *PlatformHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dashboard.platform"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	stats, err := h.service.PlatformStats(r.Context())
	if err != nil {
		log.Error("failed to load stats", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to load stats"))
		return
	}

	render.JSON(w, r, response.OKWithData(stats))
}

// OperatorHandler serves the operator dashboard numbers.
type OperatorHandler struct {
	log     *slog.Logger
	service StatsService
}

// NewOperator creates an OperatorHandler.
func NewOperator(log *slog.Logger, service StatsService) *OperatorHandler {
	return &OperatorHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Operator dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.OKResponse
// @Failure 404 {object} response.ErrorResponse "Operator has no site"
// @Router /site/dashboard [get]
func (h *OperatorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dashboard.operator"

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

	stats, err := h.service.OperatorStats(r.Context(), principal.ID)
	if err != nil {
		log.Error("failed to load stats", sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to load stats")))
		return
	}

	render.JSON(w, r, response.OKWithData(stats))
}

// CustomerHandler serves the customer dashboard numbers.
type CustomerHandler struct {
	log     *slog.Logger
	service StatsService
}

// NewCustomer creates a CustomerHandler.
func NewCustomer(log *slog.Logger, service StatsService) *CustomerHandler {
	return &CustomerHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Customer dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.OKResponse
// @Router /me/dashboard [get]
func (h *CustomerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dashboard.customer"

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

	stats, err := h.service.CustomerStats(r.Context(), principal.ID)
	if err != nil {
		log.Error("failed to load stats", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to load stats"))
		return
	}

	render.JSON(w, r, response.OKWithData(stats))
}
