package platform

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/lavaderos/turnos-backend/internal/http/response"
	"github.com/lavaderos/turnos-backend/internal/lib/sl"
	"github.com/lavaderos/turnos-backend/internal/models"
)

// SitesService is the site-administration slice of the lifecycle
// service.
type SitesService interface {
	ListSites(ctx context.Context) ([]*models.SiteWithOperator, error)
	ToggleSite(ctx context.Context, operatorID string) (*models.Site, error)
}

// SitesListHandler lists every site with its operator.
type SitesListHandler struct {
	log     *slog.Logger
	service SitesService
}

// NewSitesList creates a SitesListHandler.
func NewSitesList(log *slog.Logger, service SitesService) *SitesListHandler {
	return &SitesListHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary List sites
// @Tags Platform
// @Produce json
// @Success 200 {object} response.OKResponse
// @Router /platform/sites [get]
func (h *SitesListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.platform.siteslist"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sites, err := h.service.ListSites(r.Context())
	if err != nil {
		log.Error("failed to list sites", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list sites"))
		return
	}

	render.JSON(w, r, response.OKWithData(sites))
}

// ToggleHandler flips a site between ACTIVE and PENDING_APPROVAL,
// adjusting expiry and invoices with it.
type ToggleHandler struct {
	log     *slog.Logger
	service SitesService
}

// NewToggle creates a ToggleHandler.
func NewToggle(log *slog.Logger, service SitesService) *ToggleHandler {
	return &ToggleHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Toggle an operator's site
// @Description Turning off clears the expiry and opens a pending invoice. Turning on grants thirty days and records a confirmed invoice.
// @Tags Platform
// @Produce json
// @Param operatorID path string true "Operator id"
// @Success 200 {object} response.OKResponse
// @Failure 404 {object} response.ErrorResponse "Operator has no site"
// @Failure 409 {object} response.ErrorResponse "Site not togglable"
// @Router /platform/operators/{operatorID}/toggle [post]
func (h *ToggleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.platform.toggle"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	operatorID := chi.URLParam(r, "operatorID")

	site, err := h.service.ToggleSite(r.Context(), operatorID)
	if err != nil {
		log.Info("toggle rejected", slog.String("operator_id", operatorID), sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "failed to toggle site")))
		return
	}

	log.Info("site toggled",
		slog.String("operator_id", operatorID),
		slog.String("state", site.OperationalState))
	render.JSON(w, r, response.OKWithData(site))
}
