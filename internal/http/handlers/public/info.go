package public

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/lavaderos/turnos-backend/internal/http/response"
	"github.com/lavaderos/turnos-backend/internal/lib/sl"
	"github.com/lavaderos/turnos-backend/internal/models"
)

// InfoService exposes the platform configuration for the public page.
type InfoService interface {
	Config(ctx context.Context) (*models.PlatformConfig, error)
}

// InfoHandler serves the bank alias and monthly fee shown to operators
// before they sign up.
type InfoHandler struct {
	log     *slog.Logger
	service InfoService
}

// NewInfo creates an InfoHandler.
func NewInfo(log *slog.Logger, service InfoService) *InfoHandler {
	return &InfoHandler{log: log, service: service}
}

type infoPayload struct {
	BankAlias  string  `json:"bank_alias"`
	MonthlyFee float64 `json:"monthly_fee"`
}

// ServeHTTP godoc
// @Summary Public platform information
// @Tags Public
// @Produce json
// @Success 200 {object} response.OKResponse
// @Router /platform-info [get]
func (h *InfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.public.info"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	cfg, err := h.service.Config(r.Context())
	if err != nil {
		log.Error("failed to load platform info", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to load platform info"))
		return
	}

	render.JSON(w, r, response.OKWithData(infoPayload{
		BankAlias:  cfg.BankAlias,
		MonthlyFee: cfg.MonthlyFee,
	}))
}
