package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/lavaderos/turnos-backend/internal/http/response"
	"github.com/lavaderos/turnos-backend/internal/lib/sl"
	"github.com/lavaderos/turnos-backend/internal/services"
)

// ProvenanceService is the external-identity slice of the identity
// service.
type ProvenanceService interface {
	LoginWithProvenance(ctx context.Context, sessionID string) (*services.LoginResult, error)
}

// ProvenanceHandler exchanges an upstream X-Session-ID for a local
// session, creating the customer account on first sight.
type ProvenanceHandler struct {
	log     *slog.Logger
	service ProvenanceService
	ttl     time.Duration
}

// NewProvenance creates a ProvenanceHandler.
func NewProvenance(log *slog.Logger, service ProvenanceService, ttl time.Duration) *ProvenanceHandler {
	return &ProvenanceHandler{
		log:     log,
		service: service,
		ttl:     ttl,
	}
}

// ServeHTTP godoc
// @Summary Login through the external identity provider
// @Description Exchanges the X-Session-ID header with the provider and issues local credentials.
// @Tags Auth
// @Produce json
// @Param X-Session-ID header string true "Upstream session id"
// @Success 200 {object} response.OKResponse
// @Failure 401 {object} response.ErrorResponse "Session not recognized"
// @Router /auth/provenance [post]
func (h *ProvenanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.provenance"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sessionID := r.Header.Get("X-Session-ID")
	if sessionID == "" {
		log.Info("missing X-Session-ID header")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthenticated"))
		return
	}

	result, err := h.service.LoginWithProvenance(r.Context(), sessionID)
	if err != nil {
		log.Info("provenance login rejected", sl.Err(err))
		w.WriteHeader(response.CodeFor(err))
		render.JSON(w, r, response.Error(response.Message(err, "login failed")))
		return
	}

	setSessionCookie(w, result.SessionID, h.ttl)
	log.Info("provenance login success", slog.String("principal_id", result.Principal.ID))
	render.JSON(w, r, response.OKWithData(loginPayload(result)))
}
