package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/lavaderos/turnos-backend/internal/http/middlewarectx"
	"github.com/lavaderos/turnos-backend/internal/http/response"
)

// SessionHandler tells a client whether its credential is still valid
// without forcing a 401. It runs behind the optional authenticator.
type SessionHandler struct {
	log *slog.Logger
}

// NewSession creates a SessionHandler.
func NewSession(log *slog.Logger) *SessionHandler {
	return &SessionHandler{log: log}
}

type sessionPayload struct {
	Authenticated bool `json:"authenticated"`
	Principal     any  `json:"principal,omitempty"`
}

// ServeHTTP godoc
// @Summary Check whether the current session is valid
// @Tags Auth
// @Produce json
// @Success 200 {object} response.OKResponse
// @Router /auth/session [get]
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.session"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.PrincipalFromContext(r.Context())
	if !ok {
		log.Debug("no valid credential on request")
		render.JSON(w, r, response.OKWithData(sessionPayload{Authenticated: false}))
		return
	}

	render.JSON(w, r, response.OKWithData(sessionPayload{
		Authenticated: true,
		Principal:     principalPayload(principal),
	}))
}
