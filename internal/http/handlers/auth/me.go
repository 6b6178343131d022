package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/lavaderos/turnos-backend/internal/http/middlewarectx"
	"github.com/lavaderos/turnos-backend/internal/http/response"
)

// MeHandler returns the authenticated principal. It doubles as the
// session probe used by browser clients on page load.
type MeHandler struct {
	log *slog.Logger
}

// NewMe creates a MeHandler.
func NewMe(log *slog.Logger) *MeHandler {
	return &MeHandler{log: log}
}

// ServeHTTP godoc
// @Summary Current principal
// @Tags Auth
// @Produce json
// @Success 200 {object} response.OKResponse
// @Failure 401 {object} response.ErrorResponse "Not authenticated"
// @Router /auth/me [get]
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.me"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.PrincipalFromContext(r.Context())
	if !ok {
		log.Info("no principal in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthenticated"))
		return
	}

	render.JSON(w, r, response.OKWithData(principalPayload(principal)))
}
