package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/lavaderos/turnos-backend/internal/http/middlewarectx"
	"github.com/lavaderos/turnos-backend/internal/http/response"
	"github.com/lavaderos/turnos-backend/internal/lib/sl"
)

// LogoutService is the logout slice of the identity service.
type LogoutService interface {
	Logout(ctx context.Context, sessionID string) error
}

// LogoutHandler deletes the server-side session and clears the cookie.
type LogoutHandler struct {
	log     *slog.Logger
	service LogoutService
}

// NewLogout creates a LogoutHandler.
func NewLogout(log *slog.Logger, service LogoutService) *LogoutHandler {
	return &LogoutHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Logout
// @Description Deletes the session and clears the cookie. Bearer tokens expire on their own.
// @Tags Auth
// @Produce json
// @Success 200 {object} response.OKResponse
// @Router /auth/logout [post]
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if cookie, err := r.Cookie(middlewarectx.SessionCookie); err == nil && cookie.Value != "" {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil {
			// Session deletion is best effort, the cookie is gone either way.
			log.Warn("failed to delete session", sl.Err(err))
		}
	}

	clearSessionCookie(w)
	log.Info("logged out")
	render.JSON(w, r, response.OKWithData(nil))
}
