// Package auth exposes the authentication routes: registration, login,
// the external-identity exchange, logout and the current-principal
// probe. Successful logins set the session cookie and return a bearer
// token, so both browser and API clients are served.
package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/lavaderos/turnos-backend/internal/http/middlewarectx"
	"github.com/lavaderos/turnos-backend/internal/http/response"
	"github.com/lavaderos/turnos-backend/internal/lib/sl"
	"github.com/lavaderos/turnos-backend/internal/models"
	"github.com/lavaderos/turnos-backend/internal/services"
)

// LoginService is the login slice of the identity service.
type LoginService interface {
	Login(ctx context.Context, req models.LoginRequest) (*services.LoginResult, error)
}

// LoginHandler authenticates by email and password.
type LoginHandler struct {
	log      *slog.Logger
	service  LoginService
	ttl      time.Duration
	validate *validator.Validate
}

// NewLogin creates a LoginHandler. ttl bounds the session cookie.
func NewLogin(log *slog.Logger, service LoginService, ttl time.Duration) *LoginHandler {
	return &LoginHandler{
		log:      log,
		service:  service,
		ttl:      ttl,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Login with email and password
// @Description Authenticates a principal. Sets the session cookie and returns a bearer token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Credentials"
// @Success 200 {object} response.OKResponse
// @Failure 400 {object} response.ErrorResponse "Invalid JSON"
// @Failure 401 {object} response.ErrorResponse "Invalid credentials"
// @Failure 422 {object} response.ErrorResponse "Validation failed"
// @Router /auth/login [post]
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.LoginRequest
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

	result, err := h.service.Login(r.Context(), req)
	if err != nil {
		log.Info("login rejected", slog.String("email", req.Email), sl.Err(err))
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid credentials"))
		return
	}

	setSessionCookie(w, result.SessionID, h.ttl)
	log.Info("login success", slog.String("principal_id", result.Principal.ID))
	render.JSON(w, r, response.OKWithData(loginPayload(result)))
}

func setSessionCookie(w http.ResponseWriter, sessionID string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     middlewarectx.SessionCookie,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middlewarectx.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func loginPayload(result *services.LoginResult) map[string]any {
	return map[string]any{
		"token":     result.Token,
		"principal": principalPayload(result.Principal),
	}
}

func principalPayload(p *models.Principal) map[string]any {
	payload := map[string]any{
		"id":    p.ID,
		"email": p.Email,
		"name":  p.Name,
		"role":  p.Role,
	}
	if p.PictureURL != nil {
		payload["picture_url"] = *p.PictureURL
	}
	return payload
}
