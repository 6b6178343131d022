package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/lavaderos/turnos-backend/internal/http/response"
	"github.com/lavaderos/turnos-backend/internal/models"
)

// Resolver turns a credential into a principal. Implemented by
// services.IdentityService.
type Resolver interface {
	ResolveSession(ctx context.Context, sessionID string) (*models.Principal, error)
	ResolveToken(ctx context.Context, token string) (*models.Principal, error)
}

// Authenticate resolves the request credential and stores the principal
// in the context. The session cookie is tried first, then the bearer
// token, so browser clients and API clients share the same routes.
// Requests with no resolvable credential get 401.
func Authenticate(log *slog.Logger, resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := resolve(r, resolver)
			if err != nil {
				log.Info("authentication failed", slog.String("path", r.URL.Path))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("unauthenticated"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// AuthenticateOptional resolves the credential when one is present but
// never rejects the request. Handlers behind it decide what an
// anonymous request means.
func AuthenticateOptional(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if principal, err := resolve(r, resolver); err == nil {
				r = r.WithContext(WithPrincipal(r.Context(), principal))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolve(r *http.Request, resolver Resolver) (*models.Principal, error) {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		if principal, err := resolver.ResolveSession(r.Context(), cookie.Value); err == nil {
			return principal, nil
		}
		// A dead cookie must not mask a valid bearer token.
	}
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, models.ErrUnauthenticated
	}
	return resolver.ResolveToken(r.Context(), strings.TrimPrefix(header, "Bearer "))
}

// RequireRole rejects principals whose role is not in the allow list.
// It must run after Authenticate.
func RequireRole(log *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("unauthenticated"))
				return
			}
			for _, role := range roles {
				if principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			log.Info("role rejected",
				slog.String("role", principal.Role),
				slog.String("path", r.URL.Path))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("forbidden"))
		})
	}
}
