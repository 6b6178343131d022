package middlewarectx

import (
	"net/http"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/lavaderos/turnos-backend/internal/http/response"
)

// Login and registration share one limiter so credential stuffing cannot
// rotate across the auth routes.
var authLimiter = rate.NewLimiter(5, 10)

// RateLimitMiddleware throttles the unauthenticated auth routes.
func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authLimiter.Allow() {
			w.WriteHeader(http.StatusTooManyRequests)
			render.JSON(w, r, response.Error("too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
