// Package middlewarectx carries the authenticated principal through the
// request context and gates routes by credential and role.
package middlewarectx

import (
	"context"

	"github.com/lavaderos/turnos-backend/internal/models"
)

// Key is the context key type of this package.
type Key string

// PrincipalKey indexes the authenticated *models.Principal.
const PrincipalKey Key = "principal"

// SessionCookie is the cookie holding the server-side session id.
const SessionCookie = "session_id"

// WithPrincipal returns a context carrying the principal.
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFromContext extracts the principal placed by Authenticate.
func PrincipalFromContext(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*models.Principal)
	return p, ok
}
