// Package services holds the business logic between the HTTP handlers
// and the storage layer: identity and sessions, operator lifecycle,
// payment-proof review pipelines, booking, schedules and the dashboard
// projections.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lavaderos/turnos-backend/internal/lib/jwt"
	"github.com/lavaderos/turnos-backend/internal/lib/password"
	"github.com/lavaderos/turnos-backend/internal/lib/sl"
	"github.com/lavaderos/turnos-backend/internal/models"
	"github.com/lavaderos/turnos-backend/internal/provenance"
	"github.com/lavaderos/turnos-backend/internal/sessions"
)

// PrincipalRepository is the identity slice of the storage layer.
type PrincipalRepository interface {
	CreatePrincipal(ctx context.Context, p models.Principal) (string, error)
	GetPrincipalByEmail(ctx context.Context, email string) (*models.Principal, error)
	GetPrincipal(ctx context.Context, id string) (*models.Principal, error)
	AttachExternalIdentity(ctx context.Context, id, externalID string, pictureURL *string) error
}

// SessionStore issues and resolves opaque browser sessions.
type SessionStore interface {
	Create(ctx context.Context, p *models.Principal) (string, error)
	Resolve(ctx context.Context, id string) (*sessions.Data, error)
	Delete(ctx context.Context, id string) error
}

// ExpiryRepairer flips an operator's site to EXPIRED when its paid
// window has lapsed. Implemented by the lifecycle service.
type ExpiryRepairer interface {
	RepairExpiry(ctx context.Context, operatorID string) error
}

// IdentityProvider exchanges an external session id for a verified
// identity.
type IdentityProvider interface {
	Exchange(ctx context.Context, sessionID string) (*provenance.Identity, error)
}

// IdentityService handles registration, login over both credential
// kinds, session issuing and principal resolution.
type IdentityService struct {
	principals PrincipalRepository
	store      SessionStore
	repairer   ExpiryRepairer
	provider   IdentityProvider
	jwtMaker   jwt.Maker
	log        *slog.Logger
}

func NewIdentityService(principals PrincipalRepository, store SessionStore, repairer ExpiryRepairer,
	provider IdentityProvider, jwtMaker jwt.Maker, log *slog.Logger) *IdentityService {
	return &IdentityService{
		principals: principals,
		store:      store,
		repairer:   repairer,
		provider:   provider,
		jwtMaker:   jwtMaker,
		log:        log,
	}
}

// RegisterCustomer creates a CUSTOMER principal with a hashed password.
func (s *IdentityService) RegisterCustomer(ctx context.Context, req models.RegisterCustomerRequest) (string, error) {
	hashed, err := password.GetHash(req.Password)
	if err != nil {
		return "", err
	}
	principal := models.Principal{
		Email:        req.Email,
		Name:         req.Name,
		Role:         models.RoleCustomer,
		Active:       true,
		PasswordHash: &hashed,
	}
	id, err := s.principals.CreatePrincipal(ctx, principal)
	if err != nil {
		return "", err
	}
	s.log.Info("registered new customer", slog.String("id", id))
	return id, nil
}

// LoginResult carries both credential artifacts issued at login.
type LoginResult struct {
	SessionID string
	Token     string
	Principal *models.Principal
}

// Login checks the password and issues a session plus a bearer token.
// For operators the site expiry is repaired first so stale ACTIVE
// states never survive a login.
func (s *IdentityService) Login(ctx context.Context, req models.LoginRequest) (*LoginResult, error) {
	principal, err := s.principals.GetPrincipalByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthenticated
		}
		return nil, err
	}
	if !principal.Active {
		return nil, models.ErrUnauthenticated
	}
	if principal.PasswordHash == nil {
		return nil, models.ErrUnauthenticated
	}
	if err = password.CompareHash(*principal.PasswordHash, req.Password); err != nil {
		return nil, models.ErrUnauthenticated
	}

	if principal.Role == models.RoleOperator {
		if err = s.repairer.RepairExpiry(ctx, principal.ID); err != nil {
			s.log.Warn("failed to repair site expiry on login",
				slog.String("operator_id", principal.ID), sl.Err(err))
		}
	}

	return s.issue(ctx, principal)
}

// LoginWithProvenance exchanges an external session id for a verified
// identity and logs the matching principal in, creating a CUSTOMER
// account on first contact.
func (s *IdentityService) LoginWithProvenance(ctx context.Context, sessionID string) (*LoginResult, error) {
	identity, err := s.provider.Exchange(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	principal, err := s.principals.GetPrincipalByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		if principal.ExternalID == nil {
			if err = s.principals.AttachExternalIdentity(ctx, principal.ID, identity.ExternalID, identity.PictureURL); err != nil {
				return nil, err
			}
			principal.ExternalID = &identity.ExternalID
			principal.PictureURL = identity.PictureURL
		}
	case errors.Is(err, models.ErrNotFound):
		newPrincipal := models.Principal{
			Email:      identity.Email,
			Name:       identity.Name,
			Role:       models.RoleCustomer,
			Active:     true,
			ExternalID: &identity.ExternalID,
			PictureURL: identity.PictureURL,
		}
		var id string
		id, err = s.principals.CreatePrincipal(ctx, newPrincipal)
		if err != nil {
			return nil, err
		}
		s.log.Info("registered customer via provenance", slog.String("id", id))
		principal, err = s.principals.GetPrincipal(ctx, id)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if !principal.Active {
		return nil, models.ErrUnauthenticated
	}
	if principal.Role == models.RoleOperator {
		if err = s.repairer.RepairExpiry(ctx, principal.ID); err != nil {
			s.log.Warn("failed to repair site expiry on login",
				slog.String("operator_id", principal.ID), sl.Err(err))
		}
	}

	return s.issue(ctx, principal)
}

func (s *IdentityService) issue(ctx context.Context, principal *models.Principal) (*LoginResult, error) {
	sessionID, err := s.store.Create(ctx, principal)
	if err != nil {
		return nil, err
	}
	token, err := s.jwtMaker.GenerateToken(principal.Email, principal.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{SessionID: sessionID, Token: token, Principal: principal}, nil
}

// ResolveSession returns the principal behind a session cookie.
func (s *IdentityService) ResolveSession(ctx context.Context, sessionID string) (*models.Principal, error) {
	data, err := s.store.Resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	principal, err := s.principals.GetPrincipal(ctx, data.PrincipalID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthenticated
		}
		return nil, err
	}
	if !principal.Active {
		return nil, models.ErrUnauthenticated
	}
	return principal, nil
}

// ResolveToken returns the principal behind a bearer token.
func (s *IdentityService) ResolveToken(ctx context.Context, token string) (*models.Principal, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, models.ErrUnauthenticated
	}
	principal, err := s.principals.GetPrincipalByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthenticated
		}
		return nil, err
	}
	if !principal.Active {
		return nil, models.ErrUnauthenticated
	}
	return principal, nil
}

// Logout drops the session.
func (s *IdentityService) Logout(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, sessionID)
}

// Bootstrap makes sure the platform-admin account exists. Safe to call
// on every startup.
func (s *IdentityService) Bootstrap(ctx context.Context, email, rawPassword, name string) error {
	const op = "services.Bootstrap"

	if email == "" || rawPassword == "" {
		return fmt.Errorf("%s: admin email and password are required", op)
	}

	_, err := s.principals.GetPrincipalByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	admin := models.Principal{
		Email:        email,
		Name:         name,
		Role:         models.RolePlatformAdmin,
		Active:       true,
		PasswordHash: &hashed,
	}
	id, err := s.principals.CreatePrincipal(ctx, admin)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateEmail) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("bootstrapped platform admin", slog.String("id", id))
	return nil
}
