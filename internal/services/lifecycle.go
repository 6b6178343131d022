package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lavaderos/turnos-backend/internal/lib/password"
	"github.com/lavaderos/turnos-backend/internal/lib/period"
	"github.com/lavaderos/turnos-backend/internal/models"
)

// subscriptionWindow is how long one confirmed payment keeps a site
// ACTIVE.
const subscriptionWindow = 30 * 24 * time.Hour

// defaultPlatformConfig seeds the platform config row on first read.
var defaultPlatformConfig = models.PlatformConfig{
	BankAlias:  "superadmin.alias.mp",
	MonthlyFee: 10000,
}

// LifecycleRepository is the operator and site slice of the storage
// layer.
type LifecycleRepository interface {
	RegisterOperator(ctx context.Context, p models.Principal, site models.Site, invoice models.SubscriptionInvoice) (operatorID, siteID, invoiceID string, err error)
	UpdateOperator(ctx context.Context, id string, name, email, passwordHash *string, active *bool) error
	DeleteOperator(ctx context.Context, id string) error
	ListOperators(ctx context.Context) ([]*models.OperatorView, error)

	GetSite(ctx context.Context, id string) (*models.Site, error)
	GetSiteByOperator(ctx context.Context, operatorID string) (*models.Site, error)
	SetSiteState(ctx context.Context, siteID, state string, expiry *time.Time) error
	ListSitesWithOperators(ctx context.Context) ([]*models.SiteWithOperator, error)

	CreateInvoice(ctx context.Context, inv models.SubscriptionInvoice) (string, error)
	HasInvoiceForPeriod(ctx context.Context, operatorID, p string) (bool, error)
	HasPendingInvoiceForPeriod(ctx context.Context, operatorID, p string) (bool, error)

	GetPlatformConfig(ctx context.Context, defaults models.PlatformConfig) (*models.PlatformConfig, error)
}

// LifecycleService drives operator registration and the site
// operational state machine.
type LifecycleService struct {
	repo LifecycleRepository
	log  *slog.Logger
	now  func() time.Time
}

func NewLifecycleService(repo LifecycleRepository, log *slog.Logger) *LifecycleService {
	return &LifecycleService{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// RegisterOperator creates the operator account, its site in
// PENDING_APPROVAL and the first pending invoice in one transaction.
func (s *LifecycleService) RegisterOperator(ctx context.Context, req models.RegisterOperatorRequest) (operatorID, siteID string, err error) {
	hashed, err := password.GetHash(req.Password)
	if err != nil {
		return "", "", err
	}
	cfg, err := s.repo.GetPlatformConfig(ctx, defaultPlatformConfig)
	if err != nil {
		return "", "", err
	}

	principal := models.Principal{
		Email:        req.Email,
		Name:         req.Name,
		Role:         models.RoleOperator,
		Active:       true,
		PasswordHash: &hashed,
	}
	site := models.Site{
		Name:             req.Site.Name,
		Address:          req.Site.Address,
		Description:      req.Site.Description,
		OperationalState: models.SitePendingApproval,
		Active:           true,
	}
	now := s.now().UTC()
	invoice := models.SubscriptionInvoice{
		Amount:        cfg.MonthlyFee,
		BillingPeriod: period.Current(now),
		State:         models.ReviewPending,
		DueAt:         now.Add(subscriptionWindow),
	}

	operatorID, siteID, invoiceID, err := s.repo.RegisterOperator(ctx, principal, site, invoice)
	if err != nil {
		return "", "", err
	}
	s.log.Info("registered new operator",
		slog.String("operator_id", operatorID),
		slog.String("site_id", siteID),
		slog.String("invoice_id", invoiceID))
	return operatorID, siteID, nil
}

// RepairExpiry flips an ACTIVE site whose paid window has lapsed to
// EXPIRED. Called on every operator login.
func (s *LifecycleService) RepairExpiry(ctx context.Context, operatorID string) error {
	site, err := s.repo.GetSiteByOperator(ctx, operatorID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	}
	if site.OperationalState != models.SiteActive {
		return nil
	}
	if site.SubscriptionExpiry == nil || site.SubscriptionExpiry.After(s.now()) {
		return nil
	}

	if err = s.repo.SetSiteState(ctx, site.ID, models.SiteExpired, site.SubscriptionExpiry); err != nil {
		return err
	}
	s.log.Info("site subscription expired", slog.String("site_id", site.ID))
	return nil
}

// ActivateSite moves a site to ACTIVE with a fresh paid window.
func (s *LifecycleService) ActivateSite(ctx context.Context, siteID string) error {
	expiry := s.now().UTC().Add(subscriptionWindow)
	return s.repo.SetSiteState(ctx, siteID, models.SiteActive, &expiry)
}

// ToggleSite flips an operator's site between ACTIVE and
// PENDING_APPROVAL by platform-admin action. Deactivating opens a
// pending invoice for the current period unless one already exists;
// reactivating without payment writes a CONFIRMED invoice for the
// period so the next toggle-off does not double-bill.
func (s *LifecycleService) ToggleSite(ctx context.Context, operatorID string) (*models.Site, error) {
	site, err := s.repo.GetSiteByOperator(ctx, operatorID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	currentPeriod := period.Current(now)

	switch site.OperationalState {
	case models.SiteActive:
		if err = s.repo.SetSiteState(ctx, site.ID, models.SitePendingApproval, nil); err != nil {
			return nil, err
		}
		site.OperationalState = models.SitePendingApproval
		site.SubscriptionExpiry = nil

		pending, err := s.repo.HasPendingInvoiceForPeriod(ctx, operatorID, currentPeriod)
		if err != nil {
			return nil, err
		}
		if !pending {
			if err = s.openInvoice(ctx, operatorID, site.ID, currentPeriod, models.ReviewPending, now); err != nil {
				return nil, err
			}
		}
	case models.SitePendingApproval, models.SiteExpired:
		expiry := now.Add(subscriptionWindow)
		if err = s.repo.SetSiteState(ctx, site.ID, models.SiteActive, &expiry); err != nil {
			return nil, err
		}
		site.OperationalState = models.SiteActive
		site.SubscriptionExpiry = &expiry

		billed, err := s.repo.HasInvoiceForPeriod(ctx, operatorID, currentPeriod)
		if err != nil {
			return nil, err
		}
		if !billed {
			if err = s.openInvoice(ctx, operatorID, site.ID, currentPeriod, models.ReviewConfirmed, now); err != nil {
				return nil, err
			}
		}
	default:
		return nil, models.ErrInvalidState
	}

	s.log.Info("toggled site state",
		slog.String("site_id", site.ID),
		slog.String("state", site.OperationalState))
	return site, nil
}

func (s *LifecycleService) openInvoice(ctx context.Context, operatorID, siteID, billingPeriod, state string, now time.Time) error {
	cfg, err := s.repo.GetPlatformConfig(ctx, defaultPlatformConfig)
	if err != nil {
		return err
	}
	_, err = s.repo.CreateInvoice(ctx, models.SubscriptionInvoice{
		OperatorID:    operatorID,
		SiteID:        siteID,
		Amount:        cfg.MonthlyFee,
		BillingPeriod: billingPeriod,
		State:         state,
		DueAt:         now.Add(subscriptionWindow),
	})
	if errors.Is(err, models.ErrDuplicateInvoice) {
		return nil
	}
	return err
}

// ListOperators returns every operator with its site summary.
func (s *LifecycleService) ListOperators(ctx context.Context) ([]*models.OperatorView, error) {
	return s.repo.ListOperators(ctx)
}

// ListSites returns every site with its operator, for the platform
// admin.
func (s *LifecycleService) ListSites(ctx context.Context) ([]*models.SiteWithOperator, error) {
	return s.repo.ListSitesWithOperators(ctx)
}

// UpdateOperator applies a partial platform-admin edit. A new password
// is hashed before storage.
func (s *LifecycleService) UpdateOperator(ctx context.Context, id string, req models.OperatorUpdateRequest) error {
	var passwordHash *string
	if req.Password != nil {
		hashed, err := password.GetHash(*req.Password)
		if err != nil {
			return err
		}
		passwordHash = &hashed
	}
	if err := s.repo.UpdateOperator(ctx, id, req.Name, req.Email, passwordHash, req.Active); err != nil {
		return err
	}
	s.log.Info("updated operator", slog.String("operator_id", id))
	return nil
}

// DeleteOperator removes the operator account with its site and data.
func (s *LifecycleService) DeleteOperator(ctx context.Context, id string) error {
	if err := s.repo.DeleteOperator(ctx, id); err != nil {
		return err
	}
	s.log.Info("deleted operator", slog.String("operator_id", id))
	return nil
}
