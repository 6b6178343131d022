package services

import (
	"context"
	"log/slog"

	"github.com/lavaderos/turnos-backend/internal/models"
)

// PlatformRepository is the platform config slice of the storage layer.
type PlatformRepository interface {
	GetPlatformConfig(ctx context.Context, defaults models.PlatformConfig) (*models.PlatformConfig, error)
	UpdatePlatformConfig(ctx context.Context, cfg models.PlatformConfig) error
	UpdatePendingAmounts(ctx context.Context, amount float64) (int, error)
}

// PlatformService manages the platform-wide bank alias and monthly fee.
type PlatformService struct {
	repo PlatformRepository
	log  *slog.Logger
}

func NewPlatformService(repo PlatformRepository, log *slog.Logger) *PlatformService {
	return &PlatformService{
		repo: repo,
		log:  log,
	}
}

// Config returns the platform config, seeding the defaults on first
// read.
func (s *PlatformService) Config(ctx context.Context) (*models.PlatformConfig, error) {
	return s.repo.GetPlatformConfig(ctx, defaultPlatformConfig)
}

// Update replaces the bank alias and monthly fee. A fee change
// propagates to every PENDING invoice; settled invoices keep the
// amount they were paid under.
func (s *PlatformService) Update(ctx context.Context, req models.PlatformConfigUpdateRequest) (*models.PlatformConfig, error) {
	current, err := s.repo.GetPlatformConfig(ctx, defaultPlatformConfig)
	if err != nil {
		return nil, err
	}

	cfg := models.PlatformConfig{
		BankAlias:  req.BankAlias,
		MonthlyFee: req.MonthlyFee,
	}
	if err = s.repo.UpdatePlatformConfig(ctx, cfg); err != nil {
		return nil, err
	}

	if current.MonthlyFee != req.MonthlyFee {
		updated, err := s.repo.UpdatePendingAmounts(ctx, req.MonthlyFee)
		if err != nil {
			return nil, err
		}
		s.log.Info("propagated fee change to pending invoices",
			slog.Int("invoices", updated))
	}

	s.log.Info("updated platform config",
		slog.String("bank_alias", cfg.BankAlias),
		slog.Float64("monthly_fee", cfg.MonthlyFee))
	return &cfg, nil
}
