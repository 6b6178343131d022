package repository

import (
	"context"
	"fmt"

	"github.com/lavaderos/turnos-backend/internal/models"
)

// GetPlatformConfig returns the singleton platform config, lazily
// seeding it with the given defaults on first read.
func (s *Storage) GetPlatformConfig(ctx context.Context, defaults models.PlatformConfig) (*models.PlatformConfig, error) {
	const op = "storage.GetPlatformConfig"

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO platform_config (id, bank_alias, monthly_fee)
		 VALUES (1, $1, $2)
		 ON CONFLICT (id) DO NOTHING`, defaults.BankAlias, defaults.MonthlyFee)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg := &models.PlatformConfig{}
	err = s.DB.QueryRowContext(ctx,
		`SELECT bank_alias, monthly_fee FROM platform_config WHERE id = 1`).
		Scan(&cfg.BankAlias, &cfg.MonthlyFee)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cfg, nil
}

// UpdatePlatformConfig replaces the platform bank alias and monthly fee.
func (s *Storage) UpdatePlatformConfig(ctx context.Context, cfg models.PlatformConfig) error {
	const op = "storage.UpdatePlatformConfig"

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO platform_config (id, bank_alias, monthly_fee)
		 VALUES (1, $1, $2)
		 ON CONFLICT (id) DO UPDATE SET bank_alias = EXCLUDED.bank_alias, monthly_fee = EXCLUDED.monthly_fee`,
		cfg.BankAlias, cfg.MonthlyFee)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
