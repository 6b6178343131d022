package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lavaderos/turnos-backend/internal/models"
)

// Weekdays travel as a comma-separated string because database/sql has
// no portable integer-array scan.
func encodeWeekdays(days []int) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa(d))
	}
	return strings.Join(parts, ",")
}

func decodeWeekdays(s string) []int {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	days := make([]int, 0, len(parts))
	for _, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		days = append(days, d)
	}
	return days
}

const siteConfigColumns = `site_id, open_time, close_time, slot_duration_minutes, working_weekdays,
	bank_alias, base_price, service_motos, service_autos, service_camionetas,
	price_motos, price_autos, price_camionetas, latitude, longitude, full_address,
	currently_open, created_at`

func scanSiteConfig(row interface{ Scan(...any) error }) (*models.SiteConfig, error) {
	cfg := &models.SiteConfig{}
	var weekdays string
	var latitude, longitude sql.NullFloat64
	var fullAddress sql.NullString
	if err := row.Scan(&cfg.SiteID, &cfg.OpenTime, &cfg.CloseTime, &cfg.SlotDurationMinutes, &weekdays,
		&cfg.BankAlias, &cfg.BasePrice, &cfg.ServiceMotos, &cfg.ServiceAutos, &cfg.ServiceCamionetas,
		&cfg.PriceMotos, &cfg.PriceAutos, &cfg.PriceCamionetas, &latitude, &longitude, &fullAddress,
		&cfg.CurrentlyOpen, &cfg.CreatedAt); err != nil {
		return nil, err
	}
	cfg.WorkingWeekdays = decodeWeekdays(weekdays)
	if latitude.Valid {
		cfg.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		cfg.Longitude = &longitude.Float64
	}
	if fullAddress.Valid {
		cfg.FullAddress = &fullAddress.String
	}
	return cfg, nil
}

// GetSiteConfig returns the schedule config of a site, or ErrNotFound
// when none has been created yet.
func (s *Storage) GetSiteConfig(ctx context.Context, siteID string) (*models.SiteConfig, error) {
	const op = "storage.GetSiteConfig"

	query := `SELECT ` + siteConfigColumns + ` FROM site_configs WHERE site_id = $1`
	cfg, err := scanSiteConfig(s.DB.QueryRowContext(ctx, query, siteID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cfg, nil
}

// CreateSiteConfig inserts a config for a site that has none. Concurrent
// lazy creation is absorbed by ON CONFLICT DO NOTHING.
func (s *Storage) CreateSiteConfig(ctx context.Context, cfg models.SiteConfig) error {
	const op = "storage.CreateSiteConfig"

	query := `INSERT INTO site_configs (site_id, open_time, close_time, slot_duration_minutes, working_weekdays,
			      bank_alias, base_price, service_motos, service_autos, service_camionetas,
			      price_motos, price_autos, price_camionetas, latitude, longitude, full_address, currently_open)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			  ON CONFLICT (site_id) DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, query,
		cfg.SiteID, cfg.OpenTime, cfg.CloseTime, cfg.SlotDurationMinutes, encodeWeekdays(cfg.WorkingWeekdays),
		cfg.BankAlias, cfg.BasePrice, cfg.ServiceMotos, cfg.ServiceAutos, cfg.ServiceCamionetas,
		cfg.PriceMotos, cfg.PriceAutos, cfg.PriceCamionetas, cfg.Latitude, cfg.Longitude, cfg.FullAddress,
		cfg.CurrentlyOpen); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateSiteConfig replaces every editable field of a site config.
func (s *Storage) UpdateSiteConfig(ctx context.Context, cfg models.SiteConfig) error {
	const op = "storage.UpdateSiteConfig"

	query := `UPDATE site_configs
			  SET open_time = $2, close_time = $3, slot_duration_minutes = $4, working_weekdays = $5,
			      bank_alias = $6, base_price = $7, service_motos = $8, service_autos = $9,
			      service_camionetas = $10, price_motos = $11, price_autos = $12, price_camionetas = $13,
			      latitude = $14, longitude = $15, full_address = $16
			  WHERE site_id = $1`
	res, err := s.DB.ExecContext(ctx, query,
		cfg.SiteID, cfg.OpenTime, cfg.CloseTime, cfg.SlotDurationMinutes, encodeWeekdays(cfg.WorkingWeekdays),
		cfg.BankAlias, cfg.BasePrice, cfg.ServiceMotos, cfg.ServiceAutos, cfg.ServiceCamionetas,
		cfg.PriceMotos, cfg.PriceAutos, cfg.PriceCamionetas, cfg.Latitude, cfg.Longitude, cfg.FullAddress)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// SetCurrentlyOpen flips the real-time open flag of a site.
func (s *Storage) SetCurrentlyOpen(ctx context.Context, siteID string, open bool) error {
	const op = "storage.SetCurrentlyOpen"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE site_configs SET currently_open = $2 WHERE site_id = $1`, siteID, open)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// ListNonWorkingDays returns the non-working days of a site, soonest
// first.
func (s *Storage) ListNonWorkingDays(ctx context.Context, siteID string) ([]*models.NonWorkingDay, error) {
	const op = "storage.ListNonWorkingDays"

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, site_id, day, reason, created_at
		 FROM non_working_days
		 WHERE site_id = $1
		 ORDER BY day`, siteID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.NonWorkingDay
	for rows.Next() {
		var d models.NonWorkingDay
		var reason sql.NullString
		if err = rows.Scan(&d.ID, &d.SiteID, &d.Date, &reason, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if reason.Valid {
			d.Reason = &reason.String
		}
		result = append(result, &d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// AddNonWorkingDay marks a day as non-working for a site.
func (s *Storage) AddNonWorkingDay(ctx context.Context, d models.NonWorkingDay) (string, error) {
	const op = "storage.AddNonWorkingDay"

	var newID string
	query := `INSERT INTO non_working_days (site_id, day, reason)
			  VALUES ($1, $2, $3)
			  RETURNING id`
	if err := s.DB.QueryRowContext(ctx, query, d.SiteID, d.Date, d.Reason).Scan(&newID); err != nil {
		return "", fmt.Errorf("%s: %w", op, mapConstraint(err))
	}
	return newID, nil
}

// DeleteNonWorkingDay removes a non-working day, scoped to the owning
// site so an operator cannot touch another site's calendar.
func (s *Storage) DeleteNonWorkingDay(ctx context.Context, siteID, id string) error {
	const op = "storage.DeleteNonWorkingDay"

	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM non_working_days WHERE id = $1 AND site_id = $2`, id, siteID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// IsNonWorkingDay reports whether the given day is blocked for the site.
func (s *Storage) IsNonWorkingDay(ctx context.Context, siteID string, day time.Time) (bool, error) {
	const op = "storage.IsNonWorkingDay"

	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM non_working_days WHERE site_id = $1 AND day = $2)`,
		siteID, day).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}
