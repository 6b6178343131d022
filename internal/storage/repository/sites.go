package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lavaderos/turnos-backend/internal/models"
)

const siteColumns = `id, name, address, description, operator_id, operational_state, subscription_expiry, active, created_at`

func scanSite(row interface{ Scan(...any) error }) (*models.Site, error) {
	site := &models.Site{}
	var description sql.NullString
	var expiry sql.NullTime
	if err := row.Scan(&site.ID, &site.Name, &site.Address, &description,
		&site.OperatorID, &site.OperationalState, &expiry, &site.Active, &site.CreatedAt); err != nil {
		return nil, err
	}
	if description.Valid {
		site.Description = &description.String
	}
	if expiry.Valid {
		t := expiry.Time.In(time.UTC)
		site.SubscriptionExpiry = &t
	}
	return site, nil
}

// GetSite returns a site by id.
func (s *Storage) GetSite(ctx context.Context, id string) (*models.Site, error) {
	const op = "storage.GetSite"

	query := `SELECT ` + siteColumns + ` FROM sites WHERE id = $1`
	site, err := scanSite(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return site, nil
}

// GetSiteByOperator returns the site owned by the given operator.
func (s *Storage) GetSiteByOperator(ctx context.Context, operatorID string) (*models.Site, error) {
	const op = "storage.GetSiteByOperator"

	query := `SELECT ` + siteColumns + ` FROM sites WHERE operator_id = $1`
	site, err := scanSite(s.DB.QueryRowContext(ctx, query, operatorID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return site, nil
}

// SetSiteState moves a site to the given operational state, setting or
// clearing the subscription expiry alongside it.
func (s *Storage) SetSiteState(ctx context.Context, siteID, state string, expiry *time.Time) error {
	const op = "storage.SetSiteState"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE sites SET operational_state = $2, subscription_expiry = $3 WHERE id = $1`,
		siteID, state, expiry)
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

// ListSitesWithOperators returns every site joined with its operator's
// identity, for the platform-admin listing.
func (s *Storage) ListSitesWithOperators(ctx context.Context) ([]*models.SiteWithOperator, error) {
	const op = "storage.ListSitesWithOperators"

	query := `SELECT s.id, s.name, s.address, s.description, s.operator_id,
			      s.operational_state, s.subscription_expiry, s.active, s.created_at,
			      p.name, p.email
			  FROM sites s
			  JOIN principals p ON p.id = s.operator_id
			  ORDER BY s.created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.SiteWithOperator
	for rows.Next() {
		var v models.SiteWithOperator
		var description sql.NullString
		var expiry sql.NullTime
		if err = rows.Scan(&v.Site.ID, &v.Site.Name, &v.Site.Address, &description,
			&v.Site.OperatorID, &v.Site.OperationalState, &expiry, &v.Site.Active, &v.Site.CreatedAt,
			&v.OperatorName, &v.OperatorEmail); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if description.Valid {
			v.Site.Description = &description.String
		}
		if expiry.Valid {
			t := expiry.Time.In(time.UTC)
			v.Site.SubscriptionExpiry = &t
		}
		result = append(result, &v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListActiveSites returns the public listing of ACTIVE sites. The
// configured full address and open flag win over the registration
// address when a site config exists.
func (s *Storage) ListActiveSites(ctx context.Context) ([]*models.PublicSite, error) {
	const op = "storage.ListActiveSites"

	query := `SELECT s.id, s.name,
			      COALESCE(NULLIF(c.full_address, ''), s.address),
			      s.description,
			      COALESCE(c.currently_open, FALSE)
			  FROM sites s
			  LEFT JOIN site_configs c ON c.site_id = s.id
			  WHERE s.operational_state = $1 AND s.active
			  ORDER BY s.name`
	rows, err := s.DB.QueryContext(ctx, query, models.SiteActive)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.PublicSite
	for rows.Next() {
		var v models.PublicSite
		var description sql.NullString
		if err = rows.Scan(&v.ID, &v.Name, &v.Address, &description, &v.Open); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if description.Valid {
			v.Description = &description.String
		}
		result = append(result, &v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountSitesByState returns site counts keyed by operational state.
func (s *Storage) CountSitesByState(ctx context.Context) (map[string]int, error) {
	const op = "storage.CountSitesByState"

	rows, err := s.DB.QueryContext(ctx,
		`SELECT operational_state, COUNT(*) FROM sites GROUP BY operational_state`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make(map[string]int)
	for rows.Next() {
		var state string
		var count int
		if err = rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result[state] = count
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
