package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lavaderos/turnos-backend/internal/models"
)

const principalColumns = `id, email, name, role, active, password_hash, external_id, picture_url, created_at`

func scanPrincipal(row interface{ Scan(...any) error }) (*models.Principal, error) {
	p := &models.Principal{}
	var passwordHash, externalID, pictureURL sql.NullString
	if err := row.Scan(&p.ID, &p.Email, &p.Name, &p.Role, &p.Active,
		&passwordHash, &externalID, &pictureURL, &p.CreatedAt); err != nil {
		return nil, err
	}
	if passwordHash.Valid {
		p.PasswordHash = &passwordHash.String
	}
	if externalID.Valid {
		p.ExternalID = &externalID.String
	}
	if pictureURL.Valid {
		p.PictureURL = &pictureURL.String
	}
	return p, nil
}

// CreatePrincipal stores a new principal and returns its id.
func (s *Storage) CreatePrincipal(ctx context.Context, p models.Principal) (string, error) {
	const op = "storage.CreatePrincipal"

	var newID string
	query := `INSERT INTO principals (email, name, role, active, password_hash, external_id, picture_url)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id;`
	if err := s.DB.QueryRowContext(ctx, query,
		p.Email, p.Name, p.Role, p.Active, p.PasswordHash, p.ExternalID, p.PictureURL).Scan(&newID); err != nil {
		return "", fmt.Errorf("%s: %w", op, mapConstraint(err))
	}
	return newID, nil
}

// GetPrincipalByEmail looks a principal up by email, case-insensitively.
func (s *Storage) GetPrincipalByEmail(ctx context.Context, email string) (*models.Principal, error) {
	const op = "storage.GetPrincipalByEmail"

	query := `SELECT ` + principalColumns + `
			  FROM principals
			  WHERE lower(email) = lower($1)`
	p, err := scanPrincipal(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// GetPrincipal returns a principal by id.
func (s *Storage) GetPrincipal(ctx context.Context, id string) (*models.Principal, error) {
	const op = "storage.GetPrincipal"

	query := `SELECT ` + principalColumns + `
			  FROM principals
			  WHERE id = $1`
	p, err := scanPrincipal(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// AttachExternalIdentity records the provenance id and picture of a
// principal created before their first external login.
func (s *Storage) AttachExternalIdentity(ctx context.Context, id, externalID string, pictureURL *string) error {
	const op = "storage.AttachExternalIdentity"

	query := `UPDATE principals
			  SET external_id = $2, picture_url = COALESCE($3, picture_url)
			  WHERE id = $1`
	if _, err := s.DB.ExecContext(ctx, query, id, externalID, pictureURL); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RegisterOperator creates the operator principal, its site and the
// first pending subscription invoice in one transaction, so a failed
// validation never leaves partial entities behind.
func (s *Storage) RegisterOperator(ctx context.Context, p models.Principal, site models.Site, invoice models.SubscriptionInvoice) (operatorID, siteID, invoiceID string, err error) {
	const op = "storage.RegisterOperator"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", "", "", fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err = tx.QueryRowContext(ctx,
		`INSERT INTO principals (email, name, role, active, password_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		p.Email, p.Name, p.Role, p.Active, p.PasswordHash).Scan(&operatorID); err != nil {
		return "", "", "", fmt.Errorf("%s: %w", op, mapConstraint(err))
	}

	if err = tx.QueryRowContext(ctx,
		`INSERT INTO sites (name, address, description, operator_id, operational_state)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		site.Name, site.Address, site.Description, operatorID, models.SitePendingApproval).Scan(&siteID); err != nil {
		return "", "", "", fmt.Errorf("%s: %w", op, mapConstraint(err))
	}

	if err = tx.QueryRowContext(ctx,
		`INSERT INTO subscription_invoices (operator_id, site_id, amount, billing_period, state, due_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		operatorID, siteID, invoice.Amount, invoice.BillingPeriod, models.ReviewPending, invoice.DueAt).Scan(&invoiceID); err != nil {
		return "", "", "", fmt.Errorf("%s: %w", op, mapConstraint(err))
	}

	if err = tx.Commit(); err != nil {
		return "", "", "", fmt.Errorf("%s: %w", op, err)
	}
	return operatorID, siteID, invoiceID, nil
}

// UpdateOperator applies a partial platform-admin edit. The password, if
// present, must already be hashed.
func (s *Storage) UpdateOperator(ctx context.Context, id string, name, email, passwordHash *string, active *bool) error {
	const op = "storage.UpdateOperator"

	query := `UPDATE principals
			  SET name = COALESCE($2, name),
			      email = COALESCE($3, email),
			      password_hash = COALESCE($4, password_hash),
			      active = COALESCE($5, active)
			  WHERE id = $1 AND role = $6`
	res, err := s.DB.ExecContext(ctx, query, id, name, email, passwordHash, active, models.RoleOperator)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapConstraint(err))
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

// DeleteOperator removes an operator principal. Sites, slots, invoices
// and proofs go with it through the schema's cascading foreign keys.
func (s *Storage) DeleteOperator(ctx context.Context, id string) error {
	const op = "storage.DeleteOperator"

	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM principals WHERE id = $1 AND role = $2`, id, models.RoleOperator)
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

// ListOperators returns every operator with a summary of their site.
func (s *Storage) ListOperators(ctx context.Context) ([]*models.OperatorView, error) {
	const op = "storage.ListOperators"

	query := `SELECT p.id, p.name, p.email, p.active, p.created_at,
			      s.id, s.name, s.operational_state, s.subscription_expiry
			  FROM principals p
			  LEFT JOIN sites s ON s.operator_id = p.id
			  WHERE p.role = $1
			  ORDER BY p.created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, models.RoleOperator)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.OperatorView
	for rows.Next() {
		var v models.OperatorView
		var siteID, siteName, siteState sql.NullString
		var expiry sql.NullTime
		if err = rows.Scan(&v.ID, &v.Name, &v.Email, &v.Active, &v.CreatedAt,
			&siteID, &siteName, &siteState, &expiry); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if siteID.Valid {
			v.Site.ID = &siteID.String
			v.Site.Name = siteName.String
			v.Site.OperationalState = siteState.String
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
