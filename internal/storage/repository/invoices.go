package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lavaderos/turnos-backend/internal/models"
)

const invoiceColumns = `id, operator_id, site_id, amount, billing_period, state, due_at, created_at`

func scanInvoice(row interface{ Scan(...any) error }) (*models.SubscriptionInvoice, error) {
	inv := &models.SubscriptionInvoice{}
	if err := row.Scan(&inv.ID, &inv.OperatorID, &inv.SiteID, &inv.Amount,
		&inv.BillingPeriod, &inv.State, &inv.DueAt, &inv.CreatedAt); err != nil {
		return nil, err
	}
	return inv, nil
}

// CreateInvoice inserts a subscription invoice. A second PENDING invoice
// for the same operator and billing period surfaces as
// ErrDuplicateInvoice.
func (s *Storage) CreateInvoice(ctx context.Context, inv models.SubscriptionInvoice) (string, error) {
	const op = "storage.CreateInvoice"

	var newID string
	query := `INSERT INTO subscription_invoices (operator_id, site_id, amount, billing_period, state, due_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	err := s.DB.QueryRowContext(ctx, query,
		inv.OperatorID, inv.SiteID, inv.Amount, inv.BillingPeriod, inv.State, inv.DueAt).Scan(&newID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, mapConstraint(err))
	}
	return newID, nil
}

// GetInvoice returns an invoice by id or ErrNotFound.
func (s *Storage) GetInvoice(ctx context.Context, id string) (*models.SubscriptionInvoice, error) {
	const op = "storage.GetInvoice"

	query := `SELECT ` + invoiceColumns + ` FROM subscription_invoices WHERE id = $1`
	inv, err := scanInvoice(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return inv, nil
}

// GetPendingInvoiceByOperator returns the operator's open invoice, or
// ErrNotFound when every invoice is settled.
func (s *Storage) GetPendingInvoiceByOperator(ctx context.Context, operatorID string) (*models.SubscriptionInvoice, error) {
	const op = "storage.GetPendingInvoiceByOperator"

	query := `SELECT ` + invoiceColumns + `
			  FROM subscription_invoices
			  WHERE operator_id = $1 AND state = 'PENDING'
			  ORDER BY created_at DESC
			  LIMIT 1`
	inv, err := scanInvoice(s.DB.QueryRowContext(ctx, query, operatorID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return inv, nil
}

// HasInvoiceForPeriod reports whether the operator already has any
// invoice, settled or not, for the billing period.
func (s *Storage) HasInvoiceForPeriod(ctx context.Context, operatorID, period string) (bool, error) {
	const op = "storage.HasInvoiceForPeriod"

	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscription_invoices
		 WHERE operator_id = $1 AND billing_period = $2)`, operatorID, period).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// HasPendingInvoiceForPeriod reports whether the operator has an open
// invoice for the billing period.
func (s *Storage) HasPendingInvoiceForPeriod(ctx context.Context, operatorID, period string) (bool, error) {
	const op = "storage.HasPendingInvoiceForPeriod"

	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscription_invoices
		 WHERE operator_id = $1 AND billing_period = $2 AND state = 'PENDING')`,
		operatorID, period).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// ConfirmInvoice settles an invoice. Confirming an already confirmed
// invoice is a no-op so approval cascades can be retried.
func (s *Storage) ConfirmInvoice(ctx context.Context, id string) error {
	const op = "storage.ConfirmInvoice"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE subscription_invoices SET state = 'CONFIRMED'
		 WHERE id = $1 AND state <> 'CONFIRMED'`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		var exists bool
		if err = s.DB.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM subscription_invoices WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !exists {
			return fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
	}
	return nil
}

// UpdatePendingAmounts repoints every open invoice at the new monthly
// fee. Settled invoices keep the amount they were paid under.
func (s *Storage) UpdatePendingAmounts(ctx context.Context, amount float64) (int, error) {
	const op = "storage.UpdatePendingAmounts"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE subscription_invoices SET amount = $1 WHERE state = 'PENDING'`, amount)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(affected), nil
}
