package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lavaderos/turnos-backend/internal/models"
)

// CreateSubscriptionProof records an uploaded subscription payment
// proof. A live (PENDING or CONFIRMED) proof already attached to the
// invoice surfaces as ErrDuplicateProof.
func (s *Storage) CreateSubscriptionProof(ctx context.Context, p models.SubscriptionProof) (string, error) {
	const op = "storage.CreateSubscriptionProof"

	var newID string
	query := `INSERT INTO subscription_proofs (invoice_id, operator_id, image_ref, state)
			  VALUES ($1, $2, $3, 'PENDING')
			  RETURNING id`
	if err := s.DB.QueryRowContext(ctx, query, p.InvoiceID, p.OperatorID, p.ImageRef).Scan(&newID); err != nil {
		return "", fmt.Errorf("%s: %w", op, mapConstraint(err))
	}
	return newID, nil
}

// GetSubscriptionProof returns a subscription proof by id or
// ErrNotFound.
func (s *Storage) GetSubscriptionProof(ctx context.Context, id string) (*models.SubscriptionProof, error) {
	const op = "storage.GetSubscriptionProof"

	p := &models.SubscriptionProof{}
	var comment sql.NullString
	var reviewedAt sql.NullTime
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, invoice_id, operator_id, image_ref, state, reviewer_comment, reviewed_at, created_at
		 FROM subscription_proofs WHERE id = $1`, id).
		Scan(&p.ID, &p.InvoiceID, &p.OperatorID, &p.ImageRef, &p.State, &comment, &reviewedAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if comment.Valid {
		p.ReviewerComment = &comment.String
	}
	if reviewedAt.Valid {
		p.ReviewedAt = &reviewedAt.Time
	}
	return p, nil
}

// ReviewSubscriptionProof moves a PENDING subscription proof to a
// terminal state. A proof already reviewed surfaces as ErrInvalidState.
func (s *Storage) ReviewSubscriptionProof(ctx context.Context, id, state string, comment *string, reviewedAt time.Time) error {
	const op = "storage.ReviewSubscriptionProof"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE subscription_proofs
		 SET state = $2, reviewer_comment = $3, reviewed_at = $4
		 WHERE id = $1 AND state = 'PENDING'`, id, state, comment, reviewedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return s.reviewOutcome(ctx, op, res, "subscription_proofs", id)
}

// CreateSlotProof records an uploaded slot payment proof, enforcing at
// most one live proof per slot.
func (s *Storage) CreateSlotProof(ctx context.Context, p models.SlotProof) (string, error) {
	const op = "storage.CreateSlotProof"

	var newID string
	query := `INSERT INTO slot_proofs (slot_id, customer_id, image_ref, state)
			  VALUES ($1, $2, $3, 'PENDING')
			  RETURNING id`
	if err := s.DB.QueryRowContext(ctx, query, p.SlotID, p.CustomerID, p.ImageRef).Scan(&newID); err != nil {
		return "", fmt.Errorf("%s: %w", op, mapConstraint(err))
	}
	return newID, nil
}

// GetSlotProof returns a slot proof by id or ErrNotFound.
func (s *Storage) GetSlotProof(ctx context.Context, id string) (*models.SlotProof, error) {
	const op = "storage.GetSlotProof"

	p := &models.SlotProof{}
	var comment sql.NullString
	var reviewedAt sql.NullTime
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, slot_id, customer_id, image_ref, state, reviewer_comment, reviewed_at, created_at
		 FROM slot_proofs WHERE id = $1`, id).
		Scan(&p.ID, &p.SlotID, &p.CustomerID, &p.ImageRef, &p.State, &comment, &reviewedAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if comment.Valid {
		p.ReviewerComment = &comment.String
	}
	if reviewedAt.Valid {
		p.ReviewedAt = &reviewedAt.Time
	}
	return p, nil
}

// GetSlotProofSiteID returns the site owning the slot a proof belongs
// to, for review authorization.
func (s *Storage) GetSlotProofSiteID(ctx context.Context, proofID string) (string, error) {
	const op = "storage.GetSlotProofSiteID"

	var siteID string
	err := s.DB.QueryRowContext(ctx,
		`SELECT sl.site_id
		 FROM slot_proofs p
		 JOIN slots sl ON sl.id = p.slot_id
		 WHERE p.id = $1`, proofID).Scan(&siteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return siteID, nil
}

// ReviewSlotProof moves a PENDING slot proof to a terminal state.
func (s *Storage) ReviewSlotProof(ctx context.Context, id, state string, comment *string, reviewedAt time.Time) error {
	const op = "storage.ReviewSlotProof"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE slot_proofs
		 SET state = $2, reviewer_comment = $3, reviewed_at = $4
		 WHERE id = $1 AND state = 'PENDING'`, id, state, comment, reviewedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return s.reviewOutcome(ctx, op, res, "slot_proofs", id)
}

// reviewOutcome turns a zero-row review update into ErrNotFound or
// ErrInvalidState depending on whether the proof exists.
func (s *Storage) reviewOutcome(ctx context.Context, op string, res sql.Result, table, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected > 0 {
		return nil
	}
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM ` + table + ` WHERE id = $1)`
	if err = s.DB.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, models.ErrInvalidState)
}

// LiveSubscriptionProofForInvoice returns the non-rejected proof of an
// invoice, or ErrNotFound.
func (s *Storage) LiveSubscriptionProofForInvoice(ctx context.Context, invoiceID string) (*models.SubscriptionProof, error) {
	const op = "storage.LiveSubscriptionProofForInvoice"

	var id string
	err := s.DB.QueryRowContext(ctx,
		`SELECT id FROM subscription_proofs WHERE invoice_id = $1 AND state <> 'REJECTED'`,
		invoiceID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.GetSubscriptionProof(ctx, id)
}

// SlotHasAnyProof reports whether any proof, in any state, was ever
// submitted for the slot.
func (s *Storage) SlotHasAnyProof(ctx context.Context, slotID string) (bool, error) {
	const op = "storage.SlotHasAnyProof"

	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM slot_proofs WHERE slot_id = $1)`, slotID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// ListSubscriptionProofs returns one page of the platform review queue,
// newest first, optionally filtered by state, submitting operator and
// billing period.
func (s *Storage) ListSubscriptionProofs(ctx context.Context, filter models.ProofFilter) ([]*models.SubscriptionProofView, error) {
	const op = "storage.ListSubscriptionProofs"

	query := `SELECT p.id, p.operator_id, pr.name, pr.email, st.name,
			         i.amount, i.billing_period, p.image_ref, p.state,
			         p.reviewer_comment, p.reviewed_at, p.created_at
			  FROM subscription_proofs p
			  JOIN subscription_invoices i ON i.id = p.invoice_id
			  JOIN principals pr ON pr.id = p.operator_id
			  JOIN sites st ON st.id = i.site_id
			  WHERE ($1 = '' OR p.state = $1)
			    AND ($2 = '' OR p.operator_id::text = $2)
			    AND ($3 = '' OR i.billing_period = $3)
			  ORDER BY p.created_at DESC
			  LIMIT $4 OFFSET $5`
	rows, err := s.DB.QueryContext(ctx, query,
		filter.State, filter.CounterpartyID, filter.Period, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.SubscriptionProofView
	for rows.Next() {
		v := &models.SubscriptionProofView{}
		var comment sql.NullString
		var reviewedAt sql.NullTime
		if err = rows.Scan(&v.ProofID, &v.OperatorID, &v.OperatorName, &v.OperatorEmail, &v.SiteName,
			&v.Amount, &v.BillingPeriod, &v.ImageRef, &v.State,
			&comment, &reviewedAt, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if comment.Valid {
			v.ReviewerComment = &comment.String
		}
		if reviewedAt.Valid {
			v.ReviewedAt = &reviewedAt.Time
		}
		result = append(result, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListSlotProofsBySite returns one page of a site's review queue,
// newest first, optionally filtered by state and submitting customer.
func (s *Storage) ListSlotProofsBySite(ctx context.Context, siteID string, filter models.ProofFilter) ([]*models.SlotProofView, error) {
	const op = "storage.ListSlotProofsBySite"

	query := `SELECT p.id, p.slot_id, sl.starts_at, sl.price,
			         p.customer_id, pr.name, pr.email, p.image_ref, p.state,
			         p.reviewer_comment, p.reviewed_at, p.created_at
			  FROM slot_proofs p
			  JOIN slots sl ON sl.id = p.slot_id
			  JOIN principals pr ON pr.id = p.customer_id
			  WHERE sl.site_id = $1
			    AND ($2 = '' OR p.state = $2)
			    AND ($3 = '' OR p.customer_id::text = $3)
			  ORDER BY p.created_at DESC
			  LIMIT $4 OFFSET $5`
	rows, err := s.DB.QueryContext(ctx, query,
		siteID, filter.State, filter.CounterpartyID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.SlotProofView
	for rows.Next() {
		v := &models.SlotProofView{}
		var comment sql.NullString
		var reviewedAt sql.NullTime
		if err = rows.Scan(&v.ProofID, &v.SlotID, &v.SlotStartsAt, &v.SlotPrice,
			&v.CustomerID, &v.CustomerName, &v.CustomerEmail, &v.ImageRef, &v.State,
			&comment, &reviewedAt, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if comment.Valid {
			v.ReviewerComment = &comment.String
		}
		if reviewedAt.Valid {
			v.ReviewedAt = &reviewedAt.Time
		}
		result = append(result, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// SubscriptionProofStats counts subscription proofs per state over the
// whole queue.
func (s *Storage) SubscriptionProofStats(ctx context.Context) (models.ProofStats, error) {
	const op = "storage.SubscriptionProofStats"

	var stats models.ProofStats
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE state = 'PENDING'),
		        COUNT(*) FILTER (WHERE state = 'CONFIRMED'),
		        COUNT(*) FILTER (WHERE state = 'REJECTED')
		 FROM subscription_proofs`).
		Scan(&stats.Total, &stats.Pending, &stats.Confirmed, &stats.Rejected)
	if err != nil {
		return models.ProofStats{}, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}

// SlotProofStatsBySite counts a site's slot proofs per state.
func (s *Storage) SlotProofStatsBySite(ctx context.Context, siteID string) (models.ProofStats, error) {
	const op = "storage.SlotProofStatsBySite"

	var stats models.ProofStats
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE p.state = 'PENDING'),
		        COUNT(*) FILTER (WHERE p.state = 'CONFIRMED'),
		        COUNT(*) FILTER (WHERE p.state = 'REJECTED')
		 FROM slot_proofs p
		 JOIN slots sl ON sl.id = p.slot_id
		 WHERE sl.site_id = $1`, siteID).
		Scan(&stats.Total, &stats.Pending, &stats.Confirmed, &stats.Rejected)
	if err != nil {
		return models.ProofStats{}, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}
