package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lavaderos/turnos-backend/internal/models"
)

const slotColumns = `id, site_id, customer_id, starts_at, state, price, created_at`

func scanSlot(row interface{ Scan(...any) error }) (*models.Slot, error) {
	slot := &models.Slot{}
	var customerID sql.NullString
	if err := row.Scan(&slot.ID, &slot.SiteID, &customerID, &slot.StartsAt,
		&slot.State, &slot.Price, &slot.CreatedAt); err != nil {
		return nil, err
	}
	if customerID.Valid {
		slot.CustomerID = &customerID.String
	}
	return slot, nil
}

// InsertSlots bulk-inserts generated slots; start times already present
// for the site are skipped. Returns the number of slots actually
// created.
func (s *Storage) InsertSlots(ctx context.Context, slots []models.Slot) (int, error) {
	const op = "storage.InsertSlots"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO slots (site_id, starts_at, state, price)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (site_id, starts_at) DO NOTHING`
	created := 0
	for _, slot := range slots {
		res, err := tx.ExecContext(ctx, query, slot.SiteID, slot.StartsAt, models.SlotAvailable, slot.Price)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		created += int(affected)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// GetSlot returns a slot by id or ErrNotFound.
func (s *Storage) GetSlot(ctx context.Context, id string) (*models.Slot, error) {
	const op = "storage.GetSlot"

	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`
	slot, err := scanSlot(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return slot, nil
}

// ListSiteSlots returns every slot of a site starting at or after the
// given instant, ordered by start time.
func (s *Storage) ListSiteSlots(ctx context.Context, siteID string, from time.Time) ([]*models.Slot, error) {
	const op = "storage.ListSiteSlots"

	query := `SELECT ` + slotColumns + `
			  FROM slots
			  WHERE site_id = $1 AND starts_at >= $2
			  ORDER BY starts_at`
	return s.listSlots(ctx, op, query, siteID, from)
}

// ListAvailableSlots returns the open slots of a site starting at or
// after the given instant.
func (s *Storage) ListAvailableSlots(ctx context.Context, siteID string, from time.Time) ([]*models.Slot, error) {
	const op = "storage.ListAvailableSlots"

	query := `SELECT ` + slotColumns + `
			  FROM slots
			  WHERE site_id = $1 AND starts_at >= $2 AND state = 'AVAILABLE'
			  ORDER BY starts_at`
	return s.listSlots(ctx, op, query, siteID, from)
}

// ListCustomerSlots returns the slots held by a customer, newest first.
func (s *Storage) ListCustomerSlots(ctx context.Context, customerID string) ([]*models.Slot, error) {
	const op = "storage.ListCustomerSlots"

	query := `SELECT ` + slotColumns + `
			  FROM slots
			  WHERE customer_id = $1
			  ORDER BY starts_at DESC`
	return s.listSlots(ctx, op, query, customerID)
}

func (s *Storage) listSlots(ctx context.Context, op, query string, args ...any) ([]*models.Slot, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, slot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ReserveSlot atomically claims an available slot for a customer.
// Returns ErrNotFound when the slot does not exist and
// ErrAlreadyReserved when it exists but is no longer available.
func (s *Storage) ReserveSlot(ctx context.Context, slotID, customerID string) error {
	const op = "storage.ReserveSlot"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE slots SET state = 'RESERVED', customer_id = $2
		 WHERE id = $1 AND state = 'AVAILABLE'`, slotID, customerID)
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
			`SELECT EXISTS (SELECT 1 FROM slots WHERE id = $1)`, slotID).Scan(&exists); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !exists {
			return fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, models.ErrAlreadyReserved)
	}
	return nil
}

// ReleaseSlot puts a reserved slot back on the market, clearing its
// holder.
func (s *Storage) ReleaseSlot(ctx context.Context, slotID string) error {
	const op = "storage.ReleaseSlot"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE slots SET state = 'AVAILABLE', customer_id = NULL WHERE id = $1`, slotID)
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

// SetSlotState moves a slot to the given state without touching the
// holder.
func (s *Storage) SetSlotState(ctx context.Context, slotID, state string) error {
	const op = "storage.SetSlotState"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE slots SET state = $2 WHERE id = $1`, slotID, state)
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

// CountSlotsBySite returns per-state slot counts for a site.
func (s *Storage) CountSlotsBySite(ctx context.Context, siteID string) (map[string]int, error) {
	const op = "storage.CountSlotsBySite"

	rows, err := s.DB.QueryContext(ctx,
		`SELECT state, COUNT(*) FROM slots WHERE site_id = $1 GROUP BY state`, siteID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[string]int)
	for rows.Next() {
		var state string
		var n int
		if err = rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		counts[state] = n
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return counts, nil
}

// CountSlotsByCustomer returns per-state slot counts for a customer.
func (s *Storage) CountSlotsByCustomer(ctx context.Context, customerID string) (map[string]int, error) {
	const op = "storage.CountSlotsByCustomer"

	rows, err := s.DB.QueryContext(ctx,
		`SELECT state, COUNT(*) FROM slots WHERE customer_id = $1 GROUP BY state`, customerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[string]int)
	for rows.Next() {
		var state string
		var n int
		if err = rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		counts[state] = n
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return counts, nil
}
